package main

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/rewardclaims/internal/config"
	"github.com/punchamoorthee/rewardclaims/internal/domain"
	"github.com/punchamoorthee/rewardclaims/internal/logger"
	"github.com/punchamoorthee/rewardclaims/internal/store"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "seeder",
		Usage: "bulk-load pending reward claims into Postgres",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "claims", Value: 1000, Usage: "number of claims to create"},
			&cli.IntFlag{Name: "missions", Value: 10, Usage: "number of distinct missions"},
		},
		Action: seed,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seed(c *cli.Context) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}
	appLogger := logger.New(os.Stdout, cfg.Env, cfg.LogLevel)

	ctx := c.Context
	pool, err := store.NewPgxPool(ctx, cfg.DBSource, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := store.Migrate(ctx, pool); err != nil {
		return err
	}

	total := c.Int("claims")
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM reward_claim").Scan(&count); err != nil {
		return err
	}
	if count >= total {
		appLogger.Info("seed skipped", slog.Int("existing", count))
		return nil
	}

	missions := make([]uuid.UUID, max(c.Int("missions"), 1))
	for i := range missions {
		missions[i] = uuid.New()
	}

	// Fresh users per row keep every (mission, user) pair unique.
	now := time.Now().UTC()
	rows := make([][]any, 0, total-count)
	for i := count; i < total; i++ {
		rows = append(rows, []any{
			uuid.New(),
			missions[i%len(missions)],
			uuid.New(),
			string(domain.StatusPending),
			now,
			now,
		})
	}

	copyCount, err := pool.CopyFrom(
		ctx,
		pgx.Identifier{"reward_claim"},
		[]string{"id", "mission_id", "user_id", "status", "created_at", "updated_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return err
	}

	appLogger.Info("seeded claims",
		slog.Int64("inserted", copyCount),
		slog.Int("missions", len(missions)))
	return nil
}
