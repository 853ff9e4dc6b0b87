package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/punchamoorthee/rewardclaims/internal/api"
	"github.com/punchamoorthee/rewardclaims/internal/cache"
	"github.com/punchamoorthee/rewardclaims/internal/config"
	"github.com/punchamoorthee/rewardclaims/internal/logger"
	"github.com/punchamoorthee/rewardclaims/internal/service"
	"github.com/punchamoorthee/rewardclaims/internal/store"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	appLogger := logger.New(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(appLogger)

	app := &cli.App{
		Name:  "api",
		Usage: "reward claim service",
		Commands: []*cli.Command{
			commandServer(cfg, appLogger),
			commandMigrate(cfg, appLogger),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandServer(cfg config.Config, appLogger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "start the web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: ":" + cfg.Port,
				Usage: "serve address",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			claims, closeStore, err := buildManager(ctx, cfg, appLogger)
			if err != nil {
				return err
			}
			defer closeStore()

			srv := &http.Server{
				Addr:              c.String("addr"),
				Handler:           api.NewRouter(api.NewHandler(claims, appLogger)),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errWg, errCtx := errgroup.WithContext(ctx)

			errWg.Go(func() error {
				appLogger.Info("server starting",
					slog.String("addr", srv.Addr),
					slog.String("driver", cfg.DBDriver),
					slog.String("env", cfg.Env))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			errWg.Go(func() error {
				<-errCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			return errWg.Wait()
		},
	}
}

func commandMigrate(cfg config.Config, appLogger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create the claim tables",
		Action: func(c *cli.Context) error {
			switch cfg.DBDriver {
			case config.DriverSQLite:
				db, err := store.OpenSQLite(cfg.DBSource)
				if err != nil {
					return err
				}
				closeGorm(db)
			default:
				pool, err := store.NewPgxPool(c.Context, cfg.DBSource, cfg.DBMaxConns)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := store.Migrate(c.Context, pool); err != nil {
					return err
				}
			}
			appLogger.Info("schema migrated", slog.String("driver", cfg.DBDriver))
			return nil
		},
	}
}

// buildManager wires the claim service for the configured driver. The returned
// func releases the store and cache connections.
func buildManager(ctx context.Context, cfg config.Config, appLogger *slog.Logger) (api.ClaimManager, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var opts []service.Option
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { client.Close() })
		opts = append(opts, service.WithCache(cache.NewRedisCache(client, true), cfg.CacheTTL))
	}

	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := store.OpenSQLite(cfg.DBSource)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { closeGorm(db) })
		svc := service.NewClaimService[*gorm.DB](store.NewGormRepository(), store.NewGormSession(db, cfg.AcquireTimeout), appLogger, opts...)
		return svc, closeAll, nil

	case config.DriverPostgres:
		pool, err := store.NewPgxPool(ctx, cfg.DBSource, cfg.DBMaxConns)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		svc := service.NewClaimService[store.DBTX](store.NewPostgresRepository(), store.NewPool(pool, cfg.AcquireTimeout), appLogger, opts...)
		return svc, closeAll, nil
	}

	closeAll()
	return nil, nil, fmt.Errorf("unsupported driver %q", cfg.DBDriver)
}

func closeGorm(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
