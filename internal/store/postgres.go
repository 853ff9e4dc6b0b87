package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/rewardclaims/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is satisfied by pgx.Tx, *pgxpool.Conn and *pgxpool.Pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	claimColumns  = "id, mission_id, user_id, status, created_at, updated_at"
	detailColumns = "id, reward_claim_id, transaction_hash, recipient_user_id, recipient_address, created_at, updated_at"
)

// NewPgxPool parses connString, applies the pool limits and pings the server.
func NewPgxPool(ctx context.Context, connString string, maxConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// Migrate creates the claim tables and indexes if they are missing.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return classifyPostgres("migrate schema", err)
	}
	return nil
}

// Pool is the Postgres Session. Connections are acquired with a bounded wait
// and released on every exit path.
type Pool struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

func NewPool(pool *pgxpool.Pool, acquireTimeout time.Duration) *Pool {
	return &Pool{pool: pool, acquireTimeout: acquireTimeout}
}

func (p *Pool) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	actx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}
	conn, err := p.pool.Acquire(actx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %w", domain.ErrTransientStore, err)
	}
	return conn, nil
}

func (p *Pool) WithConn(ctx context.Context, fn func(h DBTX) error) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return fn(conn)
}

func (p *Pool) WithTx(ctx context.Context, fn func(h DBTX) error) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classifyPostgres("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyPostgres("commit transaction", err)
	}
	return nil
}

// PostgresRepository implements Repository over pgx.
type PostgresRepository struct{}

func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

func (r *PostgresRepository) Insert(ctx context.Context, db DBTX, p domain.NewClaimPayload) (*domain.Claim, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	claim, err := scanClaim(db.QueryRow(ctx,
		"INSERT INTO reward_claim (id, mission_id, user_id, status) VALUES ($1, $2, $3, $4) RETURNING "+claimColumns,
		uuid.New(), p.MissionID, p.UserID, string(domain.StatusPending),
	))
	if err != nil {
		return nil, classifyPostgres("insert claim", err)
	}
	return claim, nil
}

func (r *PostgresRepository) Get(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Claim, error) {
	claim, err := scanClaim(db.QueryRow(ctx,
		"SELECT "+claimColumns+" FROM reward_claim WHERE id = $1", id))
	if err != nil {
		return nil, classifyPostgres("get claim", err)
	}
	return claim, nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Claim, error) {
	claim, err := scanClaim(db.QueryRow(ctx,
		"SELECT "+claimColumns+" FROM reward_claim WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		return nil, classifyPostgres("lock claim", err)
	}
	return claim, nil
}

func (r *PostgresRepository) GetByMissionAndUser(ctx context.Context, db DBTX, missionID, userID uuid.UUID) (*domain.Claim, error) {
	claim, err := scanClaim(db.QueryRow(ctx,
		"SELECT "+claimColumns+` FROM reward_claim
		WHERE mission_id = $1 AND user_id = $2
		ORDER BY (status = 'failed'), created_at DESC, id DESC
		LIMIT 1`,
		missionID, userID,
	))
	if err != nil {
		return nil, classifyPostgres("get claim by mission and user", err)
	}
	return claim, nil
}

func (r *PostgresRepository) List(ctx context.Context, db DBTX) ([]domain.Claim, error) {
	rows, err := db.Query(ctx, "SELECT "+claimColumns+" FROM reward_claim ORDER BY created_at, id")
	if err != nil {
		return nil, classifyPostgres("list claims", err)
	}
	defer rows.Close()

	claims := []domain.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, classifyPostgres("list claims", err)
		}
		claims = append(claims, *claim)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgres("list claims", err)
	}
	return claims, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.ClaimStatus) (*domain.Claim, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, status)
	}

	// The status guard makes the read-modify-write a single statement: of two
	// concurrent callers only one matches the row, the other sees zero rows.
	claim, err := scanClaim(db.QueryRow(ctx,
		`UPDATE reward_claim SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+claimColumns,
		id, string(status), statusStrings(domain.AllowedSources(status)),
	))
	if err == nil {
		return claim, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, classifyPostgres("update claim status", err)
	}

	current, err := r.Get(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return nil, &domain.TransitionError{ClaimID: id, From: current.Status, To: status}
}

func (r *PostgresRepository) InsertDetail(ctx context.Context, db DBTX, p domain.NewClaimDetailPayload) (*domain.ClaimDetail, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	detail, err := scanDetail(db.QueryRow(ctx,
		`INSERT INTO reward_claim_detail (id, reward_claim_id, transaction_hash, recipient_user_id, recipient_address)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+detailColumns,
		uuid.New(), p.ClaimID, p.TransactionHash, p.RecipientUserID, p.RecipientAddress,
	))
	if err != nil {
		return nil, classifyPostgres("insert claim detail", err)
	}
	return detail, nil
}

func (r *PostgresRepository) ListDetails(ctx context.Context, db DBTX, claimID uuid.UUID) ([]domain.ClaimDetail, error) {
	rows, err := db.Query(ctx,
		"SELECT "+detailColumns+" FROM reward_claim_detail WHERE reward_claim_id = $1 ORDER BY created_at, id",
		claimID)
	if err != nil {
		return nil, classifyPostgres("list claim details", err)
	}
	defer rows.Close()

	details := []domain.ClaimDetail{}
	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, classifyPostgres("list claim details", err)
		}
		details = append(details, *detail)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgres("list claim details", err)
	}
	return details, nil
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var c domain.Claim
	var status string
	if err := row.Scan(&c.ID, &c.MissionID, &c.UserID, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	st, err := domain.ParseClaimStatus(status)
	if err != nil {
		return nil, err
	}
	c.Status = st
	return &c, nil
}

func scanDetail(row pgx.Row) (*domain.ClaimDetail, error) {
	var d domain.ClaimDetail
	err := row.Scan(&d.ID, &d.ClaimID, &d.TransactionHash, &d.RecipientUserID, &d.RecipientAddress, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
