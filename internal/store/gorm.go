package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/rewardclaims/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type claimRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	MissionID uuid.UUID `gorm:"type:uuid;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;not null"`
	Status    string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index:reward_claim_created_at_idx,priority:1"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (claimRow) TableName() string { return "reward_claim" }

func (r claimRow) toDomain() (*domain.Claim, error) {
	st, err := domain.ParseClaimStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: claim %s: %w", domain.ErrPersistence, r.ID, err)
	}
	return &domain.Claim{
		ID:        r.ID,
		MissionID: r.MissionID,
		UserID:    r.UserID,
		Status:    st,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

type claimDetailRow struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	ClaimID          uuid.UUID `gorm:"column:reward_claim_id;type:uuid;not null;index"`
	Claim            *claimRow `gorm:"foreignKey:ClaimID;references:ID"`
	TransactionHash  string    `gorm:"not null"`
	RecipientUserID  uuid.UUID `gorm:"type:uuid;not null"`
	RecipientAddress string    `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (claimDetailRow) TableName() string { return "reward_claim_detail" }

func (r claimDetailRow) toDomain() domain.ClaimDetail {
	return domain.ClaimDetail{
		ID:               r.ID,
		ClaimID:          r.ClaimID,
		TransactionHash:  r.TransactionHash,
		RecipientUserID:  r.RecipientUserID,
		RecipientAddress: r.RecipientAddress,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// OpenSQLite opens a SQLite database and migrates the claim tables.
// SQLite allows a single writer, so the pool is capped at one connection.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := MigrateGorm(db); err != nil {
		return nil, err
	}
	return db, nil
}

// MigrateGorm creates the claim tables through gorm's migrator.
func MigrateGorm(db *gorm.DB) error {
	if err := db.AutoMigrate(&claimRow{}, &claimDetailRow{}); err != nil {
		return fmt.Errorf("migrate claim tables: %w", err)
	}
	err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS reward_claim_mission_user_live_key
		ON reward_claim (mission_id, user_id) WHERE status <> 'failed'`).Error
	if err != nil {
		return fmt.Errorf("create live claim index: %w", err)
	}
	return nil
}

// GormSession is the Session over a gorm connection pool.
type GormSession struct {
	db             *gorm.DB
	acquireTimeout time.Duration
}

func NewGormSession(db *gorm.DB, acquireTimeout time.Duration) *GormSession {
	return &GormSession{db: db, acquireTimeout: acquireTimeout}
}

func (s *GormSession) WithConn(ctx context.Context, fn func(h *gorm.DB) error) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classifyGorm("open pool", err)
	}

	actx := ctx
	if s.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, s.acquireTimeout)
		defer cancel()
	}
	conn, err := sqlDB.Conn(actx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %w", domain.ErrTransientStore, err)
	}
	defer conn.Close()

	h := s.db.WithContext(ctx)
	h.Statement.ConnPool = conn
	return fn(h)
}

func (s *GormSession) WithTx(ctx context.Context, fn func(h *gorm.DB) error) error {
	return s.WithConn(ctx, func(conn *gorm.DB) error {
		tx := conn.Begin()
		if tx.Error != nil {
			return classifyGorm("begin transaction", tx.Error)
		}

		committed := false
		defer func() {
			if !committed {
				tx.Rollback()
			}
		}()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit().Error; err != nil {
			return classifyGorm("commit transaction", err)
		}
		committed = true
		return nil
	})
}

// GormRepository implements Repository over gorm.
type GormRepository struct{}

func NewGormRepository() *GormRepository {
	return &GormRepository{}
}

func (r *GormRepository) Insert(ctx context.Context, db *gorm.DB, p domain.NewClaimPayload) (*domain.Claim, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := claimRow{
		ID:        uuid.New(),
		MissionID: p.MissionID,
		UserID:    p.UserID,
		Status:    string(domain.StatusPending),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, classifyGorm("insert claim", err)
	}
	return row.toDomain()
}

func (r *GormRepository) Get(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Claim, error) {
	var row claimRow
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, classifyGorm("get claim", err)
	}
	return row.toDomain()
}

func (r *GormRepository) GetForUpdate(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Claim, error) {
	var row claimRow
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		return nil, classifyGorm("lock claim", err)
	}
	return row.toDomain()
}

func (r *GormRepository) GetByMissionAndUser(ctx context.Context, db *gorm.DB, missionID, userID uuid.UUID) (*domain.Claim, error) {
	var row claimRow
	err := db.WithContext(ctx).
		Where("mission_id = ? AND user_id = ?", missionID, userID).
		Order("status = 'failed'").
		Order("created_at DESC").
		Order("id DESC").
		Take(&row).Error
	if err != nil {
		return nil, classifyGorm("get claim by mission and user", err)
	}
	return row.toDomain()
}

func (r *GormRepository) List(ctx context.Context, db *gorm.DB) ([]domain.Claim, error) {
	var rows []claimRow
	if err := db.WithContext(ctx).Order("created_at").Order("id").Find(&rows).Error; err != nil {
		return nil, classifyGorm("list claims", err)
	}

	claims := make([]domain.Claim, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		claims = append(claims, *c)
	}
	return claims, nil
}

func (r *GormRepository) UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, status domain.ClaimStatus) (*domain.Claim, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, status)
	}

	res := db.WithContext(ctx).
		Model(&claimRow{}).
		Where("id = ? AND status IN ?", id, statusStrings(domain.AllowedSources(status))).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, classifyGorm("update claim status", res.Error)
	}

	current, err := r.Get(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, &domain.TransitionError{ClaimID: id, From: current.Status, To: status}
	}
	return current, nil
}

func (r *GormRepository) InsertDetail(ctx context.Context, db *gorm.DB, p domain.NewClaimDetailPayload) (*domain.ClaimDetail, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := claimDetailRow{
		ID:               uuid.New(),
		ClaimID:          p.ClaimID,
		TransactionHash:  p.TransactionHash,
		RecipientUserID:  p.RecipientUserID,
		RecipientAddress: p.RecipientAddress,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return nil, classifyGorm("insert claim detail", err)
	}
	d := row.toDomain()
	return &d, nil
}

func (r *GormRepository) ListDetails(ctx context.Context, db *gorm.DB, claimID uuid.UUID) ([]domain.ClaimDetail, error) {
	var rows []claimDetailRow
	err := db.WithContext(ctx).
		Where("reward_claim_id = ?", claimID).
		Order("created_at").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, classifyGorm("list claim details", err)
	}

	details := make([]domain.ClaimDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.toDomain())
	}
	return details, nil
}
