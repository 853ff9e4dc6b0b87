package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/punchamoorthee/rewardclaims/internal/domain"
)

//go:generate mockgen -destination=mock/repository.go -package=mock . Repository

// Repository persists claims and their delivery attempts. H is the handle type
// of the backend (a connection or a transaction); callers own its lifetime and
// transaction boundaries, the repository never opens or commits anything.
type Repository[H any] interface {
	// Insert creates a claim in Pending. A live claim for the same
	// (mission, user) pair makes it fail with domain.ErrConflict.
	Insert(ctx context.Context, h H, p domain.NewClaimPayload) (*domain.Claim, error)
	Get(ctx context.Context, h H, id uuid.UUID) (*domain.Claim, error)
	// GetForUpdate is Get plus a row lock held until h's transaction ends.
	GetForUpdate(ctx context.Context, h H, id uuid.UUID) (*domain.Claim, error)
	// GetByMissionAndUser prefers the newest claim that is not Failed and
	// falls back to the newest Failed one.
	GetByMissionAndUser(ctx context.Context, h H, missionID, userID uuid.UUID) (*domain.Claim, error)
	List(ctx context.Context, h H) ([]domain.Claim, error)
	// UpdateStatus applies one transition of the claim state machine as a
	// single conditional write.
	UpdateStatus(ctx context.Context, h H, id uuid.UUID, status domain.ClaimStatus) (*domain.Claim, error)

	InsertDetail(ctx context.Context, h H, p domain.NewClaimDetailPayload) (*domain.ClaimDetail, error)
	ListDetails(ctx context.Context, h H, claimID uuid.UUID) ([]domain.ClaimDetail, error)
}

// Session hands out handles for one logical operation.
type Session[H any] interface {
	// WithConn runs fn on a single pooled connection in auto-commit mode.
	WithConn(ctx context.Context, fn func(h H) error) error
	// WithTx runs fn inside one transaction; it commits only if fn returns nil.
	WithTx(ctx context.Context, fn func(h H) error) error
}

func statusStrings(statuses []domain.ClaimStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
