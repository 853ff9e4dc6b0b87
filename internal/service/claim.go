package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/rewardclaims/internal/cache"
	"github.com/punchamoorthee/rewardclaims/internal/domain"
	"github.com/punchamoorthee/rewardclaims/internal/store"
)

const defaultCacheTTL = 10 * time.Minute

// ClaimHistory is a claim together with every recorded delivery attempt.
type ClaimHistory struct {
	Claim   domain.Claim
	Details []domain.ClaimDetail
}

type options struct {
	cache    cache.Cache
	cacheTTL time.Duration
}

type Option func(*options)

// WithCache serves terminal claims from c. Pending and Processing claims are
// always read from the store.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *options) {
		o.cache = c
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// ClaimService applies the claim state machine on top of a repository. It owns
// connection and transaction boundaries and never retries.
type ClaimService[H any] struct {
	repo     store.Repository[H]
	session  store.Session[H]
	logger   *slog.Logger
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewClaimService[H any](repo store.Repository[H], session store.Session[H], logger *slog.Logger, opts ...Option) *ClaimService[H] {
	o := options{cacheTTL: defaultCacheTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimService[H]{
		repo:     repo,
		session:  session,
		logger:   logger,
		cache:    o.cache,
		cacheTTL: o.cacheTTL,
	}
}

func withConn[H, T any](ctx context.Context, s store.Session[H], op string, fn func(h H) (T, error)) (T, error) {
	var out T
	err := observe(op, func() error {
		return s.WithConn(ctx, func(h H) error {
			var err error
			out, err = fn(h)
			return err
		})
	})
	return out, err
}

// Open creates a Pending claim for the pair. If a claim that has not failed
// already exists, it is returned together with domain.ErrAlreadyClaimed.
func (s *ClaimService[H]) Open(ctx context.Context, p domain.NewClaimPayload) (*domain.Claim, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var claim *domain.Claim
	err := observe("open", func() error {
		return s.session.WithTx(ctx, func(h H) error {
			existing, err := s.repo.GetByMissionAndUser(ctx, h, p.MissionID, p.UserID)
			switch {
			case err == nil && existing.Status != domain.StatusFailed:
				claim = existing
				return domain.ErrAlreadyClaimed
			case err != nil && !errors.Is(err, domain.ErrNotFound):
				return err
			}

			claim, err = s.repo.Insert(ctx, h, p)
			return err
		})
	})

	switch {
	case err == nil:
		s.logger.Info("claim opened",
			slog.String("claim_id", claim.ID.String()),
			slog.String("mission_id", p.MissionID.String()),
			slog.String("user_id", p.UserID.String()))
		return claim, nil
	case errors.Is(err, domain.ErrAlreadyClaimed):
		return claim, err
	case errors.Is(err, domain.ErrConflict):
		// A concurrent Open inserted first; the unique index rejected ours.
		if winner, lerr := s.Lookup(ctx, p.MissionID, p.UserID); lerr == nil {
			return winner, fmt.Errorf("%w: %w", domain.ErrAlreadyClaimed, err)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrAlreadyClaimed, err)
	default:
		s.logFailure("open claim", err,
			slog.String("mission_id", p.MissionID.String()),
			slog.String("user_id", p.UserID.String()))
		return nil, err
	}
}

func (s *ClaimService[H]) Get(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	if s.cache == nil {
		return s.get(ctx, id)
	}

	var loadErr error
	claim, err := cache.Through(ctx, s.cache, claimCacheKey(id), s.cacheTTL, func() (domain.Claim, bool, error) {
		c, err := s.get(ctx, id)
		if err != nil {
			loadErr = err
			return domain.Claim{}, false, err
		}
		return *c, c.Status.IsTerminal(), nil
	})
	if loadErr != nil {
		return nil, loadErr
	}
	if err != nil {
		s.logger.Warn("claim cache unavailable",
			slog.String("claim_id", id.String()),
			slog.String("error", err.Error()))
		return s.get(ctx, id)
	}
	return &claim, nil
}

func (s *ClaimService[H]) get(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	return withConn(ctx, s.session, "get", func(h H) (*domain.Claim, error) {
		return s.repo.Get(ctx, h, id)
	})
}

// Lookup returns the claim for the pair, preferring one that has not failed.
func (s *ClaimService[H]) Lookup(ctx context.Context, missionID, userID uuid.UUID) (*domain.Claim, error) {
	return withConn(ctx, s.session, "lookup", func(h H) (*domain.Claim, error) {
		return s.repo.GetByMissionAndUser(ctx, h, missionID, userID)
	})
}

func (s *ClaimService[H]) List(ctx context.Context) ([]domain.Claim, error) {
	return withConn(ctx, s.session, "list", func(h H) ([]domain.Claim, error) {
		return s.repo.List(ctx, h)
	})
}

func (s *ClaimService[H]) History(ctx context.Context, id uuid.UUID) (*ClaimHistory, error) {
	return withConn(ctx, s.session, "history", func(h H) (*ClaimHistory, error) {
		claim, err := s.repo.Get(ctx, h, id)
		if err != nil {
			return nil, err
		}
		details, err := s.repo.ListDetails(ctx, h, id)
		if err != nil {
			return nil, err
		}
		return &ClaimHistory{Claim: *claim, Details: details}, nil
	})
}

// StartProcessing marks a Pending claim as having a send in flight. Exactly one
// of several concurrent callers succeeds.
func (s *ClaimService[H]) StartProcessing(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	return s.transition(ctx, id, domain.StatusProcessing)
}

// Fail moves a Pending or Processing claim to Failed without recording an
// attempt, for sends rejected before a transaction hash existed.
func (s *ClaimService[H]) Fail(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	return s.transition(ctx, id, domain.StatusFailed)
}

func (s *ClaimService[H]) transition(ctx context.Context, id uuid.UUID, to domain.ClaimStatus) (*domain.Claim, error) {
	claim, err := withConn(ctx, s.session, "update_status", func(h H) (*domain.Claim, error) {
		return s.repo.UpdateStatus(ctx, h, id, to)
	})
	claimTransitions.WithLabelValues(string(to), transitionResult(err)).Inc()
	if err != nil {
		s.logFailure("update claim status", err,
			slog.String("claim_id", id.String()),
			slog.String("to", string(to)))
		return nil, err
	}

	s.logger.Info("claim status changed",
		slog.String("claim_id", id.String()),
		slog.String("status", string(claim.Status)))
	return claim, nil
}

// RecordAttempt appends the attempt to the claim's history and applies the
// status its outcome implies, both in one transaction. The claim must be
// Processing. A retryable outcome only appends the detail.
func (s *ClaimService[H]) RecordAttempt(ctx context.Context, id uuid.UUID, a domain.Attempt) (*domain.Claim, *domain.ClaimDetail, error) {
	target, ok := a.Outcome.TargetStatus()
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown outcome %q", domain.ErrInvalidPayload, a.Outcome)
	}
	payload := a.Detail(id)
	if err := payload.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		claim  *domain.Claim
		detail *domain.ClaimDetail
	)
	err := observe("record_attempt", func() error {
		return s.session.WithTx(ctx, func(h H) error {
			current, err := s.repo.GetForUpdate(ctx, h, id)
			if err != nil {
				return err
			}
			if current.Status != domain.StatusProcessing {
				return &domain.TransitionError{ClaimID: id, From: current.Status, To: target}
			}

			detail, err = s.repo.InsertDetail(ctx, h, payload)
			if err != nil {
				return err
			}
			if target == domain.StatusProcessing {
				claim = current
				return nil
			}
			claim, err = s.repo.UpdateStatus(ctx, h, id, target)
			return err
		})
	})
	if target != domain.StatusProcessing {
		claimTransitions.WithLabelValues(string(target), transitionResult(err)).Inc()
	}
	if err != nil {
		s.logFailure("record attempt", err,
			slog.String("claim_id", id.String()),
			slog.String("outcome", string(a.Outcome)),
			slog.String("transaction_hash", a.TransactionHash))
		return nil, nil, err
	}

	s.logger.Info("attempt recorded",
		slog.String("claim_id", id.String()),
		slog.String("detail_id", detail.ID.String()),
		slog.String("transaction_hash", detail.TransactionHash),
		slog.String("status", string(claim.Status)))
	return claim, detail, nil
}

// logFailure logs domain rejections at Warn and store failures at Error.
func (s *ClaimService[H]) logFailure(msg string, err error, attrs ...slog.Attr) {
	level := slog.LevelError
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrInvalidPayload) {
		level = slog.LevelWarn
	}
	attrs = append(attrs, slog.String("error", err.Error()), slog.Bool("retryable", domain.IsRetryable(err)))
	s.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func claimCacheKey(id uuid.UUID) string {
	return "reward_claim:" + id.String()
}
