package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/punchamoorthee/rewardclaims/internal/domain"
	"github.com/stretchr/testify/require"
)

type contractEnv[H any] struct {
	repo    Repository[H]
	session Session[H]
}

func withConn[H, T any](env contractEnv[H], fn func(h H) (T, error)) (T, error) {
	var out T
	err := env.session.WithConn(context.Background(), func(h H) error {
		var err error
		out, err = fn(h)
		return err
	})
	return out, err
}

func insertClaim[H any](t *testing.T, env contractEnv[H], missionID, userID uuid.UUID) *domain.Claim {
	t.Helper()
	claim, err := withConn(env, func(h H) (*domain.Claim, error) {
		return env.repo.Insert(context.Background(), h, domain.NewClaimPayload{MissionID: missionID, UserID: userID})
	})
	require.NoError(t, err)
	return claim
}

func updateStatus[H any](env contractEnv[H], id uuid.UUID, st domain.ClaimStatus) (*domain.Claim, error) {
	return withConn(env, func(h H) (*domain.Claim, error) {
		return env.repo.UpdateStatus(context.Background(), h, id, st)
	})
}

func getClaim[H any](t *testing.T, env contractEnv[H], id uuid.UUID) *domain.Claim {
	t.Helper()
	claim, err := withConn(env, func(h H) (*domain.Claim, error) {
		return env.repo.Get(context.Background(), h, id)
	})
	require.NoError(t, err)
	return claim
}

func listDetails[H any](t *testing.T, env contractEnv[H], claimID uuid.UUID) []domain.ClaimDetail {
	t.Helper()
	details, err := withConn(env, func(h H) ([]domain.ClaimDetail, error) {
		return env.repo.ListDetails(context.Background(), h, claimID)
	})
	require.NoError(t, err)
	return details
}

func runRepositoryContract[H any](t *testing.T, newEnv func(t *testing.T) contractEnv[H]) {
	ctx := context.Background()

	t.Run("InsertThenGetIsPending", func(t *testing.T) {
		env := newEnv(t)
		missionID, userID := uuid.New(), uuid.New()

		inserted := insertClaim(t, env, missionID, userID)
		require.NotEqual(t, uuid.Nil, inserted.ID)

		got := getClaim(t, env, inserted.ID)
		require.Equal(t, inserted.ID, got.ID)
		require.Equal(t, missionID, got.MissionID)
		require.Equal(t, userID, got.UserID)
		require.Equal(t, domain.StatusPending, got.Status)
		require.False(t, got.CreatedAt.IsZero())
		require.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("InsertRejectsSecondLiveClaim", func(t *testing.T) {
		env := newEnv(t)
		missionID, userID := uuid.New(), uuid.New()
		first := insertClaim(t, env, missionID, userID)

		_, err := withConn(env, func(h H) (*domain.Claim, error) {
			return env.repo.Insert(ctx, h, domain.NewClaimPayload{MissionID: missionID, UserID: userID})
		})
		require.ErrorIs(t, err, domain.ErrConflict)

		_, err = updateStatus(env, first.ID, domain.StatusProcessing)
		require.NoError(t, err)
		_, err = withConn(env, func(h H) (*domain.Claim, error) {
			return env.repo.Insert(ctx, h, domain.NewClaimPayload{MissionID: missionID, UserID: userID})
		})
		require.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("InsertRejectsInvalidPayload", func(t *testing.T) {
		env := newEnv(t)
		_, err := withConn(env, func(h H) (*domain.Claim, error) {
			return env.repo.Insert(ctx, h, domain.NewClaimPayload{UserID: uuid.New()})
		})
		require.ErrorIs(t, err, domain.ErrInvalidPayload)
	})

	t.Run("ReclaimAfterFailure", func(t *testing.T) {
		env := newEnv(t)
		missionID, userID := uuid.New(), uuid.New()
		first := insertClaim(t, env, missionID, userID)

		_, err := updateStatus(env, first.ID, domain.StatusProcessing)
		require.NoError(t, err)
		_, err = updateStatus(env, first.ID, domain.StatusFailed)
		require.NoError(t, err)

		second := insertClaim(t, env, missionID, userID)
		require.NotEqual(t, first.ID, second.ID)

		got, err := withConn(env, func(h H) (*domain.Claim, error) {
			return env.repo.GetByMissionAndUser(ctx, h, missionID, userID)
		})
		require.NoError(t, err)
		require.Equal(t, second.ID, got.ID)
		require.Equal(t, domain.StatusPending, got.Status)

		require.Equal(t, domain.StatusFailed, getClaim(t, env, first.ID).Status)
	})

	t.Run("LookupFallsBackToFailedClaim", func(t *testing.T) {
		env := newEnv(t)
		missionID, userID := uuid.New(), uuid.New()
		claim := insertClaim(t, env, missionID, userID)
		_, err := updateStatus(env, claim.ID, domain.StatusFailed)
		require.NoError(t, err)

		got, err := withConn(env, func(h H) (*domain.Claim, error) {
			return env.repo.GetByMissionAndUser(ctx, h, missionID, userID)
		})
		require.NoError(t, err)
		require.Equal(t, claim.ID, got.ID)
		require.Equal(t, domain.StatusFailed, got.Status)
	})

	t.Run("MissingClaimIsNotFound", func(t *testing.T) {
		env := newEnv(t)
		_, err := withConn(env, func(h H) (*domain.Claim, error) {
			return env.repo.Get(ctx, h, uuid.New())
		})
		require.ErrorIs(t, err, domain.ErrNotFound)

		_, err = withConn(env, func(h H) (*domain.Claim, error) {
			return env.repo.GetByMissionAndUser(ctx, h, uuid.New(), uuid.New())
		})
		require.ErrorIs(t, err, domain.ErrNotFound)

		_, err = updateStatus(env, uuid.New(), domain.StatusProcessing)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("TransitionRules", func(t *testing.T) {
		env := newEnv(t)
		claim := insertClaim(t, env, uuid.New(), uuid.New())

		_, err := updateStatus(env, claim.ID, domain.StatusCompleted)
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
		var te *domain.TransitionError
		require.True(t, errors.As(err, &te))
		require.Equal(t, domain.StatusPending, te.From)
		require.Equal(t, domain.StatusCompleted, te.To)

		processing, err := updateStatus(env, claim.ID, domain.StatusProcessing)
		require.NoError(t, err)
		require.Equal(t, domain.StatusProcessing, processing.Status)
		require.False(t, processing.UpdatedAt.Before(claim.UpdatedAt))

		completed, err := updateStatus(env, claim.ID, domain.StatusCompleted)
		require.NoError(t, err)
		require.Equal(t, domain.StatusCompleted, completed.Status)

		for _, next := range []domain.ClaimStatus{domain.StatusPending, domain.StatusProcessing, domain.StatusFailed, domain.StatusCompleted} {
			_, err := updateStatus(env, claim.ID, next)
			require.ErrorIs(t, err, domain.ErrInvalidTransition, "completed -> %s", next)
		}
		require.Equal(t, domain.StatusCompleted, getClaim(t, env, claim.ID).Status)
	})

	t.Run("FailedIsTerminal", func(t *testing.T) {
		env := newEnv(t)
		claim := insertClaim(t, env, uuid.New(), uuid.New())
		_, err := updateStatus(env, claim.ID, domain.StatusFailed)
		require.NoError(t, err)

		for _, next := range []domain.ClaimStatus{domain.StatusPending, domain.StatusProcessing, domain.StatusCompleted, domain.StatusFailed} {
			_, err := updateStatus(env, claim.ID, next)
			require.ErrorIs(t, err, domain.ErrInvalidTransition, "failed -> %s", next)
		}
	})

	t.Run("UnknownStatusIsRejected", func(t *testing.T) {
		env := newEnv(t)
		claim := insertClaim(t, env, uuid.New(), uuid.New())
		_, err := updateStatus(env, claim.ID, domain.ClaimStatus("refunded"))
		require.ErrorIs(t, err, domain.ErrInvalidTransition)
		require.Equal(t, domain.StatusPending, getClaim(t, env, claim.ID).Status)
	})

	t.Run("DetailAndStatusCommitTogether", func(t *testing.T) {
		env := newEnv(t)
		userID := uuid.New()
		claim := insertClaim(t, env, uuid.New(), userID)
		_, err := updateStatus(env, claim.ID, domain.StatusProcessing)
		require.NoError(t, err)

		err = env.session.WithTx(ctx, func(h H) error {
			if _, err := env.repo.InsertDetail(ctx, h, domain.NewClaimDetailPayload{
				ClaimID:          claim.ID,
				TransactionHash:  "0xabc",
				RecipientUserID:  userID,
				RecipientAddress: "alice.testnet",
			}); err != nil {
				return err
			}
			_, err := env.repo.UpdateStatus(ctx, h, claim.ID, domain.StatusCompleted)
			return err
		})
		require.NoError(t, err)

		require.Equal(t, domain.StatusCompleted, getClaim(t, env, claim.ID).Status)
		details := listDetails(t, env, claim.ID)
		require.Len(t, details, 1)
		require.Equal(t, "0xabc", details[0].TransactionHash)
		require.Equal(t, claim.ID, details[0].ClaimID)
		require.Equal(t, userID, details[0].RecipientUserID)
		require.Equal(t, "alice.testnet", details[0].RecipientAddress)
	})

	t.Run("RollbackDiscardsDetailAndStatus", func(t *testing.T) {
		env := newEnv(t)
		claim := insertClaim(t, env, uuid.New(), uuid.New())
		_, err := updateStatus(env, claim.ID, domain.StatusProcessing)
		require.NoError(t, err)

		boom := errors.New("boom")
		err = env.session.WithTx(ctx, func(h H) error {
			if _, err := env.repo.InsertDetail(ctx, h, domain.NewClaimDetailPayload{
				ClaimID:          claim.ID,
				TransactionHash:  "0xdead",
				RecipientUserID:  claim.UserID,
				RecipientAddress: "bob.testnet",
			}); err != nil {
				return err
			}
			if _, err := env.repo.UpdateStatus(ctx, h, claim.ID, domain.StatusCompleted); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		require.Equal(t, domain.StatusProcessing, getClaim(t, env, claim.ID).Status)
		require.Empty(t, listDetails(t, env, claim.ID))
	})

	t.Run("MultipleAttemptsAreKept", func(t *testing.T) {
		env := newEnv(t)
		claim := insertClaim(t, env, uuid.New(), uuid.New())
		for _, hash := range []string{"0x01", "0x02", "0x03"} {
			_, err := withConn(env, func(h H) (*domain.ClaimDetail, error) {
				return env.repo.InsertDetail(ctx, h, domain.NewClaimDetailPayload{
					ClaimID:          claim.ID,
					TransactionHash:  hash,
					RecipientUserID:  claim.UserID,
					RecipientAddress: "carol.testnet",
				})
			})
			require.NoError(t, err)
		}

		details := listDetails(t, env, claim.ID)
		require.Len(t, details, 3)
		hashes := map[string]bool{}
		for _, d := range details {
			hashes[d.TransactionHash] = true
		}
		require.Equal(t, map[string]bool{"0x01": true, "0x02": true, "0x03": true}, hashes)
	})

	t.Run("DetailForMissingClaimIsNotFound", func(t *testing.T) {
		env := newEnv(t)
		_, err := withConn(env, func(h H) (*domain.ClaimDetail, error) {
			return env.repo.InsertDetail(ctx, h, domain.NewClaimDetailPayload{
				ClaimID:          uuid.New(),
				TransactionHash:  "0xabc",
				RecipientUserID:  uuid.New(),
				RecipientAddress: "nobody.testnet",
			})
		})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("GetForUpdateInsideTransaction", func(t *testing.T) {
		env := newEnv(t)
		claim := insertClaim(t, env, uuid.New(), uuid.New())

		var locked *domain.Claim
		err := env.session.WithTx(ctx, func(h H) error {
			var err error
			locked, err = env.repo.GetForUpdate(ctx, h, claim.ID)
			return err
		})
		require.NoError(t, err)
		require.Equal(t, claim.ID, locked.ID)

		err = env.session.WithTx(ctx, func(h H) error {
			_, err := env.repo.GetForUpdate(ctx, h, uuid.New())
			return err
		})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ConcurrentProcessingHasOneWinner", func(t *testing.T) {
		env := newEnv(t)
		claim := insertClaim(t, env, uuid.New(), uuid.New())

		const workers = 8
		errs := make([]error, workers)
		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func(i int) {
				defer wg.Done()
				_, errs[i] = updateStatus(env, claim.ID, domain.StatusProcessing)
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
				continue
			}
			require.ErrorIs(t, err, domain.ErrInvalidTransition)
		}
		require.Equal(t, 1, winners)
		require.Equal(t, domain.StatusProcessing, getClaim(t, env, claim.ID).Status)
	})

	t.Run("ListIsStable", func(t *testing.T) {
		env := newEnv(t)
		ids := map[uuid.UUID]bool{}
		for i := 0; i < 3; i++ {
			ids[insertClaim(t, env, uuid.New(), uuid.New()).ID] = true
		}

		list := func() []domain.Claim {
			claims, err := withConn(env, func(h H) ([]domain.Claim, error) {
				return env.repo.List(ctx, h)
			})
			require.NoError(t, err)
			return claims
		}
		first, second := list(), list()
		require.Equal(t, first, second)

		found := 0
		for _, c := range first {
			if ids[c.ID] {
				found++
			}
		}
		require.Equal(t, 3, found)
	})
}
