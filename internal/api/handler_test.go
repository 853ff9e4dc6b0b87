package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/punchamoorthee/rewardclaims/internal/domain"
	"github.com/punchamoorthee/rewardclaims/internal/service"
	"github.com/punchamoorthee/rewardclaims/internal/store"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRouterWithDB(t *testing.T) *mux.Router {
	t.Helper()
	// Use a per-test in-memory database to avoid cross-test interference
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	svc := service.NewClaimService[*gorm.DB](store.NewGormRepository(), store.NewGormSession(db, 5*time.Second), quietLogger())
	return NewRouter(NewHandler(svc, quietLogger()))
}

func httpDo(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestClaimFlow(t *testing.T) {
	r := setupRouterWithDB(t)
	missionID, userID := uuid.New(), uuid.New()

	// Open
	w := httpDo(r, "POST", "/api/v1/claims", domain.NewClaimPayload{MissionID: missionID, UserID: userID})
	require.Equal(t, http.StatusCreated, w.Code)
	claim := decode[domain.ClaimResponse](t, w)
	require.Equal(t, "pending", claim.Status)
	require.Equal(t, missionID.String(), claim.MissionID)
	require.Equal(t, "/api/v1/claims/"+claim.ID, w.Header().Get("Location"))

	// Second open returns the existing claim
	w = httpDo(r, "POST", "/api/v1/claims", domain.NewClaimPayload{MissionID: missionID, UserID: userID})
	require.Equal(t, http.StatusConflict, w.Code)
	conflict := decode[conflictResponse](t, w)
	require.Equal(t, claim.ID, conflict.Claim.ID)

	// Processing
	w = httpDo(r, "POST", "/api/v1/claims/"+claim.ID+"/processing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "processing", decode[domain.ClaimResponse](t, w).Status)

	// Processing again loses
	w = httpDo(r, "POST", "/api/v1/claims/"+claim.ID+"/processing", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	// Confirmed attempt
	w = httpDo(r, "POST", "/api/v1/claims/"+claim.ID+"/attempts", domain.Attempt{
		TransactionHash:  "0xabc",
		RecipientUserID:  userID,
		RecipientAddress: "alice.testnet",
		Outcome:          domain.OutcomeConfirmed,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	recorded := decode[attemptResponse](t, w)
	require.Equal(t, "completed", recorded.Claim.Status)
	require.Equal(t, "0xabc", recorded.Detail.TransactionHash)

	// Read back
	w = httpDo(r, "GET", "/api/v1/claims/"+claim.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "completed", decode[domain.ClaimResponse](t, w).Status)

	w = httpDo(r, "GET", "/api/v1/claims/"+claim.ID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[domain.ClaimWithDetailsResponse](t, w)
	require.Len(t, history.Details, 1)
	require.Equal(t, claim.ID, history.Details[0].ClaimID)

	w = httpDo(r, "GET", fmt.Sprintf("/api/v1/claims/lookup?mission_id=%s&user_id=%s", missionID, userID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, claim.ID, decode[domain.ClaimResponse](t, w).ID)

	w = httpDo(r, "GET", "/api/v1/claims", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[[]domain.ClaimResponse](t, w), 1)

	// Terminal
	w = httpDo(r, "POST", "/api/v1/claims/"+claim.ID+"/fail", nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestFailThenReclaim(t *testing.T) {
	r := setupRouterWithDB(t)
	p := domain.NewClaimPayload{MissionID: uuid.New(), UserID: uuid.New()}

	w := httpDo(r, "POST", "/api/v1/claims", p)
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[domain.ClaimResponse](t, w)

	w = httpDo(r, "POST", "/api/v1/claims/"+first.ID+"/fail", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "failed", decode[domain.ClaimResponse](t, w).Status)

	w = httpDo(r, "POST", "/api/v1/claims", p)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotEqual(t, first.ID, decode[domain.ClaimResponse](t, w).ID)
}

func TestRequestValidation(t *testing.T) {
	r := setupRouterWithDB(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"open missing user", "POST", "/api/v1/claims", map[string]string{"mission_id": uuid.NewString()}, http.StatusUnprocessableEntity},
		{"open malformed id", "POST", "/api/v1/claims", map[string]string{"mission_id": "nope"}, http.StatusBadRequest},
		{"get bad id", "GET", "/api/v1/claims/not-a-uuid", nil, http.StatusBadRequest},
		{"get unknown", "GET", "/api/v1/claims/" + uuid.NewString(), nil, http.StatusNotFound},
		{"history unknown", "GET", "/api/v1/claims/" + uuid.NewString() + "/history", nil, http.StatusNotFound},
		{"lookup missing params", "GET", "/api/v1/claims/lookup", nil, http.StatusBadRequest},
		{"lookup unknown", "GET", "/api/v1/claims/lookup?mission_id=" + uuid.NewString() + "&user_id=" + uuid.NewString(), nil, http.StatusNotFound},
		{"processing unknown", "POST", "/api/v1/claims/" + uuid.NewString() + "/processing", nil, http.StatusNotFound},
		{"attempt bad outcome", "POST", "/api/v1/claims/" + uuid.NewString() + "/attempts", map[string]string{
			"transaction_hash":  "0x1",
			"recipient_user_id": uuid.NewString(),
			"recipient_address": "a.testnet",
			"outcome":           "lost",
		}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httpDo(r, tt.method, tt.path, tt.body)
			require.Equal(t, tt.want, w.Code, w.Body.String())
			require.Contains(t, decode[map[string]any](t, w), "error")
		})
	}
}

// stubClaims fails every call with err.
type stubClaims struct{ err error }

func (s stubClaims) Open(context.Context, domain.NewClaimPayload) (*domain.Claim, error) {
	return nil, s.err
}
func (s stubClaims) Get(context.Context, uuid.UUID) (*domain.Claim, error) { return nil, s.err }
func (s stubClaims) Lookup(context.Context, uuid.UUID, uuid.UUID) (*domain.Claim, error) {
	return nil, s.err
}
func (s stubClaims) List(context.Context) ([]domain.Claim, error) { return nil, s.err }
func (s stubClaims) History(context.Context, uuid.UUID) (*service.ClaimHistory, error) {
	return nil, s.err
}
func (s stubClaims) StartProcessing(context.Context, uuid.UUID) (*domain.Claim, error) {
	return nil, s.err
}
func (s stubClaims) Fail(context.Context, uuid.UUID) (*domain.Claim, error) { return nil, s.err }
func (s stubClaims) RecordAttempt(context.Context, uuid.UUID, domain.Attempt) (*domain.Claim, *domain.ClaimDetail, error) {
	return nil, nil, s.err
}

func TestStoreErrorsMapToStatus(t *testing.T) {
	transient := fmt.Errorf("%w: acquire connection: %w", domain.ErrTransientStore, context.DeadlineExceeded)
	r := NewRouter(NewHandler(stubClaims{err: transient}, quietLogger()))

	w := httpDo(r, "GET", "/api/v1/claims", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))

	broken := fmt.Errorf("%w: list claims: %w", domain.ErrPersistence, errors.New("relation does not exist"))
	r = NewRouter(NewHandler(stubClaims{err: broken}, quietLogger()))

	w = httpDo(r, "GET", "/api/v1/claims", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Internal Server Error", decode[map[string]string](t, w)["error"])
	require.NotContains(t, w.Body.String(), "relation")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrAlreadyClaimed, http.StatusConflict},
		{&domain.TransitionError{From: domain.StatusCompleted, To: domain.StatusFailed}, http.StatusConflict},
		{fmt.Errorf("%w: mission_id is required", domain.ErrInvalidPayload), http.StatusUnprocessableEntity},
		{domain.ErrTransientStore, http.StatusServiceUnavailable},
		{domain.ErrPersistence, http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := NewRouter(NewHandler(stubClaims{}, quietLogger()))

	w := httpDo(r, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	httpDo(r, "GET", "/api/v1/claims", nil)
	w = httpDo(r, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "reward_claim_http_requests_total")
}
