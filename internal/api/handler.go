package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/punchamoorthee/rewardclaims/internal/domain"
	"github.com/punchamoorthee/rewardclaims/internal/service"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_claim_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reward_claim_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// ClaimManager is the claim lifecycle as the HTTP layer sees it.
type ClaimManager interface {
	Open(ctx context.Context, p domain.NewClaimPayload) (*domain.Claim, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Claim, error)
	Lookup(ctx context.Context, missionID, userID uuid.UUID) (*domain.Claim, error)
	List(ctx context.Context) ([]domain.Claim, error)
	History(ctx context.Context, id uuid.UUID) (*service.ClaimHistory, error)
	StartProcessing(ctx context.Context, id uuid.UUID) (*domain.Claim, error)
	Fail(ctx context.Context, id uuid.UUID) (*domain.Claim, error)
	RecordAttempt(ctx context.Context, id uuid.UUID, a domain.Attempt) (*domain.Claim, *domain.ClaimDetail, error)
}

type Handler struct {
	claims ClaimManager
	logger *slog.Logger
}

func NewHandler(claims ClaimManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{claims: claims, logger: logger}
}

// NewRouter wires the claim routes under /api/v1 plus /metrics and /health.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/claims", h.OpenClaim).Methods("POST")
	apiV1.HandleFunc("/claims", h.ListClaims).Methods("GET")
	apiV1.HandleFunc("/claims/lookup", h.LookupClaim).Methods("GET")
	apiV1.HandleFunc("/claims/{id}", h.GetClaim).Methods("GET")
	apiV1.HandleFunc("/claims/{id}/history", h.GetClaimHistory).Methods("GET")
	apiV1.HandleFunc("/claims/{id}/processing", h.StartProcessing).Methods("POST")
	apiV1.HandleFunc("/claims/{id}/fail", h.FailClaim).Methods("POST")
	apiV1.HandleFunc("/claims/{id}/attempts", h.RecordAttempt).Methods("POST")
	return r
}

type attemptResponse struct {
	Claim  domain.ClaimResponse       `json:"claim"`
	Detail domain.ClaimDetailResponse `json:"detail"`
}

type conflictResponse struct {
	Error string               `json:"error"`
	Claim domain.ClaimResponse `json:"claim"`
}

func (h *Handler) OpenClaim(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/claims"
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req domain.NewClaimPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", endpoint)
		return
	}

	claim, err := h.claims.Open(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyClaimed) && claim != nil {
			h.respondJSON(w, http.StatusConflict, conflictResponse{
				Error: "Reward already claimed",
				Claim: domain.NewClaimResponse(*claim),
			}, "POST", endpoint)
			return
		}
		h.respondDomainError(w, err, "POST", endpoint)
		return
	}

	w.Header().Set("Location", "/api/v1/claims/"+claim.ID.String())
	h.respondJSON(w, http.StatusCreated, domain.NewClaimResponse(*claim), "POST", endpoint)
}

func (h *Handler) ListClaims(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/claims"
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	claims, err := h.claims.List(r.Context())
	if err != nil {
		h.respondDomainError(w, err, "GET", endpoint)
		return
	}

	resp := make([]domain.ClaimResponse, 0, len(claims))
	for _, c := range claims {
		resp = append(resp, domain.NewClaimResponse(c))
	}
	h.respondJSON(w, http.StatusOK, resp, "GET", endpoint)
}

func (h *Handler) LookupClaim(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/claims/lookup"
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	q := r.URL.Query()
	missionID, err := uuid.Parse(q.Get("mission_id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid mission_id", "GET", endpoint)
		return
	}
	userID, err := uuid.Parse(q.Get("user_id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid user_id", "GET", endpoint)
		return
	}

	claim, err := h.claims.Lookup(r.Context(), missionID, userID)
	if err != nil {
		h.respondDomainError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, domain.NewClaimResponse(*claim), "GET", endpoint)
}

func (h *Handler) GetClaim(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/claims/{id}"
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	id, ok := h.claimID(w, r, "GET", endpoint)
	if !ok {
		return
	}

	claim, err := h.claims.Get(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, domain.NewClaimResponse(*claim), "GET", endpoint)
}

func (h *Handler) GetClaimHistory(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/claims/{id}/history"
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	id, ok := h.claimID(w, r, "GET", endpoint)
	if !ok {
		return
	}

	history, err := h.claims.History(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, domain.NewClaimWithDetailsResponse(history.Claim, history.Details), "GET", endpoint)
}

func (h *Handler) StartProcessing(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "/claims/{id}/processing", h.claims.StartProcessing)
}

func (h *Handler) FailClaim(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "/claims/{id}/fail", h.claims.Fail)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, endpoint string, apply func(context.Context, uuid.UUID) (*domain.Claim, error)) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	id, ok := h.claimID(w, r, "POST", endpoint)
	if !ok {
		return
	}

	claim, err := apply(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, domain.NewClaimResponse(*claim), "POST", endpoint)
}

func (h *Handler) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/claims/{id}/attempts"
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	id, ok := h.claimID(w, r, "POST", endpoint)
	if !ok {
		return
	}

	var req domain.Attempt
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "POST", endpoint)
		return
	}

	claim, detail, err := h.claims.RecordAttempt(r.Context(), id, req)
	if err != nil {
		h.respondDomainError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, attemptResponse{
		Claim:  domain.NewClaimResponse(*claim),
		Detail: domain.NewClaimDetailResponse(*detail),
	}, "POST", endpoint)
}

// Helpers
func (h *Handler) claimID(w http.ResponseWriter, r *http.Request, method, endpoint string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid claim id", method, endpoint)
		return uuid.Nil, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransientStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error, method, endpoint string) {
	code := statusFor(err)
	switch code {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		h.respondError(w, code, "Store temporarily unavailable", method, endpoint)
	case http.StatusInternalServerError:
		h.logger.Error("request failed",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		h.respondError(w, code, "Internal Server Error", method, endpoint)
	default:
		h.respondError(w, code, err.Error(), method, endpoint)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
