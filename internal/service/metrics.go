package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/rewardclaims/internal/domain"
)

var (
	claimTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reward_claim_transitions_total",
		Help: "Claim status transitions by target status and result",
	}, []string{"to", "result"})

	storeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reward_claim_store_duration_seconds",
		Help:    "Duration of claim store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

func observe(op string, fn func() error) error {
	timer := prometheus.NewTimer(storeDuration.WithLabelValues(op))
	defer timer.ObserveDuration()
	return fn()
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "rejected"
	default:
		return "error"
	}
}
