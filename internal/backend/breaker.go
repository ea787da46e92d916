package backend

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
)

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32
	// Interval is the cyclic period after which closed-state counts reset.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// MinRequests is the number of calls needed before the ratio applies.
	MinRequests uint32
	// FailureRatio trips the breaker when reached.
	FailureRatio float64
}

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("backend circuit breaker is open")

func newBreaker(cfg BreakerConfig, logger observability.Logger, metrics *Metrics) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        "backend",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			metrics.SetBreakerState(from.String(), to.String(), stateValue(to))
		},
		// a caller going away says nothing about the provider
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
