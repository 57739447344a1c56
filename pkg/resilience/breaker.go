// Package resilience holds the retry and circuit breaker policies used for outbound calls.
package resilience

import (
	"github.com/bazaarhq/bazaar/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// NewCircuitBreaker builds a breaker that opens after cfg.ConsecutiveFailures consecutive
// failures, or when the failure rate exceeds cfg.ErrorRatePercent. isSuccessful decides
// which errors count against the remote side; nil counts every error.
func NewCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, isSuccessful func(error) bool) *gobreaker.CircuitBreaker[T] {
	halfOpen := cfg.HalfOpenRequests
	if halfOpen == 0 {
		halfOpen = 1
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:         name,
		MaxRequests:  halfOpen,
		Timeout:      cfg.OpenTimeout,
		ReadyToTrip:  readyToTrip(cfg),
		IsSuccessful: isSuccessful,
	})
}

func readyToTrip(cfg config.CircuitBreakerConfig) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
			return true
		}
		if cfg.ErrorRatePercent == 0 || counts.Requests < cfg.ConsecutiveFailures {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests)*100 > float64(cfg.ErrorRatePercent)
	}
}
