package ai

import (
	"context"
	"log/slog"
	"time"

	"snapgram/internal/observability"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerSettings tunes when the breaker opens and how long it stays open.
type BreakerSettings struct {
	MaxConsecutiveFailures uint32
	OpenTimeout            time.Duration
	HalfOpenRequests       uint32
}

// DefaultBreakerSettings opens after 5 consecutive failures and probes again
// after 30 seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxConsecutiveFailures: 5,
		OpenTimeout:            30 * time.Second,
		HalfOpenRequests:       1,
	}
}

// BreakerGenerator stops calling a failing model until it has had time to
// recover. Rejected calls fail with gobreaker.ErrOpenState or
// gobreaker.ErrTooManyRequests.
type BreakerGenerator struct {
	next TextGenerator
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreakerGenerator wraps next in a circuit breaker named name.
func NewBreakerGenerator(name string, next TextGenerator, s BreakerSettings) *BreakerGenerator {
	observability.AIBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("ai breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			observability.AIBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &BreakerGenerator{next: next, cb: cb}
}

func (b *BreakerGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Generate(ctx, prompt)
	})
}

// State reports the breaker's current state.
func (b *BreakerGenerator) State() gobreaker.State {
	return b.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
