package external

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"readshelf/internal/candidate"
	"readshelf/internal/logging"
	"readshelf/internal/metrics"
)

// BreakerSettings tunes the per-provider circuit breaker.
type BreakerSettings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// breakerProvider guards a Provider with a circuit breaker and records call metrics.
type breakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker[[]candidate.Candidate]
}

// WithBreaker wraps p so repeated failures stop hitting the upstream for a while.
func WithBreaker(p Provider, s BreakerSettings) Provider {
	name := p.Name()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]candidate.Candidate](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			logging.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("provider circuit breaker state change")
		},
		// a caller giving up is not the provider's fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &breakerProvider{next: p, cb: cb}
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

func (b *breakerProvider) Name() string { return b.next.Name() }

func (b *breakerProvider) Search(ctx context.Context, query string, limit int) ([]candidate.Candidate, error) {
	return b.call(func() ([]candidate.Candidate, error) {
		return b.next.Search(ctx, query, limit)
	})
}

func (b *breakerProvider) Lookup(ctx context.Context, title, author string, limit int) ([]candidate.Candidate, error) {
	return b.call(func() ([]candidate.Candidate, error) {
		return b.next.Lookup(ctx, title, author, limit)
	})
}

func (b *breakerProvider) call(fn func() ([]candidate.Candidate, error)) ([]candidate.Candidate, error) {
	start := time.Now()
	items, err := b.cb.Execute(fn)

	outcome := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
	case err != nil:
		outcome = "failure"
	}
	metrics.RecordProviderCall(b.Name(), outcome, time.Since(start))
	return items, err
}
