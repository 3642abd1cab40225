package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings mirrors the configurable subset of gobreaker.Settings.
type BreakerSettings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// Breaker fails fast while the wrapped provider keeps failing.
type Breaker struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Provider, s BreakerSettings, log Logger) *Breaker {
	threshold := s.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// An empty answer says nothing about backend health.
			return err == nil || errors.Is(err, ErrEmptyCompletion)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.Warn("circuit breaker state changed", map[string]interface{}{
					"provider": name,
					"from":     from.String(),
					"to":       to.String(),
				})
			}
		},
	}

	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) Name() string { return b.next.Name() }

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Healthy reports whether p can currently take a completion. An open breaker
// is unhealthy; a Failover is unhealthy only when both sides are.
func Healthy(p Provider) error {
	switch v := p.(type) {
	case *Breaker:
		if v.State() == gobreaker.StateOpen {
			return fmt.Errorf("%w: %s: circuit open", ErrProviderUnavailable, v.Name())
		}
		return nil
	case *Failover:
		primaryErr := Healthy(v.Primary)
		if primaryErr == nil {
			return nil
		}
		secondaryErr := Healthy(v.Secondary)
		if secondaryErr == nil {
			return nil
		}
		return errors.Join(primaryErr, secondaryErr)
	default:
		return nil
	}
}

func (b *Breaker) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", providerError(ErrProviderUnavailable, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, b.next.Name(), err))
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
