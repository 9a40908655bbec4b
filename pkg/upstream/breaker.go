package upstream

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerSettings configures a provider circuit breaker.
type BreakerSettings struct {
	// Failures is the number of consecutive failures that opens the breaker.
	// Zero disables the breaker.
	Failures uint32
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
}

// Breaker guards a single provider. A nil *Breaker passes calls through.
type Breaker struct {
	provider string
	cb       *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker for provider. It returns nil when the
// settings disable breaking.
func NewBreaker(provider string, s BreakerSettings, logger *logrus.Entry) *Breaker {
	if s.Failures == 0 {
		return nil
	}
	if logger == nil {
		logger = logrus.WithField("component", "breaker")
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"provider": name,
				"from":     from.String(),
				"to":       to.String(),
			}).Warn("circuit breaker state change")
		},
	})
	return &Breaker{provider: provider, cb: cb}
}

// Do runs fn through the breaker. An open breaker fails fast with a generic
// upstream error; errors from fn are classified against the provider.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	if b == nil {
		out, err := fn(ctx)
		if err != nil {
			return "", Classify("", err)
		}
		return out, nil
	}

	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return "", Classify(b.provider, err)
	}
	return res.(string), nil
}

// State returns the breaker state name, "disabled" for a nil breaker.
func (b *Breaker) State() string {
	if b == nil {
		return "disabled"
	}
	return b.cb.State().String()
}

// IsOpen reports whether err is a breaker rejection rather than a call that
// reached the provider.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
