package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var ErrCircuitOpen = errors.New("llm circuit breaker is open")

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	ResetTimeout     time.Duration
}

var DefaultBreakerConfig = BreakerConfig{
	Name:             "llm",
	FailureThreshold: 5,
	ResetTimeout:     30 * time.Second,
}

// Breaker stops calling a failing provider until ResetTimeout has passed.
type Breaker struct {
	next LLMClient
	cb   *gobreaker.CircuitBreaker
}

var _ LLMClient = (*Breaker)(nil)

func NewBreaker(next LLMClient, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	logger = logger.Named("breaker")
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A cancelled caller says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", ErrCircuitOpen
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (b *Breaker) State() string {
	return b.cb.State().String()
}
