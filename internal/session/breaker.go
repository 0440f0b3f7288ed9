package session

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrBreakerOpen is returned when the write breaker is open and a session
// save is skipped rather than attempted.
var ErrBreakerOpen = errors.New("session write breaker is open")

// writeBreaker wraps gobreaker around session-file writes. Working-memory
// saves are best-effort: once the disk starts failing there is no value in
// retrying on every single touch, so after three consecutive failures the
// breaker opens and writes are skipped for thirty seconds.
type writeBreaker struct {
	breaker *gobreaker.CircuitBreaker
}

func newWriteBreaker() *writeBreaker {
	settings := gobreaker.Settings{
		Name:        "SessionFileWriter",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &writeBreaker{breaker: gobreaker.NewCircuitBreaker(settings)}
}

// execute runs fn through the breaker. When the circuit is open it returns
// ErrBreakerOpen immediately without invoking fn.
func (b *writeBreaker) execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBreakerOpen
	}
	return err
}

// state returns the breaker state as a string for diagnostics.
func (b *writeBreaker) state() string {
	switch b.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
