package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// HandlerFunc processes one job payload. Returning nil acknowledges the
// job; a plain error reschedules it; a Terminal error drops it.
type HandlerFunc func(ctx context.Context, payload []byte) error

// ErrorFunc observes job failures. It is called for every failed attempt,
// terminal or not.
type ErrorFunc func(kind string, payload []byte, err error)

// Queue dispatches background jobs to registered handlers. Handlers must
// be registered before Start; delivery is at-least-once, so handlers are
// expected to be idempotent.
type Queue interface {
	Enqueue(kind string, payload any) error
	Register(kind string, handler HandlerFunc)
	OnError(fn ErrorFunc)
	Start()
	Stop()
}

// ErrTerminal marks a job failure that retrying cannot fix, such as a
// malformed payload or a permanently rejected delivery.
var ErrTerminal = errors.New("terminal job failure")

// Terminal wraps err so the queue drops the job instead of retrying it.
func Terminal(err error) error {
	return fmt.Errorf("%w: %w", ErrTerminal, err)
}

// Terminalf is Terminal with formatting.
func Terminalf(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrTerminal, fmt.Errorf(format, args...))
}

// IsTerminal reports whether err should stop retries.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrTerminal)
}

const maxAttempts = 10

// retryDelays is indexed by the attempt count so far. Attempts past the
// end of the slice reuse the last delay.
var retryDelays = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	60 * time.Minute,
	240 * time.Minute,
	1440 * time.Minute,
}

func retryDelay(attempts int) time.Duration {
	if attempts >= len(retryDelays) {
		return retryDelays[len(retryDelays)-1]
	}
	return retryDelays[attempts]
}
