package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnknownDestination is returned by a sink that has no route for a channel.
var ErrUnknownDestination = errors.New("unknown destination")

// Publisher delivers a rendered report to a logical channel.
type Publisher interface {
	Publish(ctx context.Context, destination, text string) error
}

// Fanout publishes to every sink that knows the destination. It fails when
// any routed sink fails, or when no sink routes the destination. A failure
// after another sink delivered is still a failure, so a retry resends to the
// sinks that already succeeded.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, destination, text string) error {
	var (
		errs      []error
		delivered int
	)
	for _, p := range f {
		err := p.Publish(ctx, destination, text)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrUnknownDestination):
		default:
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if delivered == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, destination)
	}
	return nil
}

// WriterPublisher prints reports instead of sending them. Used for dry runs.
type WriterPublisher struct {
	mu sync.Mutex
	W  io.Writer
}

func (w *WriterPublisher) Publish(_ context.Context, destination, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.W, "===== #%s =====\n%s\n\n", destination, text)
	return err
}

// sendWithRetry retries send with exponential backoff starting at base.
func sendWithRetry(ctx context.Context, sink string, maxRetries int, base time.Duration, send func() error) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := send(); err != nil {
			lastErr = err
			if i == maxRetries {
				break
			}
			backoff := time.Duration(1<<uint(i)) * base
			log.Warn().Err(err).Str("sink", sink).
				Int("attempt", i+1).Int("max", maxRetries+1).Dur("backoff", backoff).
				Msg("send failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d attempts exhausted: %w", maxRetries+1, lastErr)
}
