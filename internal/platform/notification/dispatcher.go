package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultDeliveryTimeout = 10 * time.Second

// Dispatcher is the only way operations reach the Sink. Neither Deliver nor
// Dispatch returns an error: a failed notification is logged and the
// triggering operation carries on.
type Dispatcher struct {
	sink    Sink
	logger  zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sink Sink, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{sink: sink, logger: logger, timeout: defaultDeliveryTimeout}
}

// Deliver sends msg synchronously and reports whether it was stored.
func (d *Dispatcher) Deliver(ctx context.Context, msg Message) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.safeNotify(ctx, msg)
	if err != nil {
		d.logger.Warn().Err(err).
			Str("user_id", msg.UserID.String()).
			Str("type", string(msg.Type)).
			Msg("notification delivery failed")
		return false
	}
	return true
}

// Dispatch sends msg in the background. The request context's cancellation
// does not abort delivery; values such as the request id are kept.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Deliver(detached, msg)
	}()
}

// Wait blocks until background deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		d.logger.Warn().Msg("gave up waiting for pending notifications")
	}
}

func (d *Dispatcher) safeNotify(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	return d.sink.Notify(ctx, msg)
}

type panicError struct{ v interface{} }

func (p panicError) Error() string {
	return fmt.Sprintf("notification sink panicked: %v", p.v)
}
