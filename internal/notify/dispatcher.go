// Package notify announces site events to an external webhook in the
// background.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrStopped   = errors.New("dispatcher stopped")
)

// Sender delivers one event.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

// Options tunes a Dispatcher.
type Options struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	// RetryBase and RetryMax bound the default backoff: the first retry
	// waits about RetryBase and later ones double up to RetryMax.
	RetryBase time.Duration
	RetryMax  time.Duration
	// Backoff returns the wait before retry n (0-indexed). Defaults to
	// Backoff over RetryBase and RetryMax.
	Backoff func(attempt int) time.Duration
}

// Counts summarises delivery outcomes since start.
type Counts struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Queued    int   `json:"queued"`
}

// Dispatcher delivers events through a bounded queue and a fixed set of
// workers. Submit never blocks.
type Dispatcher struct {
	sender Sender
	log    *slog.Logger
	opts   Options
	queue  chan Event

	mu      sync.Mutex
	stopped bool

	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, opts Options, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = MaxAttempts
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultRetryBase
	}
	if opts.RetryMax < opts.RetryBase {
		opts.RetryMax = max(DefaultRetryMax, opts.RetryBase)
	}
	if opts.Backoff == nil {
		base, ceiling := opts.RetryBase, opts.RetryMax
		opts.Backoff = func(attempt int) time.Duration {
			return Backoff(base, ceiling, attempt)
		}
	}
	return &Dispatcher{
		sender: sender,
		log:    log,
		opts:   opts,
		queue:  make(chan Event, opts.QueueSize),
	}
}

// Start launches the workers. Cancelling ctx aborts deliveries in flight.
func (d *Dispatcher) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for range d.opts.Workers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for ev := range d.queue {
				d.deliver(workerCtx, ev)
			}
		}()
	}
}

// Stop refuses new events and waits for the queue to drain. If ctx ends
// first, deliveries in flight are cancelled and ctx's error is returned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if d.cancel != nil {
		d.cancel()
	}
	<-done
	return err
}

// Submit queues an event for delivery.
func (d *Dispatcher) Submit(ev Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	select {
	case d.queue <- ev:
		return nil
	default:
		d.dropped.Add(1)
		d.log.Warn("notification dropped", "event_id", ev.ID, "kind", ev.Kind, "queue_size", d.opts.QueueSize)
		return fmt.Errorf("%w (%d)", ErrQueueFull, d.opts.QueueSize)
	}
}

// Counts returns delivery totals and the current queue depth.
func (d *Dispatcher) Counts() Counts {
	return Counts{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
		Queued:    len(d.queue),
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	log := d.log.With("event_id", ev.ID, "kind", ev.Kind)

	var err error
	for attempt := range d.opts.MaxAttempts {
		err = d.sender.Send(ctx, ev)
		if err == nil {
			d.delivered.Add(1)
			log.Debug("notification delivered", "attempt", attempt+1)
			return
		}
		if !IsRetryable(err) || attempt == d.opts.MaxAttempts-1 {
			break
		}
		log.Warn("retryable notification error", "attempt", attempt+1, "error", err)
		select {
		case <-time.After(d.opts.Backoff(attempt)):
		case <-ctx.Done():
			err = ctx.Err()
			d.failed.Add(1)
			log.Error("notification abandoned", "error", err)
			return
		}
	}
	d.failed.Add(1)
	log.Error("notification failed", "error", err)
}

// Delivery defaults.
const (
	MaxAttempts      = 3
	DefaultRetryBase = time.Second
	DefaultRetryMax  = 30 * time.Second
)

// Backoff doubles base once per attempt (0-indexed), stops at ceiling, and
// adds up to half of that again as jitter.
func Backoff(base, ceiling time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	wait := base
	for range attempt {
		if wait >= ceiling {
			break
		}
		wait *= 2
	}
	wait = min(wait, ceiling)
	if half := int64(wait) / 2; half > 0 {
		wait += time.Duration(rand.Int64N(half))
	}
	return wait
}
