package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by Publish when the async queue has no room.
var ErrQueueFull = errors.New("event queue full")

// ErrDispatcherClosed is returned by Publish after Close.
var ErrDispatcherClosed = errors.New("event dispatcher closed")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
	Close()
}

type registry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

func (r *registry) Subscribe(eventType EventType, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = make(map[EventType][]EventHandler)
	}
	r.listeners[eventType] = append(r.listeners[eventType], handler)
}

func (r *registry) handlers(t EventType) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventHandler{}, r.listeners[t]...)
}

// inMemoryDispatcher invokes handlers inline on the publisher's goroutine,
// so a push is sent before the request that triggered it returns.
type inMemoryDispatcher struct {
	registry
}

// NewInMemoryDispatcher creates a synchronous dispatcher. Handler errors are
// joined and returned.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{}
}

func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, handler := range d.handlers(event.Type) {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *inMemoryDispatcher) Close() {}

// AsyncOptions tune the background dispatcher.
type AsyncOptions struct {
	Workers        int
	QueueSize      int
	HandlerTimeout time.Duration
	// Inline selects the synchronous dispatcher; the pool settings are ignored.
	Inline bool
	// OnResult, when set, observes every handler outcome and every drop.
	OnResult func(event Event, err error, dropped bool)
}

// asyncDispatcher queues events and runs handlers on worker goroutines, each
// under its own timeout. Publish never blocks.
type asyncDispatcher struct {
	registry
	queue   chan Event
	opts    AsyncOptions
	logger  *zap.Logger
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	closeMu sync.Once
}

// NewDispatcher returns the inline dispatcher when opts.Inline is set and
// the background worker pool otherwise.
func NewDispatcher(opts AsyncOptions, logger *zap.Logger) Dispatcher {
	if opts.Inline {
		if logger != nil {
			logger.Info("events dispatched inline")
		}
		return NewInMemoryDispatcher()
	}
	return NewAsyncDispatcher(opts, logger)
}

// NewAsyncDispatcher starts the worker pool.
func NewAsyncDispatcher(opts AsyncOptions, logger *zap.Logger) Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &asyncDispatcher{
		queue:  make(chan Event, opts.QueueSize),
		opts:   opts,
		logger: logger,
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *asyncDispatcher) Publish(_ context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Warn("dropping event; queue full",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
		if d.opts.OnResult != nil {
			d.opts.OnResult(event, ErrQueueFull, true)
		}
		return ErrQueueFull
	}
}

// Close stops intake and waits for queued events to finish.
func (d *asyncDispatcher) Close() {
	d.closeMu.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *asyncDispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		for _, handler := range d.handlers(event.Type) {
			err := d.invoke(handler, event)
			if err != nil {
				d.logger.Error("event handler failed",
					zap.String("event_type", string(event.Type)),
					zap.String("ticket_id", event.TicketID),
					zap.Error(err))
			}
			if d.opts.OnResult != nil {
				d.opts.OnResult(event, err, false)
			}
		}
	}
}

func (d *asyncDispatcher) invoke(handler EventHandler, event Event) (err error) {
	// detached from the request so a finished request does not cancel delivery
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.HandlerTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, event)
}
