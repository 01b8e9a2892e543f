// Package bus implements the event dispatcher: a priority-ordered,
// type-polymorphic handler registry with hierarchical propagation.
//
// Handlers are registered against an event type name. Emitting an
// event visits the event's ancestry chain (see event.Ancestry); for
// each type, handler buckets run in ascending priority order. All
// handlers within one bucket run concurrently and the bus waits for
// the whole bucket before advancing, so a handler at priority 0 always
// completes before any handler at priority 1 begins.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/miraigo/miraigo/event"
)

// Control-flow signals. A handler returns one of these (optionally
// wrapped) to steer dispatch; they are not failures and are never
// passed to the error sink.
var (
	// ErrSkipPriority abandons the rest of the current priority
	// bucket and proceeds to the next bucket. Because handlers in a
	// bucket start concurrently, the signal cancels the bucket's
	// context; handlers that have already started observe it only
	// through that cancellation.
	ErrSkipPriority = errors.New("skip current priority bucket")
	// ErrStopType abandons the remaining buckets for the current
	// type and proceeds to the next type in the ancestry chain.
	ErrStopType = errors.New("stop dispatch for current event type")
	// ErrStopPropagation aborts the whole ancestry chain.
	ErrStopPropagation = errors.New("stop event propagation")
)

// Handler processes one event. Returning one of the control-flow
// sentinels steers dispatch; any other non-nil error is reported to
// the bus error sink without interrupting sibling handlers.
type Handler func(ctx context.Context, ev event.Event) error

// Subscription is the registration handle returned by Subscribe; pass
// it to Unsubscribe to remove the handler.
type Subscription struct {
	eventType string
	priority  int
	fn        Handler
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the bus logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// WithErrorSink routes handler errors to fn instead of the default
// log-based sink.
func WithErrorSink(fn func(error)) Option {
	return func(b *Bus) { b.sink = fn }
}

// Bus is a single event bus. The zero value is not usable; call New.
type Bus struct {
	logger *slog.Logger
	sink   func(error)

	mu       sync.RWMutex
	handlers map[string][]*Subscription // per type, ascending priority
}

// New creates an event bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[string][]*Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.sink == nil {
		b.sink = func(err error) {
			b.logger.Error("event handler failed", "error", err)
		}
	}
	return b
}

// Subscribe registers a handler for an event type name at the given
// priority (lower runs first). The returned subscription removes or
// re-prioritizes the registration.
func (b *Bus) Subscribe(eventType string, priority int, fn Handler) *Subscription {
	sub := &Subscription{eventType: eventType, priority: priority, fn: fn}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.insert(sub)
	return sub
}

// insert adds sub keeping the slice sorted by priority. Caller holds
// b.mu.
func (b *Bus) insert(sub *Subscription) {
	subs := b.handlers[sub.eventType]
	i := sort.Search(len(subs), func(i int) bool { return subs[i].priority > sub.priority })
	subs = append(subs, nil)
	copy(subs[i+1:], subs[i:])
	subs[i] = sub
	b.handlers[sub.eventType] = subs
}

// Unsubscribe removes a subscription. Removing a subscription that is
// not registered logs a warning.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.remove(sub) {
		b.logger.Warn("unsubscribe of unregistered handler",
			"eventType", sub.eventType,
		)
	}
}

// remove deletes sub from its bucket; reports whether it was present.
// Caller holds b.mu.
func (b *Bus) remove(sub *Subscription) bool {
	subs := b.handlers[sub.eventType]
	for i, s := range subs {
		if s == sub {
			b.handlers[sub.eventType] = append(subs[:i:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// SetPriority moves the subscription to a different priority bucket.
func (b *Bus) SetPriority(sub *Subscription, priority int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remove(sub) {
		sub.priority = priority
		b.insert(sub)
	}
}

// buckets returns a snapshot of the handler buckets for one type in
// ascending priority order. Mutating the registry during dispatch
// never affects an in-flight traversal.
func (b *Bus) buckets(eventType string) [][]Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.handlers[eventType]
	var out [][]Handler
	for i := 0; i < len(subs); {
		j := i
		var bucket []Handler
		for ; j < len(subs) && subs[j].priority == subs[i].priority; j++ {
			bucket = append(bucket, subs[j].fn)
		}
		out = append(out, bucket)
		i = j
	}
	return out
}

// Emit dispatches an event through its ancestry chain. It returns
// after every invoked handler has completed. Handler errors go to the
// error sink; control-flow sentinels steer dispatch as documented on
// the sentinel values.
func (b *Bus) Emit(ctx context.Context, ev event.Event) {
	for _, name := range event.Ancestry(ev.EventType()) {
		if stop := b.emitType(ctx, name, ev); stop {
			return
		}
	}
}

// emitType runs all buckets for one type name; reports whether the
// whole chain should stop.
func (b *Bus) emitType(ctx context.Context, name string, ev event.Event) (stopChain bool) {
	for _, bucket := range b.buckets(name) {
		bucketCtx, cancel := context.WithCancel(ctx)

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			signal error
		)
		for _, fn := range bucket {
			wg.Add(1)
			go func(fn Handler) {
				defer wg.Done()
				err := fn(bucketCtx, ev)
				switch {
				case err == nil:
				case errors.Is(err, ErrSkipPriority),
					errors.Is(err, ErrStopType),
					errors.Is(err, ErrStopPropagation):
					mu.Lock()
					if signal == nil || errors.Is(err, ErrStopPropagation) {
						signal = err
					}
					mu.Unlock()
					cancel()
				default:
					b.sink(err)
				}
			}(fn)
		}
		wg.Wait()
		cancel()

		switch {
		case signal == nil:
		case errors.Is(signal, ErrStopPropagation):
			return true
		case errors.Is(signal, ErrStopType):
			return false
		case errors.Is(signal, ErrSkipPriority):
			// Proceed to the next bucket.
		}
	}
	return false
}

// EmitRaw resolves a raw wire event through the subtype registry and
// dispatches the typed form. Unknown types degrade to event.Unknown.
func (b *Bus) EmitRaw(ctx context.Context, raw json.RawMessage) error {
	ev, err := event.Parse(raw)
	if err != nil {
		return err
	}
	b.Emit(ctx, ev)
	return nil
}
