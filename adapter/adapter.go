// Package adapter implements the transports that connect a bot to the
// gateway: long-polling HTTP, a multiplexed WebSocket client, a
// server-initiated WebHook endpoint, and a composite that splits
// command and event traffic across two of them. Every adapter hides
// its concurrency and correlation model behind the same two
// contracts: Adapter authenticates and produces a Session; Session
// carries commands and feeds events to subscribed buses.
package adapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/miraigo/miraigo/api"
	"github.com/miraigo/miraigo/bus"
	"github.com/miraigo/miraigo/event"
)

// Info describes an adapter's identity and credentials; the composite
// adapter mirrors its command channel's info.
type Info struct {
	Kind       string
	VerifyKey  string
	SingleMode bool
	Host       string
	Port       int
}

// Adapter authenticates against the gateway and yields sessions.
type Adapter interface {
	// Login performs the authentication handshake for one account
	// and returns the session bound to it.
	Login(ctx context.Context, qq int64) (Session, error)
	// Info returns the adapter's identity.
	Info() Info
}

// Session is a logical, authenticated connection for one account over
// one adapter. It owns the background event ingestion and fans
// inbound events out to its subscribed buses.
type Session interface {
	api.Provider

	// QQ returns the bound account id.
	QQ() int64
	// Key returns the gateway session token (or its local stand-in).
	Key() string
	// Subscribe attaches buses that receive this session's events.
	// At least one bus must be subscribed before Start.
	Subscribe(buses ...*bus.Bus)
	// Start launches background event ingestion. It fails with
	// ErrNotConfigured when no bus is subscribed and with
	// ErrSessionClosed after Shutdown.
	Start(ctx context.Context) error
	// Wait blocks until background ingestion ends and returns its
	// fatal error, if any.
	Wait() error
	// Emit fans an event out to all subscribed buses concurrently
	// and returns when every bus has finished dispatching.
	Emit(ctx context.Context, ev event.Event)
	// EmitRaw parses a raw wire event and emits it.
	EmitRaw(ctx context.Context, raw json.RawMessage) error
	// Shutdown cancels background ingestion cooperatively, releases
	// the gateway session where applicable, and closes the session.
	// It is idempotent.
	Shutdown(ctx context.Context) error
}

// baseSession carries the state shared by every transport session:
// the account binding, the subscribed buses, and the closed flag.
type baseSession struct {
	qq     int64
	key    string
	logger *slog.Logger

	mu      sync.Mutex
	buses   []*bus.Bus
	started bool
	closed  bool
}

func (s *baseSession) QQ() int64 { return s.qq }
func (s *baseSession) Key() string { return s.key }

func (s *baseSession) Subscribe(buses ...*bus.Bus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buses = append(s.buses, buses...)
}

// snapshot returns the current bus set.
func (s *baseSession) snapshot() []*bus.Bus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*bus.Bus(nil), s.buses...)
}

// beginStart validates the Start preconditions and flips the started
// flag. Callers hold no locks.
func (s *baseSession) beginStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return ErrSessionClosed
	case len(s.buses) == 0:
		return ErrNotConfigured
	case s.started:
		return nil
	}
	s.started = true
	return nil
}

// close flips the closed flag; reports whether this call closed it.
func (s *baseSession) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

func (s *baseSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Emit dispatches the event on every subscribed bus concurrently.
func (s *baseSession) Emit(ctx context.Context, ev event.Event) {
	var wg sync.WaitGroup
	for _, b := range s.snapshot() {
		wg.Add(1)
		go func(b *bus.Bus) {
			defer wg.Done()
			b.Emit(ctx, ev)
		}(b)
	}
	wg.Wait()
}

// EmitRaw resolves the raw event once and dispatches the typed form.
func (s *baseSession) EmitRaw(ctx context.Context, raw json.RawMessage) error {
	ev, err := event.Parse(raw)
	if err != nil {
		return err
	}
	s.Emit(ctx, ev)
	return nil
}
