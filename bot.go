// Package miraigo is a client SDK for the mirai-api-http gateway. It
// wires the command catalog, the typed event stream and the event bus
// onto one of four interchangeable transports (HTTP polling,
// WebSocket, WebHook, or a composite of two).
//
// A minimal bot:
//
//	adapter, _ := adapter.NewWebSocket(adapter.WSConfig{
//		VerifyKey: "secret", Host: "localhost", Port: 8080,
//	})
//	bot := miraigo.New(12345678, adapter)
//	miraigo.On(bot, 0, func(ctx context.Context, ev *event.FriendMessage) error {
//		_, err := bot.SendFriendMessage(ctx, ev.Sender.ID, ev.MessageChain, 0)
//		return err
//	})
//	bot.Run(ctx, "", 0)
package miraigo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/miraigo/miraigo/adapter"
	"github.com/miraigo/miraigo/api"
	"github.com/miraigo/miraigo/bus"
	"github.com/miraigo/miraigo/event"
)

// Bot owns one session over one adapter, one event bus, and the typed
// command surface.
type Bot struct {
	qq      int64
	adapter adapter.Adapter
	bus     *bus.Bus
	logger  *slog.Logger
	server  *adapter.WebServer

	session adapter.Session
}

// Option configures a Bot.
type Option func(*botOptions)

type botOptions struct {
	logger *slog.Logger
	sink   func(error)
	server *adapter.WebServer
}

// WithLogger sets the bot logger; slog.Default() otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(o *botOptions) { o.logger = logger }
}

// WithErrorSink routes handler errors to fn instead of the log.
func WithErrorSink(fn func(error)) Option {
	return func(o *botOptions) { o.sink = fn }
}

// WithWebServer attaches the shared front-end that Run serves. A bot
// using a webhook adapter needs the same server the adapter was
// registered on.
func WithWebServer(server *adapter.WebServer) Option {
	return func(o *botOptions) { o.server = server }
}

// New creates a bot for one account over the given adapter.
func New(qq int64, a adapter.Adapter, opts ...Option) *Bot {
	var o botOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	busOpts := []bus.Option{bus.WithLogger(o.logger)}
	if o.sink != nil {
		busOpts = append(busOpts, bus.WithErrorSink(o.sink))
	}

	return &Bot{
		qq:      qq,
		adapter: a,
		bus:     bus.New(busOpts...),
		logger:  o.logger.With("qq", qq),
		server:  o.server,
	}
}

// QQ returns the bot's account id.
func (b *Bot) QQ() int64 { return b.qq }

// Bus returns the bot's event bus.
func (b *Bot) Bus() *bus.Bus { return b.bus }

// Session returns the live session, nil before Startup.
func (b *Bot) Session() adapter.Session { return b.session }

// Subscribe registers a handler by event type name.
func (b *Bot) Subscribe(eventType string, priority int, fn bus.Handler) *bus.Subscription {
	return b.bus.Subscribe(eventType, priority, fn)
}

// Unsubscribe removes a registration.
func (b *Bot) Unsubscribe(sub *bus.Subscription) {
	b.bus.Unsubscribe(sub)
}

// On registers a typed handler: the event type name is derived from T
// and the handler only sees events of that concrete type.
func On[T event.Event](b *Bot, priority int, fn func(ctx context.Context, ev T) error) *bus.Subscription {
	var zero T
	return b.bus.Subscribe(zero.EventType(), priority, func(ctx context.Context, ev event.Event) error {
		typed, ok := ev.(T)
		if !ok {
			return nil
		}
		return fn(ctx, typed)
	})
}

// OnType registers a handler for an abstract type name (for example
// event.TypeMessageEvent) with an assertion helper left to the caller.
func OnType(b *Bot, eventType string, priority int, fn bus.Handler) *bus.Subscription {
	return b.bus.Subscribe(eventType, priority, fn)
}

// Startup logs in, binds the bus to the session and starts background
// event ingestion.
func (b *Bot) Startup(ctx context.Context) error {
	if b.session != nil {
		return nil
	}
	session, err := b.adapter.Login(ctx, b.qq)
	if err != nil {
		return fmt.Errorf("login qq %d: %w", b.qq, err)
	}
	session.Subscribe(b.bus)
	if err := session.Start(ctx); err != nil {
		session.Shutdown(ctx)
		return err
	}
	b.session = session
	b.logger.Info("bot started")
	return nil
}

// Background blocks until the session's background ingestion ends.
// Fatal transport errors surface here.
func (b *Bot) Background(ctx context.Context) error {
	if b.session == nil {
		return adapter.ErrNotConfigured
	}
	done := make(chan error, 1)
	go func() { done <- b.session.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown closes the session. It is idempotent.
func (b *Bot) Shutdown(ctx context.Context) error {
	if b.session == nil {
		return nil
	}
	err := b.session.Shutdown(ctx)
	b.session = nil
	b.logger.Info("bot stopped")
	return err
}

// Run drives the full lifecycle: Startup, serve the attached web
// server (when present), block on Background, and Shutdown when ctx
// is cancelled.
func (b *Bot) Run(ctx context.Context, host string, port int) error {
	if err := b.Startup(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Shutdown(shutdownCtx)
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	if b.server != nil {
		go func() { errCh <- b.server.Run(runCtx, host, port) }()
	}
	go func() { errCh <- b.Background(runCtx) }()

	err := <-errCh
	cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// CallAPI forwards a raw command to the session.
func (b *Bot) CallAPI(ctx context.Context, name string, method api.Method, params map[string]any) (*api.Response, error) {
	if b.session == nil {
		return nil, adapter.ErrNotConfigured
	}
	return b.session.CallAPI(ctx, name, method, params)
}

// API looks up a catalog command by wire name or alias and returns
// its call proxy.
func (b *Bot) API(name string) (api.Proxy, error) {
	spec, ok := api.Lookup(name)
	if !ok {
		return api.Proxy{}, fmt.Errorf("%w: %s", api.ErrUnknownCommand, name)
	}
	return api.NewProxy(b, spec), nil
}

// UseAdapter runs fn against a bot bound to a temporary session on an
// alternate adapter. The temporary session shares this bot's bus and
// account and is shut down when fn returns.
func (b *Bot) UseAdapter(ctx context.Context, alt adapter.Adapter, fn func(*Bot) error) error {
	session, err := alt.Login(ctx, b.qq)
	if err != nil {
		return err
	}
	defer session.Shutdown(ctx)
	session.Subscribe(b.bus)

	scoped := &Bot{
		qq:      b.qq,
		adapter: alt,
		bus:     b.bus,
		logger:  b.logger,
		session: session,
	}
	return fn(scoped)
}
