package adapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/miraigo/miraigo/api"
)

// replySlot is the per-request quick-response sink: a handler that
// issues a command while an inbound webhook request is being processed
// writes the queued-command body here, and the endpoint returns it as
// the HTTP response. Only one quick response is returned per request;
// with concurrent handlers the last writer wins.
type replySlot struct {
	mu      sync.Mutex
	payload map[string]any
}

func (r *replySlot) put(payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payload = payload
}

func (r *replySlot) drain() (map[string]any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payload, r.payload != nil
}

type replySlotKey struct{}

// withReplySlot attaches a fresh quick-response slot to the context.
func withReplySlot(ctx context.Context) (context.Context, *replySlot) {
	slot := &replySlot{}
	return context.WithValue(ctx, replySlotKey{}, slot), slot
}

func replySlotFrom(ctx context.Context) (*replySlot, bool) {
	slot, ok := ctx.Value(replySlotKey{}).(*replySlot)
	return slot, ok
}

// WebhookConfig configures the server-initiated HTTP adapter.
type WebhookConfig struct {
	VerifyKey string
	// Route is the endpoint path registered on the shared web
	// server. Default "/".
	Route string
	// ExtraHeaders must match on every inbound request,
	// case-insensitively. A single wrap of square brackets around
	// the request value is tolerated (gateway compat).
	ExtraHeaders map[string]string
	// EnableQuickResponse lets handler-issued commands become the
	// HTTP response body. Default true; disable when composing with
	// another command channel.
	EnableQuickResponse *bool
	SingleMode          bool

	Logger *slog.Logger
}

// WebhookAdapter receives events as inbound HTTP callbacks on a
// shared web server. It has no client-initiated command path: outside
// an inbound request, commands fail with ErrNotAvailable.
type WebhookAdapter struct {
	cfg    WebhookConfig
	server *WebServer
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*webhookSession // by account id header value
}

// NewWebhook creates the webhook adapter and registers its endpoint
// on the shared web server.
func NewWebhook(cfg WebhookConfig, server *WebServer) *WebhookAdapter {
	if cfg.Route == "" {
		cfg.Route = "/"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &WebhookAdapter{
		cfg:      cfg,
		server:   server,
		logger:   logger.With("adapter", "webhook"),
		sessions: make(map[string]*webhookSession),
	}
	server.Handle(http.MethodPost, cfg.Route, a.endpoint)
	return a
}

// Info implements Adapter.
func (a *WebhookAdapter) Info() Info {
	return Info{
		Kind:       "webhook",
		VerifyKey:  a.cfg.VerifyKey,
		SingleMode: a.cfg.SingleMode,
	}
}

// Login needs no gateway round trip: the session token is the account
// id the gateway sends in the `bot` header.
func (a *WebhookAdapter) Login(ctx context.Context, qq int64) (Session, error) {
	s := &webhookSession{
		baseSession: baseSession{qq: qq, logger: a.logger},
		adapter:     a,
		done:        make(chan struct{}),
	}
	s.key = strconv.FormatInt(qq, 10)

	a.mu.Lock()
	a.sessions[s.key] = s
	a.mu.Unlock()

	a.logger.Info("logged in", "qq", qq)
	return s, nil
}

func (a *WebhookAdapter) quickResponseEnabled() bool {
	if a.cfg.EnableQuickResponse == nil {
		return true
	}
	return *a.cfg.EnableQuickResponse
}

// endpoint authenticates an inbound callback and hands the event to
// the matching session. Unknown bot accounts get 404; extra-header
// mismatches get 401.
func (a *WebhookAdapter) endpoint(c *gin.Context) {
	a.mu.Lock()
	session := a.sessions[c.GetHeader("bot")]
	a.mu.Unlock()
	if session == nil || session.isClosed() {
		a.logger.Debug("event for unknown account", "bot", c.GetHeader("bot"))
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown bot"})
		return
	}

	for key, want := range a.cfg.ExtraHeaders {
		got := c.GetHeader(key)
		// Tolerate one wrap of square brackets around the request
		// value; some gateway builds send headers in that form.
		got = strings.TrimSuffix(strings.TrimPrefix(got, "["), "]")
		if !strings.EqualFold(got, want) {
			a.logger.Debug("extra header mismatch", "header", key)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
	}

	var raw json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad event body"})
		return
	}

	reply := session.handleEvent(c.Request.Context(), raw)
	c.JSON(http.StatusOK, reply)
}

type webhookSession struct {
	baseSession
	adapter *WebhookAdapter
	done    chan struct{}
	doneOne sync.Once
}

// Start has no loop to launch: events arrive as inbound requests. The
// subscribed-bus precondition still applies.
func (s *webhookSession) Start(ctx context.Context) error {
	return s.beginStart()
}

// Wait blocks until Shutdown.
func (s *webhookSession) Wait() error {
	<-s.done
	return nil
}

// handleEvent dispatches one inbound event and drains the
// quick-response slot filled by handlers during dispatch.
func (s *webhookSession) handleEvent(ctx context.Context, raw json.RawMessage) map[string]any {
	ctx, slot := withReplySlot(ctx)
	if err := s.EmitRaw(ctx, raw); err != nil {
		s.logger.Warn("dropping undecodable event", "error", err)
	}
	if payload, ok := slot.drain(); ok && s.adapter.quickResponseEnabled() {
		return payload
	}
	return map[string]any{}
}

// CallAPI captures commands issued during an inbound request as the
// request's quick response. Outside a request there is no command
// channel.
func (s *webhookSession) CallAPI(ctx context.Context, name string, method api.Method, params map[string]any) (*api.Response, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}
	slot, ok := replySlotFrom(ctx)
	if !ok || !s.adapter.quickResponseEnabled() {
		return nil, ErrNotAvailable
	}

	content := map[string]any{
		"command": api.WireCommand(name),
		"content": params,
	}
	switch method {
	case api.MethodRestGet:
		content["subCommand"] = "get"
	case api.MethodRestPost:
		content["subCommand"] = "update"
	case api.MethodMultipart:
		return nil, ErrUnsupportedOperation
	}
	slot.put(content)
	s.logger.Debug("captured quick response", "command", name)
	return nil, nil
}

// Shutdown removes the session from the adapter's routing map. It is
// idempotent.
func (s *webhookSession) Shutdown(ctx context.Context) error {
	if !s.close() {
		return nil
	}
	s.adapter.mu.Lock()
	delete(s.adapter.sessions, s.key)
	s.adapter.mu.Unlock()
	s.doneOne.Do(func() { close(s.done) })
	s.logger.Info("logged out", "qq", s.qq)
	return nil
}
