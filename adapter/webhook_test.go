package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/miraigo/miraigo/api"
	"github.com/miraigo/miraigo/bus"
	"github.com/miraigo/miraigo/event"
)

const webhookEvent = `{"type":"FriendMessage","sender":{"id":22,"nickname":"a"},"messageChain":[{"type":"Source","id":41,"time":0},{"type":"Plain","text":"ping"}]}`

// postEvent performs one inbound callback request against the shared
// server.
func postEvent(server *WebServer, route, bot string, headers map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, route, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bot != "" {
		req.Header.Set("bot", bot)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	server.Engine().ServeHTTP(w, req)
	return w
}

// newWebhookSession builds a webhook adapter on a fresh server and
// returns the logged-in, started session.
func newWebhookSession(t *testing.T, cfg WebhookConfig, b *bus.Bus) (*WebServer, Session) {
	t.Helper()
	server := NewWebServer(nil)
	a := NewWebhook(cfg, server)
	session, err := a.Login(context.Background(), 12345678)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if b == nil {
		b = bus.New()
	}
	session.Subscribe(b)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { session.Shutdown(context.Background()) })
	return server, session
}

func TestWebhookAuth(t *testing.T) {
	var calls atomic.Int32
	b := bus.New()
	b.Subscribe(event.TypeFriendMessage, 0, func(ctx context.Context, ev event.Event) error {
		calls.Add(1)
		return nil
	})
	server, _ := newWebhookSession(t, WebhookConfig{
		ExtraHeaders: map[string]string{"X-Token": "tok"},
	}, b)

	// Mismatched bot header: 404, nothing dispatched.
	if w := postEvent(server, "/", "999", map[string]string{"X-Token": "tok"}, webhookEvent); w.Code != http.StatusNotFound {
		t.Errorf("wrong bot: status %d, want 404", w.Code)
	}
	// Matching bot, mismatched extra header: 401.
	if w := postEvent(server, "/", "12345678", map[string]string{"X-Token": "bad"}, webhookEvent); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong extra header: status %d, want 401", w.Code)
	}
	if calls.Load() != 0 {
		t.Fatalf("event dispatched despite failed auth")
	}

	// Everything matching: 200, event emitted exactly once.
	w := postEvent(server, "/", "12345678", map[string]string{"X-Token": "tok"}, webhookEvent)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if calls.Load() != 1 {
		t.Errorf("event dispatched %d times, want 1", calls.Load())
	}
}

func TestWebhookExtraHeaderTolerances(t *testing.T) {
	server, _ := newWebhookSession(t, WebhookConfig{
		ExtraHeaders: map[string]string{"X-Token": "Tok"},
	}, nil)

	// Case-insensitive comparison.
	if w := postEvent(server, "/", "12345678", map[string]string{"x-token": "tOK"}, webhookEvent); w.Code != http.StatusOK {
		t.Errorf("case-insensitive match: status %d, want 200", w.Code)
	}
	// A single wrap of square brackets around the value is accepted.
	if w := postEvent(server, "/", "12345678", map[string]string{"X-Token": "[tok]"}, webhookEvent); w.Code != http.StatusOK {
		t.Errorf("bracket-wrapped value: status %d, want 200", w.Code)
	}
}

func TestWebhookQuickResponse(t *testing.T) {
	b := bus.New()
	var session Session
	b.Subscribe(event.TypeFriendMessage, 0, func(ctx context.Context, ev event.Event) error {
		fm := ev.(*event.FriendMessage)
		_, err := session.CallAPI(ctx, "sendFriendMessage", api.MethodPost, map[string]any{
			"target":       fm.Sender.ID,
			"messageChain": []map[string]any{{"type": "Plain", "text": "pong"}},
		})
		return err
	})
	server, s := newWebhookSession(t, WebhookConfig{}, b)
	session = s

	w := postEvent(server, "/", "12345678", nil, webhookEvent)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var reply map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("parse reply: %v", err)
	}
	if reply["command"] != "sendFriendMessage" {
		t.Errorf("command = %v", reply["command"])
	}
	if _, present := reply["subCommand"]; present {
		t.Error("subCommand present on a plain write command")
	}
	content, _ := reply["content"].(map[string]any)
	if content["target"] != float64(22) {
		t.Errorf("content = %v", content)
	}
}

func TestWebhookQuickResponseDisabled(t *testing.T) {
	disabled := false
	b := bus.New()
	var session Session
	var callErr error
	b.Subscribe(event.TypeFriendMessage, 0, func(ctx context.Context, ev event.Event) error {
		_, callErr = session.CallAPI(ctx, "recall", api.MethodPost, map[string]any{"target": 1})
		return nil
	})
	server, s := newWebhookSession(t, WebhookConfig{EnableQuickResponse: &disabled}, b)
	session = s

	w := postEvent(server, "/", "12345678", nil, webhookEvent)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !errors.Is(callErr, ErrNotAvailable) {
		t.Errorf("call with quick response disabled = %v, want ErrNotAvailable", callErr)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "{}" {
		t.Errorf("body = %s, want {}", body)
	}
}

func TestWebhookCallOutsideRequest(t *testing.T) {
	_, session := newWebhookSession(t, WebhookConfig{}, nil)

	_, err := session.CallAPI(context.Background(), "recall", api.MethodPost, map[string]any{"target": 1})
	if !errors.Is(err, ErrNotAvailable) {
		t.Errorf("err = %v, want ErrNotAvailable", err)
	}
}

func TestWebhookShutdownUnroutesSession(t *testing.T) {
	server, session := newWebhookSession(t, WebhookConfig{}, nil)

	if err := session.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if w := postEvent(server, "/", "12345678", nil, webhookEvent); w.Code != http.StatusNotFound {
		t.Errorf("status after shutdown = %d, want 404", w.Code)
	}
}
