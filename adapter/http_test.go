package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miraigo/miraigo/api"
	"github.com/miraigo/miraigo/bus"
	"github.com/miraigo/miraigo/event"
)

// newHTTPAdapter points an HTTP adapter at a test gateway.
func newHTTPAdapter(t *testing.T, ts *httptest.Server, cfg HTTPConfig) *HTTPAdapter {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	cfg.Host = u.Hostname()
	cfg.Port, _ = strconv.Atoi(u.Port())
	a, err := NewHTTP(cfg)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	return a
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func TestHTTPLoginVerifiesAndBinds(t *testing.T) {
	var verified, bound atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["verifyKey"] != "secret" {
			t.Errorf("verifyKey = %v", body["verifyKey"])
		}
		verified.Store(true)
		writeJSON(w, `{"code":0,"msg":"","session":"sess-1"}`)
	})
	mux.HandleFunc("POST /bind", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["sessionKey"] != "sess-1" || body["qq"] != float64(12345678) {
			t.Errorf("bind body = %v", body)
		}
		bound.Store(true)
		writeJSON(w, `{"code":0,"msg":""}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := newHTTPAdapter(t, ts, HTTPConfig{VerifyKey: "secret"})
	session, err := a.Login(context.Background(), 12345678)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !verified.Load() || !bound.Load() {
		t.Errorf("verified=%v bound=%v, want both", verified.Load(), bound.Load())
	}
	if session.Key() != "sess-1" {
		t.Errorf("session key = %q", session.Key())
	}
}

func TestHTTPSingleModeSkipsBind(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":"","session":"sess-1"}`)
	})
	mux.HandleFunc("POST /bind", func(w http.ResponseWriter, r *http.Request) {
		t.Error("bind called in single mode")
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := newHTTPAdapter(t, ts, HTTPConfig{VerifyKey: "secret", SingleMode: true})
	if _, err := a.Login(context.Background(), 1); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestHTTPNoVerifyKeySynthesizesLocalToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, r *http.Request) {
		t.Error("verify called with verification disabled")
	})
	mux.HandleFunc("POST /bind", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":""}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := newHTTPAdapter(t, ts, HTTPConfig{})
	session, err := a.Login(context.Background(), 1)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Key() == "" {
		t.Error("no local session token synthesized")
	}
}

func TestHTTPCallCarriesSessionHeader(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":"","session":"sess-1"}`)
	})
	mux.HandleFunc("POST /bind", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":""}`)
	})
	mux.HandleFunc("POST /sendFriendMessage", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("sessionKey") != "sess-1" {
			t.Errorf("sessionKey header = %q", r.Header.Get("sessionKey"))
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["target"] != float64(22222222) {
			t.Errorf("target = %v", body["target"])
		}
		writeJSON(w, `{"code":0,"msg":"","messageId":7}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := newHTTPAdapter(t, ts, HTTPConfig{VerifyKey: "secret"})
	session, err := a.Login(context.Background(), 12345678)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	resp, err := session.CallAPI(context.Background(), "sendFriendMessage", api.MethodPost, map[string]any{
		"target":       22222222,
		"messageChain": []map[string]any{{"type": "Plain", "text": "hi"}},
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	id, err := api.DecodeField[int64](resp, "messageId")
	if err != nil || id != 7 {
		t.Errorf("messageId = %d (%v), want 7", id, err)
	}
}

func TestHTTPGatewayErrorPropagates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":"","session":"sess-1"}`)
	})
	mux.HandleFunc("POST /bind", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":""}`)
	})
	mux.HandleFunc("POST /sendFriendMessage", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":10,"msg":"no permission"}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := newHTTPAdapter(t, ts, HTTPConfig{VerifyKey: "secret"})
	session, _ := a.Login(context.Background(), 12345678)

	_, err := session.CallAPI(context.Background(), "sendFriendMessage", api.MethodPost, map[string]any{"target": 1})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 10 || apiErr.Msg != "no permission" {
		t.Errorf("err = %v, want gateway error 10", err)
	}
}

func TestHTTPPollEmitsEvents(t *testing.T) {
	events := make(chan event.Event, 4)
	var fetched atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":"","session":"sess-1"}`)
	})
	mux.HandleFunc("POST /bind", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":""}`)
	})
	mux.HandleFunc("GET /countMessage", func(w http.ResponseWriter, r *http.Request) {
		if fetched.Load() {
			writeJSON(w, `{"code":0,"msg":"","data":0}`)
			return
		}
		writeJSON(w, `{"code":0,"msg":"","data":2}`)
	})
	mux.HandleFunc("GET /fetchMessage", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("count") != "2" {
			t.Errorf("count = %q", r.URL.Query().Get("count"))
		}
		fetched.Store(true)
		writeJSON(w, `{"code":0,"msg":"","data":[
			{"type":"FriendMessage","sender":{"id":1,"nickname":"a"},"messageChain":[{"type":"Plain","text":"one"}]},
			{"type":"BotOnlineEvent","qq":12345678}
		]}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := newHTTPAdapter(t, ts, HTTPConfig{VerifyKey: "secret", PollInterval: 10 * time.Millisecond})
	session, err := a.Login(context.Background(), 12345678)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	b := bus.New()
	b.Subscribe(event.TypeEvent, 0, func(ctx context.Context, ev event.Event) error {
		events <- ev
		return nil
	})
	session.Subscribe(b)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer session.Shutdown(context.Background())

	types := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			types[ev.EventType()] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	if !types[event.TypeFriendMessage] || !types[event.TypeBotOnlineEvent] {
		t.Errorf("event types = %v", types)
	}
}

func TestHTTPStartRequiresBus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":"","session":"sess-1"}`)
	})
	mux.HandleFunc("POST /bind", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":""}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := newHTTPAdapter(t, ts, HTTPConfig{VerifyKey: "secret"})
	session, _ := a.Login(context.Background(), 1)

	if err := session.Start(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Start without bus = %v, want ErrNotConfigured", err)
	}
}

func TestHTTPShutdownReleasesSession(t *testing.T) {
	var released atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":"","session":"sess-1"}`)
	})
	mux.HandleFunc("POST /bind", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"code":0,"msg":""}`)
	})
	mux.HandleFunc("POST /release", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["sessionKey"] != "sess-1" {
			t.Errorf("release body = %v", body)
		}
		released.Store(true)
		writeJSON(w, `{"code":0,"msg":""}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a := newHTTPAdapter(t, ts, HTTPConfig{VerifyKey: "secret"})
	session, _ := a.Login(context.Background(), 1)

	if err := session.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !released.Load() {
		t.Error("release not called")
	}

	// Shutdown is idempotent; the session is closed afterwards.
	if err := session.Shutdown(context.Background()); err != nil {
		t.Errorf("second shutdown: %v", err)
	}
	if _, err := session.CallAPI(context.Background(), "about", api.MethodGet, nil); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("call after shutdown = %v, want ErrSessionClosed", err)
	}
}

func TestHTTPRejectsHTTPS(t *testing.T) {
	if _, err := NewHTTP(HTTPConfig{Host: "https://example.com", Port: 443}); err == nil {
		t.Error("https host accepted")
	}
}
