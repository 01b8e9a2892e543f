package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/miraigo/miraigo/api"
	"github.com/miraigo/miraigo/internal/httpx"
	"github.com/miraigo/miraigo/internal/taskgroup"
)

// HTTP-poll transport timeouts.
const (
	defaultPollInterval  = time.Second
	defaultHTTPTimeout   = 60 * time.Second
	defaultUploadTimeout = 30 * time.Second

	// The poll loop tolerates a couple of transient connection
	// failures per request before surfacing them.
	transientRetries    = 2
	transientRetryDelay = 500 * time.Millisecond
)

// HTTPConfig configures the long-polling HTTP adapter.
type HTTPConfig struct {
	// VerifyKey authenticates the handshake. Empty means the gateway
	// runs with verification disabled; a local opaque token is
	// synthesized instead.
	VerifyKey string
	// Host of the gateway HTTP server. "//host" and bare hosts get
	// "http" prepended; https is rejected.
	Host string
	Port int
	// PollInterval is the event poll cadence. Default 1s.
	PollInterval time.Duration
	// SingleMode skips account binding and synthesizes a local
	// session id.
	SingleMode bool

	Logger *slog.Logger
}

// HTTPAdapter talks to the gateway with per-request HTTP calls and a
// background poll loop for events.
type HTTPAdapter struct {
	cfg     HTTPConfig
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTP creates the HTTP-poll adapter.
func NewHTTP(cfg HTTPConfig) (*HTTPAdapter, error) {
	base, err := normalizeHost(cfg.Host, "http")
	if err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("adapter", "http")
	return &HTTPAdapter{
		cfg:     cfg,
		baseURL: fmt.Sprintf("%s:%d", base, cfg.Port),
		client:  httpx.NewClient(transientRetries, transientRetryDelay, logger),
		logger:  logger,
	}, nil
}

// Info implements Adapter.
func (a *HTTPAdapter) Info() Info {
	return Info{
		Kind:       "http",
		VerifyKey:  a.cfg.VerifyKey,
		SingleMode: a.cfg.SingleMode,
		Host:       a.cfg.Host,
		Port:       a.cfg.Port,
	}
}

// Login performs the verify/bind handshake and returns the session.
func (a *HTTPAdapter) Login(ctx context.Context, qq int64) (Session, error) {
	s := &httpSession{
		baseSession: baseSession{qq: qq, logger: a.logger},
		adapter:     a,
		done:        make(chan struct{}),
	}

	if a.cfg.VerifyKey != "" {
		resp, err := s.request(ctx, http.MethodPost, "verify", map[string]any{
			"verifyKey": a.cfg.VerifyKey,
		}, defaultHTTPTimeout)
		if err != nil {
			return nil, err
		}
		// The token arrives either beside the envelope or as the
		// bare payload, depending on the gateway build.
		token, err := api.DecodeField[string](resp, "session")
		if err != nil || token == "" {
			return nil, &NetworkError{Op: "verify: no session token in response"}
		}
		s.key = token
	} else {
		s.key = uuid.NewString()
	}

	if a.cfg.SingleMode {
		// Single mode has no account binding; a local opaque id
		// replaces the session token.
		s.key = uuid.NewString()
	} else {
		if _, err := s.request(ctx, http.MethodPost, "bind", map[string]any{
			"sessionKey": s.key,
			"qq":         qq,
		}, defaultHTTPTimeout); err != nil {
			return nil, err
		}
	}

	a.logger.Info("logged in", "qq", qq)
	return s, nil
}

type httpSession struct {
	baseSession
	adapter *HTTPAdapter

	group   *taskgroup.Group
	done    chan struct{}
	waitErr error
}

// Start launches the poll loop. Each tick runs as a detached task so
// a slow gateway response never stalls the cadence.
func (s *httpSession) Start(ctx context.Context) error {
	if err := s.beginStart(); err != nil {
		return err
	}
	s.group = taskgroup.New(ctx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.adapter.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.group.Context().Done():
				s.group.Wait()
				return
			case <-ticker.C:
				s.group.Go(s.pollOnce)
			}
		}
	}()
	return nil
}

// Wait blocks until the poll loop has exited.
func (s *httpSession) Wait() error {
	<-s.done
	return s.waitErr
}

// pollOnce fetches queued events and emits each one concurrently.
func (s *httpSession) pollOnce(ctx context.Context) {
	resp, err := s.CallAPI(ctx, "countMessage", api.MethodGet, nil)
	if err != nil || resp == nil {
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("countMessage failed", "error", err)
		}
		return
	}
	count, err := api.DecodeData[int](resp)
	if err != nil || count <= 0 {
		return
	}

	resp, err = s.CallAPI(ctx, "fetchMessage", api.MethodGet, map[string]any{"count": count})
	if err != nil || resp == nil {
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("fetchMessage failed", "error", err)
		}
		return
	}
	events, err := api.DecodeData[[]json.RawMessage](resp)
	if err != nil {
		s.logger.Warn("bad fetchMessage payload", "error", err)
		return
	}

	for _, raw := range events {
		raw := raw
		s.group.Go(func(ctx context.Context) {
			if err := s.EmitRaw(ctx, raw); err != nil {
				s.logger.Warn("dropping undecodable event", "error", err)
			}
		})
	}
}

// CallAPI implements api.Provider over per-request HTTP calls.
func (s *httpSession) CallAPI(ctx context.Context, name string, method api.Method, params map[string]any) (*api.Response, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}
	switch method {
	case api.MethodGet, api.MethodRestGet:
		return s.get(ctx, name, params)
	case api.MethodPost, api.MethodRestPost:
		return s.request(ctx, http.MethodPost, name, params, defaultHTTPTimeout)
	case api.MethodMultipart:
		return s.upload(ctx, name, params)
	default:
		return nil, fmt.Errorf("%w: method %s", ErrUnsupportedOperation, method)
	}
}

func (s *httpSession) get(ctx context.Context, name string, params map[string]any) (*api.Response, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, fmt.Sprint(v))
	}
	target := s.adapter.baseURL + "/" + name
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, &NetworkError{Op: "build request " + name, Err: err}
	}
	return s.do(ctx, req, defaultHTTPTimeout)
}

func (s *httpSession) request(ctx context.Context, httpMethod, name string, body map[string]any, timeout time.Duration) (*api.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &api.ParamError{Command: name, Reason: err.Error()}
	}
	req, err := http.NewRequest(httpMethod, s.adapter.baseURL+"/"+name, bytes.NewReader(payload))
	if err != nil {
		return nil, &NetworkError{Op: "build request " + name, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(ctx, req, timeout)
}

// upload sends a multipart form: the command's file field is read
// from the local path given in params, the rest become form fields.
func (s *httpSession) upload(ctx context.Context, name string, params map[string]any) (*api.Response, error) {
	spec, ok := api.Lookup(name)
	if !ok || spec.FileField == "" {
		return nil, fmt.Errorf("%w: %s is not an upload command", ErrUnsupportedOperation, name)
	}
	path, _ := params[spec.FileField].(string)
	if path == "" {
		return nil, &api.ParamError{Command: name, Field: spec.FileField, Reason: "missing local file path"}
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, &api.ParamError{Command: name, Field: spec.FileField, Reason: err.Error()}
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for k, v := range params {
		if k == spec.FileField {
			continue
		}
		if err := form.WriteField(k, fmt.Sprint(v)); err != nil {
			return nil, &NetworkError{Op: "build multipart form", Err: err}
		}
	}
	part, err := form.CreateFormFile(spec.FileField, filepath.Base(path))
	if err != nil {
		return nil, &NetworkError{Op: "build multipart form", Err: err}
	}
	if _, err := part.Write(file); err != nil {
		return nil, &NetworkError{Op: "build multipart form", Err: err}
	}
	if err := form.Close(); err != nil {
		return nil, &NetworkError{Op: "build multipart form", Err: err}
	}

	req, err := http.NewRequest(http.MethodPost, s.adapter.baseURL+"/"+name, &buf)
	if err != nil {
		return nil, &NetworkError{Op: "build request " + name, Err: err}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return s.do(ctx, req, defaultUploadTimeout)
}

// do sends the request with the session token header and the
// per-request timeout. A timed-out request yields a nil response and
// nil error: the caller observes a null result, matching the
// transport contract.
func (s *httpSession) do(ctx context.Context, req *http.Request, timeout time.Duration) (*api.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req = req.WithContext(reqCtx)
	if s.key != "" {
		req.Header.Set("sessionKey", s.key)
	}

	resp, err := s.adapter.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			s.logger.Debug("request timed out", "url", req.URL.Path)
			return nil, nil
		}
		return nil, &NetworkError{Op: req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read response " + req.URL.Path, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Op: fmt.Sprintf("%s: HTTP %d", req.URL.Path, resp.StatusCode)}
	}
	s.logger.Debug("request done", "url", req.URL.Path, "status", resp.StatusCode)
	return api.ParseResponse(body)
}

// Shutdown stops polling, releases the gateway session and closes the
// session. It is idempotent.
func (s *httpSession) Shutdown(ctx context.Context) error {
	if !s.close() {
		return nil
	}
	if s.group != nil {
		s.group.Shutdown()
		<-s.done
	}

	if !s.adapter.cfg.SingleMode && s.adapter.cfg.VerifyKey != "" {
		release, err := http.NewRequestWithContext(ctx, http.MethodPost,
			s.adapter.baseURL+"/release",
			bytes.NewReader(mustJSON(map[string]any{"sessionKey": s.key, "qq": s.qq})))
		if err == nil {
			release.Header.Set("Content-Type", "application/json")
			release.Header.Set("sessionKey", s.key)
			if resp, err := s.adapter.client.Do(release); err == nil {
				resp.Body.Close()
			}
		}
	}
	s.logger.Info("logged out", "qq", s.qq)
	return nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
