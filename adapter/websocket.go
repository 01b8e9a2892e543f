package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/miraigo/miraigo/api"
	"github.com/miraigo/miraigo/internal/taskgroup"
)

// WebSocket transport defaults.
const (
	defaultEventSyncID     = "-1"
	defaultHeartbeat       = 60 * time.Second
	defaultRequestTimeout  = 600 * time.Second
	websocketWriteDeadline = 10 * time.Second
)

// WSConfig configures the WebSocket adapter.
type WSConfig struct {
	VerifyKey string
	// Host of the gateway WebSocket server. "//host" and bare hosts
	// get "ws" prepended; other schemes are rejected.
	Host string
	Port int
	// SyncID is the gateway's configured event-channel tag; frames
	// carrying it are events rather than command responses. Default
	// "-1".
	SyncID string
	// HeartbeatInterval between keep-alive frames. Default 60s.
	HeartbeatInterval time.Duration
	// RequestTimeout bounds each command's wait for its response
	// frame. Default 600s.
	RequestTimeout time.Duration

	Logger *slog.Logger
}

// WSAdapter drives a single duplex WebSocket channel with per-request
// correlation ids. Commands and events are demultiplexed by syncId:
// the configured event tag marks pushed events, anything else resolves
// the matching pending waiter.
type WSAdapter struct {
	cfg     WSConfig
	hostURL string
	logger  *slog.Logger
}

// NewWebSocket creates the WebSocket adapter.
func NewWebSocket(cfg WSConfig) (*WSAdapter, error) {
	base, err := normalizeHost(cfg.Host, "ws")
	if err != nil {
		return nil, err
	}
	if cfg.SyncID == "" {
		cfg.SyncID = defaultEventSyncID
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeat
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WSAdapter{
		cfg:     cfg,
		hostURL: fmt.Sprintf("%s:%d/all", base, cfg.Port),
		logger:  logger.With("adapter", "websocket"),
	}, nil
}

// Info implements Adapter.
func (a *WSAdapter) Info() Info {
	return Info{
		Kind:      "websocket",
		VerifyKey: a.cfg.VerifyKey,
		Host:      a.cfg.Host,
		Port:      a.cfg.Port,
	}
}

// wsFrame is the wire shape in both directions. Command frames also
// carry command/content/subCommand.
type wsFrame struct {
	SyncID     string          `json:"syncId"`
	Data       json.RawMessage `json:"data,omitempty"`
	Command    string          `json:"command,omitempty"`
	SubCommand string          `json:"subCommand,omitempty"`
	Content    map[string]any  `json:"content,omitempty"`
}

// wsResult delivers a demultiplexed response to its waiter.
type wsResult struct {
	data json.RawMessage
	err  error
}

type wsSession struct {
	baseSession
	adapter *WSAdapter
	conn    *websocket.Conn

	writeMu  sync.Mutex
	lastSend time.Time

	pendingMu sync.Mutex
	pending   map[string]chan wsResult

	// syncID is the local correlation counter, started at a random
	// offset so ids from successive connections are unlikely to
	// collide.
	syncMu sync.Mutex
	syncID int64

	group   *taskgroup.Group
	done    chan struct{}
	waitErr error
}

// Login connects to the gateway, performs the header handshake and
// waits for the first frame (empty syncId) carrying the session token.
func (a *WSAdapter) Login(ctx context.Context, qq int64) (Session, error) {
	headers := http.Header{}
	headers.Set("verifyKey", a.cfg.VerifyKey)
	headers.Set("qq", strconv.FormatInt(qq, 10))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.hostURL, headers)
	if err != nil {
		return nil, &NetworkError{Op: "dial " + a.hostURL, Err: err}
	}

	s := &wsSession{
		baseSession: baseSession{qq: qq, logger: a.logger},
		adapter:     a,
		conn:        conn,
		pending:     make(map[string]chan wsResult),
		syncID:      int64(rand.Intn(1024)+1) * 1024,
		done:        make(chan struct{}),
	}

	// The handshake frame arrives before the receiver loop starts.
	var frame wsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		conn.Close()
		return nil, &NetworkError{Op: "read handshake frame", Err: err}
	}
	var payload struct {
		Code    int    `json:"code"`
		Msg     string `json:"msg"`
		Session string `json:"session"`
	}
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		conn.Close()
		return nil, &NetworkError{Op: "parse handshake frame", Err: err}
	}
	if payload.Code != 0 {
		conn.Close()
		return nil, &api.Error{Code: payload.Code, Msg: payload.Msg}
	}
	s.key = payload.Session
	s.lastSend = time.Now()

	a.logger.Info("logged in", "qq", qq)
	return s, nil
}

// Start launches the receiver loop and the heartbeat task.
func (s *wsSession) Start(ctx context.Context) error {
	if err := s.beginStart(); err != nil {
		return err
	}
	s.group = taskgroup.New(ctx)
	s.group.Go(s.heartbeatLoop)
	go s.receiveLoop()
	return nil
}

// Wait blocks until the receiver loop ends. An abnormal close
// surfaces here as a NetworkError.
func (s *wsSession) Wait() error {
	<-s.done
	return s.waitErr
}

// receiveLoop is the single reader: it demultiplexes every inbound
// frame to either the event buses or the matching pending waiter.
func (s *wsSession) receiveLoop() {
	defer close(s.done)
	defer s.group.Shutdown()

	for {
		var frame wsFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if s.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.failPending(ErrSessionClosed)
				return
			}
			// Abnormal close is fatal for this transport; there is
			// no reconnect.
			s.waitErr = &NetworkError{Op: "websocket receive", Err: err}
			s.logger.Error("websocket closed abnormally", "error", err)
			s.failPending(s.waitErr)
			return
		}

		// A non-zero code inside data fails the waiter (or the
		// event emission) with the gateway's domain error.
		var status struct {
			Code *int   `json:"code"`
			Msg  string `json:"msg"`
		}
		var statusErr error
		if err := json.Unmarshal(frame.Data, &status); err == nil && status.Code != nil && *status.Code != 0 {
			statusErr = &api.Error{Code: *status.Code, Msg: status.Msg}
		}

		if frame.SyncID == s.adapter.cfg.SyncID {
			if statusErr != nil {
				s.logger.Warn("gateway pushed error frame", "error", statusErr)
				continue
			}
			raw := frame.Data
			s.group.Go(func(ctx context.Context) {
				if err := s.EmitRaw(ctx, raw); err != nil {
					s.logger.Warn("dropping undecodable event", "error", err)
				}
			})
			continue
		}

		s.resolve(frame.SyncID, wsResult{data: frame.Data, err: statusErr})
	}
}

// resolve hands a response to its waiter and removes the entry.
func (s *wsSession) resolve(syncID string, result wsResult) {
	s.pendingMu.Lock()
	ch, ok := s.pending[syncID]
	if ok {
		delete(s.pending, syncID)
	}
	s.pendingMu.Unlock()
	if !ok {
		s.logger.Debug("response without waiter", "syncId", syncID)
		return
	}
	ch <- result
}

// failPending fails every outstanding waiter, e.g. at shutdown.
func (s *wsSession) failPending(err error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for id, ch := range s.pending {
		delete(s.pending, id)
		ch <- wsResult{err: err}
	}
}

// nextSyncID returns a fresh correlation id. Ids are monotonically
// increasing, so an id is never reused while a request holds it.
func (s *wsSession) nextSyncID() string {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	s.syncID++
	return strconv.FormatInt(s.syncID, 10)
}

// CallAPI sends one command frame and waits for the frame carrying
// the same syncId. Multipart upload is not representable on this
// transport.
func (s *wsSession) CallAPI(ctx context.Context, name string, method api.Method, params map[string]any) (*api.Response, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}
	if method == api.MethodMultipart {
		return nil, fmt.Errorf("%w: multipart upload over websocket", ErrUnsupportedOperation)
	}

	syncID := s.nextSyncID()
	frame := wsFrame{
		SyncID:  syncID,
		Command: api.WireCommand(name),
		Content: params,
	}
	switch method {
	case api.MethodRestGet:
		frame.SubCommand = "get"
	case api.MethodRestPost:
		frame.SubCommand = "update"
	}

	ch := make(chan wsResult, 1)
	s.pendingMu.Lock()
	s.pending[syncID] = ch
	s.pendingMu.Unlock()

	if err := s.send(frame); err != nil {
		s.discard(syncID)
		return nil, err
	}
	s.logger.Debug("sent frame", "syncId", syncID, "command", frame.Command)

	timer := time.NewTimer(s.adapter.cfg.RequestTimeout)
	defer timer.Stop()
	select {
	case result := <-ch:
		if result.err != nil {
			return nil, result.err
		}
		return api.ParseResponse(result.data)
	case <-timer.C:
		s.discard(syncID)
		s.logger.Debug("request timed out", "syncId", syncID)
		return nil, &TimeoutError{SyncID: syncID}
	case <-ctx.Done():
		s.discard(syncID)
		return nil, ctx.Err()
	}
}

// discard removes a waiter that will never be resolved, so the
// correlation map cannot leak entries.
func (s *wsSession) discard(syncID string) {
	s.pendingMu.Lock()
	delete(s.pending, syncID)
	s.pendingMu.Unlock()
}

// send writes one frame, serialized against concurrent senders, and
// stamps the keep-alive clock.
func (s *wsSession) send(frame wsFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(websocketWriteDeadline))
	if err := s.conn.WriteJSON(frame); err != nil {
		return &NetworkError{Op: "websocket send", Err: err}
	}
	s.lastSend = time.Now()
	return nil
}

// heartbeatLoop sends a keep-alive when nothing has been written for
// one interval. The payload is an ordinary `about` command frame; the
// reply flows through the normal correlation path and is discarded.
func (s *wsSession) heartbeatLoop(ctx context.Context) {
	interval := s.adapter.cfg.HeartbeatInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			idle := time.Since(s.lastSend)
			s.writeMu.Unlock()
			if idle < interval {
				continue
			}
			hbCtx, cancel := context.WithTimeout(ctx, interval)
			if _, err := s.CallAPI(hbCtx, "about", api.MethodGet, nil); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Debug("heartbeat failed", "error", err)
			}
			cancel()
		}
	}
}

// PendingRequests returns the number of in-flight correlation
// entries.
func (s *wsSession) PendingRequests() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

// Shutdown closes the connection and waits for the receiver loop;
// waiters pending at that point fail. It is idempotent.
func (s *wsSession) Shutdown(ctx context.Context) error {
	if !s.close() {
		return nil
	}
	s.writeMu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(websocketWriteDeadline))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "logout"))
	s.writeMu.Unlock()
	s.conn.Close()

	if s.group != nil {
		s.group.Shutdown()
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.logger.Info("logged out", "qq", s.qq)
	return nil
}
