package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// WebServer is the shared HTTP front-end hosting webhook endpoints.
// It is an explicit object owned by the application: multiple
// adapters register distinct routes on one server, and the bot facade
// runs it. There is no process-wide singleton.
type WebServer struct {
	engine *gin.Engine
	logger *slog.Logger
}

// NewWebServer creates a web server front-end.
func NewWebServer(logger *slog.Logger) *WebServer {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	return &WebServer{engine: engine, logger: logger.With("component", "webserver")}
}

// Engine exposes the underlying router so applications can mount
// their own routes beside the webhook endpoints.
func (s *WebServer) Engine() *gin.Engine { return s.engine }

// Handle registers a route. Registering the same method+path twice
// panics (gin's contract); adapters must use distinct routes.
func (s *WebServer) Handle(method, path string, handler gin.HandlerFunc) {
	s.engine.Handle(method, path, handler)
	s.logger.Debug("route registered", "method", method, "path", path)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *WebServer) Run(ctx context.Context, host string, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return &NetworkError{Op: "serve " + srv.Addr, Err: err}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
