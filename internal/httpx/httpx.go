// Package httpx builds the outbound HTTP client shared by the gateway
// transports. The HTTP-poll adapter hits the same gateway host every
// poll tick for the lifetime of the process, so the transport pins
// explicit dial and TLS deadlines, keeps a small warm idle pool for
// that single host, and can retry requests that die on a transient
// connection error before the gateway saw them.
package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Transport deadlines and pool sizing for the single-gateway case.
const (
	dialTimeout           = 10 * time.Second
	tcpKeepAlive          = 30 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 15 * time.Second
	idleConnTimeout       = 90 * time.Second
	maxIdleConns          = 8
)

// NewTransport returns the tuned transport. All idle capacity goes to
// one host; there is no fan-out to spread it across.
func NewTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: tcpKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		IdleConnTimeout:       idleConnTimeout,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConns,
	}
}

// NewClient returns a client on the tuned transport. retries > 0 adds
// transparent retry of transient connection failures, spaced by delay.
// The overall request deadline is left to the caller's context, so no
// client-level timeout is set.
func NewClient(retries int, delay time.Duration, logger *slog.Logger) *http.Client {
	var rt http.RoundTripper = NewTransport()
	if retries > 0 {
		rt = &retryRoundTripper{next: rt, retries: retries, delay: delay, logger: logger}
	}
	return &http.Client{Transport: rt}
}

// retryRoundTripper re-dispatches requests that failed with a
// transient connection error. Requests with a body are retried only
// when GetBody can rewind it (true for the byte-buffer bodies the
// adapters build).
type retryRoundTripper struct {
	next    http.RoundTripper
	retries int
	delay   time.Duration
	logger  *slog.Logger
}

func (t *retryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	for attempt := 1; attempt <= t.retries; attempt++ {
		if err == nil || !transient(err) {
			return resp, err
		}
		if req.Body != nil && req.GetBody == nil {
			return resp, err
		}

		if t.logger != nil {
			t.logger.Debug("retrying after transient connection error",
				"url", req.URL.String(),
				"attempt", attempt,
				"error", err,
			)
		}
		timer := time.NewTimer(t.delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
		if req.GetBody != nil {
			body, rewindErr := req.GetBody()
			if rewindErr != nil {
				return nil, fmt.Errorf("rewind request body: %w", rewindErr)
			}
			req.Body = body
		}

		resp, err = t.next.RoundTrip(req)
	}
	return resp, err
}

// transient reports whether err is a connection-level failure worth
// retrying: the request never completed against the gateway, so a
// second attempt cannot duplicate work.
func transient(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		var opErr *net.OpError
		if !errors.As(err, &opErr) || !errors.As(opErr.Err, &errno) {
			return false
		}
	}
	switch errno {
	case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EHOSTUNREACH, syscall.ENETUNREACH:
		return true
	}
	return false
}
