// Package debugclient provides an HttpClient that logs every request as a
// curl command and every response as a raw HTTP dump.
package debugclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"sync/atomic"

	"moul.io/http2curl"
)

const redacted = "REDACTED"

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
	CloseIdleConnections()
}

type DebugClient struct {
	impl   HttpClient
	logger *slog.Logger
	level  slog.Level
	n      atomic.Uint64
}

// New wraps impl. Dumps are logged at debug level; a nil logger means
// slog.Default().
func New(impl HttpClient, logger *slog.Logger) (*DebugClient, error) {
	if impl == nil {
		return nil, fmt.Errorf("debugclient: nil HttpClient")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugClient{
		impl:   impl,
		logger: logger,
		level:  slog.LevelDebug,
	}, nil
}

// WithLevel returns a copy of the client logging at level.
func (c *DebugClient) WithLevel(level slog.Level) *DebugClient {
	return &DebugClient{
		impl:   c.impl,
		logger: c.logger,
		level:  level,
	}
}

func (c *DebugClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if !c.logger.Enabled(ctx, c.level) {
		return c.impl.Do(req)
	}
	n := c.n.Add(1)

	curl, err := http2curl.GetCurlCommand(sanitize(req))
	if err != nil {
		return nil, fmt.Errorf("http2curl.GetCurlCommand failed for %d: %w", n, err)
	}
	c.log(ctx, "client request", n, slog.String("curl", curl.String()))

	res, err := c.impl.Do(req)
	if err != nil {
		c.log(ctx, "client request failed", n, slog.Any("error", err))
		return nil, err
	}

	dump, err := httputil.DumpResponse(res, true)
	if err != nil {
		res.Body.Close()
		return nil, fmt.Errorf("httputil.DumpResponse failed for %d: %w", n, err)
	}
	c.log(ctx, "server response", n, slog.String("dump", string(dump)))

	return res, nil
}

func (c *DebugClient) log(ctx context.Context, msg string, n uint64, attr slog.Attr) {
	c.logger.LogAttrs(ctx, c.level, msg, slog.Uint64("n", n), attr)
}

// sanitize hides credentials from the log. The clone must not share the
// body reader with req, since GetCurlCommand drains it.
func sanitize(req *http.Request) *http.Request {
	if req.Header.Get("Authorization") == "" {
		return req
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", redacted)
	clone.Body = http.NoBody
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			clone.Body = body
		}
	}
	return clone
}

func (c *DebugClient) CloseIdleConnections() {
	c.impl.CloseIdleConnections()
}
