// Package closingclient provides an HttpClient that cancels in-flight
// requests when it is closed.
package closingclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
)

// ErrClosing is returned by Do after Close was called.
var ErrClosing = errors.New("apicall client is closing")

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
	CloseIdleConnections()
}

type ClosingClient struct {
	impl HttpClient

	mu      sync.Mutex
	closing bool
	// Cancel functions of in-flight requests.
	inflight map[uint64]context.CancelFunc
	next     uint64

	wg sync.WaitGroup
}

func New(impl HttpClient) (*ClosingClient, error) {
	if impl == nil {
		return nil, errors.New("closingclient: nil HttpClient")
	}
	return &ClosingClient{
		impl:     impl,
		inflight: make(map[uint64]context.CancelFunc),
	}, nil
}

func (c *ClosingClient) Do(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithCancel(req.Context())

	id, ok := c.register(cancel)
	if !ok {
		cancel()
		return nil, ErrClosing
	}
	defer c.wg.Done()
	defer c.unregister(id)

	return c.impl.Do(req.Clone(ctx))
}

// register records an in-flight request. wg.Add runs under mu, so it
// never races with wg.Wait in Close.
func (c *ClosingClient) register(cancel context.CancelFunc) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return 0, false
	}
	c.wg.Add(1)
	id := c.next
	c.next++
	c.inflight[id] = cancel
	return id, true
}

func (c *ClosingClient) unregister(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
}

// Inflight returns the number of requests being sent.
func (c *ClosingClient) Inflight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

func (c *ClosingClient) CloseIdleConnections() {
	c.impl.CloseIdleConnections()
}

// Close cancels in-flight requests, waits for them to return and closes
// the underlying client. Later calls of Do fail with ErrClosing.
func (c *ClosingClient) Close() error {
	c.mu.Lock()
	if !c.closing {
		c.closing = true
		for _, cancel := range c.inflight {
			cancel()
		}
		c.inflight = nil
	}
	c.mu.Unlock()

	c.impl.CloseIdleConnections()

	// No new register succeeds past this point.
	c.wg.Wait()

	if closer, ok := c.impl.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
