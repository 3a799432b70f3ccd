package apicall

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
	CloseIdleConnections()
}

// Client calls actions of a running server as typed functions.
type Client struct {
	actions       map[string]*Action
	client        HttpClient
	baseURL       string
	logger        *slog.Logger
	maxBody       int64
	codec         Codec
	classifier    classifier
	header        http.Header
	authorization string

	// Session cookies collected from responses, in order of first appearance.
	mu      sync.Mutex
	cookies []*http.Cookie
}

// RequestPlan is a fully encoded request.
type RequestPlan struct {
	Method string
	// Path without a leading slash.
	Path string
	// Query is empty or starts with "?".
	Query  string
	Header http.Header
	Body   *Payload
}

// NewClient creates new instance of client.
//
// The list of actions must provide all actions this client is aware of.
// Resolved routes are appended to baseURL. Action keys ("Resource.Action")
// must be unique. NewClient panics if the table is malformed.
func NewClient(actions []*Action, baseURL string, opts ...Option) *Client {
	actionMap := make(map[string]*Action, len(actions))
	for _, action := range actions {
		validateAction(action)
		key := action.Key()
		if _, has := actionMap[key]; has {
			panic(fmt.Sprintf("Already has an action %s.", key))
		}
		actionMap[key] = action
	}

	config := NewDefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	client := config.client
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return &Client{
		actions: actionMap,
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  config.logger,
		maxBody: config.maxBody,
		codec:   config.codec,
		classifier: classifier{
			sink:   config.sink,
			logger: config.logger,
		},
		header:        config.header,
		authorization: config.authorization,
	}
}

// Call invokes the action named desc.Method with desc.Args and translates
// the response into the declared return shape.
//
// Non-2xx statuses not mapped by a union variant yield *StatusError.
func (c *Client) Call(ctx context.Context, desc CallDescriptor) (any, error) {
	action, has := c.actions[desc.Method]
	if !has {
		panic(fmt.Sprintf("No registered action %s.", desc.Method))
	}

	plan, err := c.Plan(action, desc.Args...)
	if err != nil {
		return nil, err
	}

	raw, err := c.dispatch(ctx, plan)
	if err != nil {
		return nil, err
	}

	shape := action.Returns
	if desc.Returns != nil {
		shape = *desc.Returns
	}
	return translate(&shape, raw, c.codec)
}

// Plan encodes a call of action without sending it.
func (c *Client) Plan(action *Action, args ...any) (*RequestPlan, error) {
	params := c.classifier.classify(action.Params, args)

	template := routeTemplate(action)
	path := substitute(template, params)
	if missing := unresolvedPlaceholders(path); len(missing) != 0 {
		return nil, &MalformedRouteError{
			Template: template,
			Path:     path,
			Missing:  missing,
		}
	}

	header := make(http.Header)
	for _, p := range params {
		if p.Source != SourceHeader || p.Consumed || isNil(p.Value) {
			continue
		}
		p.Consumed = true
		eachScalar(p.Value, func(_ int, text string) {
			header.Add(p.Name, text)
		})
	}

	hasBody := carriesBody(action.Method)
	if hasBody && wantsMultipart(params) {
		promoteToForm(params)
	}
	if !hasBody {
		demoteToQuery(params)
	}

	plan := &RequestPlan{
		Method: action.Method,
		Path:   path,
		Query:  encodeQuery(params),
		Header: header,
	}
	if hasBody {
		body, err := encodeBody(params, c.codec)
		if err != nil {
			return nil, err
		}
		plan.Body = body
	}

	for _, p := range params {
		if !p.Consumed && !isNil(p.Value) {
			c.logger.Debug("parameter was not sent",
				slog.String("action", action.Key()),
				slog.String("name", p.Name),
				slog.String("source", p.Source.String()))
		}
	}

	return plan, nil
}

// demoteToQuery moves objects bound to the body by default into the query
// string of a request that has no body.
func demoteToQuery(params []*BoundParameter) {
	for _, p := range params {
		if !p.Consumed && !p.Explicit && p.Source == SourceBody {
			p.Source = SourceQuery
		}
	}
}

func (c *Client) dispatch(ctx context.Context, plan *RequestPlan) (*RawResponse, error) {
	url := c.baseURL + "/" + plan.Path + plan.Query

	var body io.Reader
	if plan.Body != nil {
		body = bytes.NewReader(plan.Body.Data)
	}
	req, err := http.NewRequestWithContext(ctx, plan.Method, url, body)
	if err != nil {
		return nil, &TransportError{Method: plan.Method, URL: url, Err: err}
	}

	for key, values := range c.header {
		req.Header[key] = append([]string(nil), values...)
	}
	for key, values := range plan.Header {
		req.Header[key] = values
	}
	if plan.Body != nil {
		req.Header.Set("Content-Type", plan.Body.ContentType)
	}
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}
	for _, cookie := range c.Cookies() {
		req.AddCookie(cookie)
	}

	c.logger.Debug("sending request", slog.String("method", plan.Method), slog.String("url", url))

	res, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: plan.Method, URL: url, Err: err}
	}
	res.Body = http.MaxBytesReader(nil, res.Body, c.maxBody)
	defer func() {
		if err := res.Body.Close(); err != nil {
			c.logger.Warn("failed to close response body", slog.String("url", url), slog.Any("error", err))
		}
	}()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{Method: plan.Method, URL: url, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	c.storeCookies(res.Cookies())

	c.logger.Debug("received response",
		slog.String("method", plan.Method),
		slog.String("url", url),
		slog.Int("status", res.StatusCode),
		slog.Int("size", len(data)))

	return &RawResponse{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Header:     res.Header,
		Body:       data,
	}, nil
}

// Cookies returns the session cookies sent with every request.
func (c *Client) Cookies() []*http.Cookie {
	c.mu.Lock()
	defer c.mu.Unlock()
	cookies := make([]*http.Cookie, len(c.cookies))
	copy(cookies, c.cookies)
	return cookies
}

// storeCookies merges Set-Cookie values into the session. A name set
// again replaces its previous value; a negative MaxAge removes it.
func (c *Client) storeCookies(set []*http.Cookie) {
	if len(set) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cookie := range set {
		i := 0
		for i < len(c.cookies) && c.cookies[i].Name != cookie.Name {
			i++
		}
		switch {
		case cookie.MaxAge < 0:
			if i < len(c.cookies) {
				c.cookies = append(c.cookies[:i], c.cookies[i+1:]...)
			}
		case i < len(c.cookies):
			c.cookies[i] = &http.Cookie{Name: cookie.Name, Value: cookie.Value}
		default:
			c.cookies = append(c.cookies, &http.Cookie{Name: cookie.Name, Value: cookie.Value})
		}
	}
}

func (c *Client) Close() error {
	c.client.CloseIdleConnections()

	if closer, ok := c.client.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return err
		}
	}

	return nil
}

// Invoke calls an action and returns its result as T. A nil result, as
// returned for ReturnsNothing, gives the zero T.
func Invoke[T any](ctx context.Context, c *Client, method string, args ...any) (T, error) {
	var zero T
	res, err := c.Call(ctx, CallDescriptor{Method: method, Args: args})
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("result of %s is %T, not %s", method, res, typeName[T]())
	}
	return v, nil
}
