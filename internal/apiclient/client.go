// Package apiclient talks to the Jobify REST API. It keeps the session cookie,
// maps failures to NetworkError and HTTPError, and reports 401 responses to
// subscribers before returning them.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// RequestIDHeader is set on every outgoing request.
const RequestIDHeader = "X-Request-ID"

// AuthFailure describes a request the API rejected with 401.
type AuthFailure struct {
	Method    string
	Path      string
	Status    int
	RequestID string
}

// Client calls the Jobify API on behalf of one user session.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter

	mu          sync.RWMutex
	subscribers map[uint64]func(AuthFailure)
	nextSubID   uint64
}

// Option is a function for configuring a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	transport  http.RoundTripper
	timeout    time.Duration
	limiter    *rate.Limiter
}

// WithHTTPClient uses a copy of hc for requests. Its jar, if any, holds the session.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithTransport sets the round tripper wrapped by the instrumented transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRateLimit makes every request wait for a token from l.
func WithRateLimit(l *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// New creates a Client for the API rooted at baseURL, e.g. "http://localhost:5100/api/v1".
func New(baseURL string, opts ...Option) (*Client, error) {
	var op options
	for _, opt := range opts {
		opt(&op)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	hc := &http.Client{}
	if op.httpClient != nil {
		copied := *op.httpClient
		hc = &copied
	}

	if hc.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	rt := op.transport
	if rt == nil {
		rt = hc.Transport
	}
	if rt == nil {
		rt = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(rt)

	if op.timeout > 0 {
		hc.Timeout = op.timeout
	}

	return &Client{
		baseURL:     u,
		http:        hc,
		limiter:     op.limiter,
		subscribers: make(map[uint64]func(AuthFailure)),
	}, nil
}

// OnAuthFailure registers fn to be called on every 401 response, on the goroutine
// that made the request and before the request returns. It returns a function that
// removes the subscription.
func (c *Client) OnAuthFailure(fn func(AuthFailure)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Do sends a request to path (relative to the base URL, may carry a query string).
// body is JSON-encoded unless it is a *Multipart; a 2xx JSON response is decoded into
// out unless out is nil. No request is retried.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	target, err := c.resolve(path)
	if err != nil {
		return &NetworkError{Method: method, Path: path, Err: err}
	}

	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case *Multipart:
		reader, contentType = b.Reader(), b.ContentType()
	default:
		encoded, err := codec.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader, contentType = bytes.NewReader(encoded), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return &NetworkError{Method: method, Path: path, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &NetworkError{Method: method, Path: path, Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &NetworkError{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Body:    string(data),
			Message: messageOf(data),
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.emitAuthFailure(AuthFailure{
				Method:    method,
				Path:      path,
				Status:    resp.StatusCode,
				RequestID: requestID,
			})
		}
		return httpErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := codec.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Get is Do with GET and no body.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawPath = ""
	u.RawQuery = ref.RawQuery
	return &u, nil
}

func (c *Client) emitAuthFailure(ev AuthFailure) {
	c.mu.RLock()
	subs := make([]func(AuthFailure), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func messageOf(body []byte) string {
	var payload struct {
		Msg string `json:"msg"`
	}
	if err := codec.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Msg
}
