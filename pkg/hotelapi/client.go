// Package hotelapi is the typed client for the hotel booking REST backend.
//
// Every call either returns canonical model values or fails with one of
// *NetworkError, *APIError or ErrSessionAbsent. The client never retries and
// never navigates; callers decide what a failure means for the user.
package hotelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/diagnosis/hotel-web/pkg/logger"
	"github.com/diagnosis/hotel-web/pkg/session"
)

const maxBodyBytes = 4 << 20

type authMode int

const (
	authNone     authMode = iota // login, register
	authOptional                 // public catalogue: token sent when present
	authRequired                 // fails with ErrSessionAbsent without a session
)

type Client struct {
	baseURL string
	http    *http.Client
	store   session.Store
	breaker *gobreaker.CircuitBreaker
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Timeouts are whatever the
// supplied client carries.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBreaker routes every request through cb. Share one breaker across
// clients that talk to the same backend.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// NewBreaker trips after maxFailures consecutive transport failures and
// stays open for openTimeout.
func NewBreaker(name string, maxFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker {
	if maxFailures == 0 {
		maxFailures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithStore returns a copy bound to another session cell, sharing the
// transport and breaker.
func (c *Client) WithStore(store session.Store) *Client {
	cp := *c
	cp.store = store
	return &cp
}

func (c *Client) Store() session.Store {
	return c.store
}

func (c *Client) current(ctx context.Context) (session.Session, bool) {
	if c.store == nil {
		return session.Session{}, false
	}
	return c.store.Get(ctx)
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	auth   authMode
}

// do performs the call and returns the trimmed response body, which is empty
// for bodiless successes.
func (c *Client) do(ctx context.Context, in call) ([]byte, error) {
	var token string
	if in.auth != authNone {
		sess, ok := c.current(ctx)
		if !ok && in.auth == authRequired {
			return nil, fmt.Errorf("hotelapi: %s: %w", in.op, ErrSessionAbsent)
		}
		token = sess.Token
	}

	target := c.baseURL + in.path
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}

	var bodyReader io.Reader
	if in.body != nil {
		payload, err := json.Marshal(in.body)
		if err != nil {
			return nil, fmt.Errorf("hotelapi: %s: encode request: %w", in.op, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, in.method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("hotelapi: %s: build request: %w", in.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestID, ok := ctx.Value(logger.RequestIDKey).(string); ok && requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	logger.DebugContext(ctx, "Calling hotel API", "op", in.op, "method", in.method, "url", target)

	resp, err := c.send(req)
	if err != nil {
		return nil, &NetworkError{Op: in.op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Op: in.op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: in.op, Status: resp.StatusCode, Message: extractMessage(body, resp.StatusCode)}
		logger.DebugContext(ctx, "Hotel API returned error", "op", in.op, "status", resp.StatusCode, "message", apiErr.Message)
		return nil, apiErr
	}
	return bytes.TrimSpace(body), nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.http.Do(req)
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.http.Do(req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("backend unavailable: %w", err)
		}
		return nil, err
	}
	return out.(*http.Response), nil
}

// decode unmarshals body into out. An empty body is a bodiless success and
// reports false without touching out.
func decode(op string, body []byte, out any) (bool, error) {
	if len(body) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("hotelapi: %s: %w: %v", op, ErrMalformed, err)
	}
	return true, nil
}

func pagePath(prefix string, page int) (string, error) {
	if page < 0 {
		return "", ErrInvalidPage
	}
	return fmt.Sprintf("%s/%d", prefix, page), nil
}

func isJSONBool(body []byte) bool {
	s := string(body)
	return s == "true" || s == "false"
}
