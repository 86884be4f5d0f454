// Package apiclient is the JSON transport shared by the admin and user clients.
// It owns the cookie jar that carries the backend's httpOnly refresh cookie and
// turns every failure into a tagged *errors.APIError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	apperrors "github.com/fishmapai/fishmap-gateway/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json"
	maxErrorBody    = 64 << 10
)

// Observer receives the outcome of every backend call.
type Observer interface {
	ObserveBackend(method, path string, status int, elapsed time.Duration)
}

type Client struct {
	baseURL  string
	http     *http.Client
	observer Observer
}

type Option func(*Client)

// WithTransport replaces the round tripper; the cookie jar is kept.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New creates a client with its own cookie jar. One jar represents one
// browser, so each session needs its own client (see Fork).
func New(baseURL string, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("[apiclient New] base URL is required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("[apiclient New] cookie jar: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Fork returns a client that shares the transport, timeout and observer but
// starts with an empty cookie jar.
func (c *Client) Fork() *Client {
	jar, _ := cookiejar.New(nil) // cookiejar.New only fails on a broken PublicSuffixList
	return &Client{
		baseURL: c.baseURL,
		http: &http.Client{
			Jar:       jar,
			Timeout:   c.http.Timeout,
			Transport: c.http.Transport,
		},
		observer: c.observer,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient exposes the cookie-carrying client for callers that build their own requests.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// errorBody is the backend's error shape. Some endpoints use "message" instead of "msg".
type errorBody struct {
	Msg       string `json:"msg"`
	Message   string `json:"message"`
	NeedLogin bool   `json:"needLogin"`
}

// Do sends body as JSON (when non-nil) and decodes a 2xx response into out
// (when non-nil). Cookies travel with every request.
func (c *Client) Do(ctx context.Context, method, path string, header http.Header, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrapf(err, "[apiclient Do] encode %s %s", method, path)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrapf(err, "[apiclient Do] build %s %s", method, path)
	}
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(method, path, 0, start)
		log.Debug().Err(err).Str("method", method).Str("path", path).Msg("backend unreachable")
		return apperrors.NewNetworkError(err)
	}
	defer resp.Body.Close()
	c.observe(method, path, resp.StatusCode, start)

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return &apperrors.APIError{
			Kind:   apperrors.KindServer,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("decode %s %s: %w", method, path, err),
		}
	}
	return nil
}

func (c *Client) observe(method, path string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveBackend(method, path, status, time.Since(start))
	}
}

func statusError(resp *http.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body) // a non-JSON error page still yields a tagged error
	}
	msg := body.Msg
	if msg == "" {
		msg = body.Message
	}
	return apperrors.NewStatusError(resp.StatusCode, msg, body.NeedLogin)
}

// BearerHeader builds the Authorization header for an access token.
func BearerHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
