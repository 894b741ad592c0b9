// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

// maxBodySize bounds how much of a response body is read into memory.
const maxBodySize = 4 << 20

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTP implements API over REST endpoints.
// Session continuity comes from the cookies the backend issues; they live in
// the client's cookie jar.
type HTTP struct {
	// baseURL is the base URL for all HTTP requests (e.g., "https://cortex.example.com")
	baseURL string
	// endpoints contains the URL paths for the API endpoints
	endpoints Endpoints
	// client performs the requests
	client Doer
	// userAgent is sent on every request
	userAgent string
}

// Option configures an HTTP client.
type Option func(*HTTP)

// WithDoer replaces the default HTTP client.
func WithDoer(d Doer) Option {
	return func(h *HTTP) { h.client = d }
}

// WithUserAgent sets the User-Agent header value.
func WithUserAgent(ua string) Option {
	return func(h *HTTP) { h.userAgent = ua }
}

// New creates a backend API implementation for the given base URL.
// Empty endpoint paths fall back to DefaultEndpoints.
func New(baseURL string, endpoints Endpoints, opts ...Option) *HTTP {
	h := &HTTP{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: endpoints.WithDefaults(),
		userAgent: "cortex-cli",
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		h.client = NewClient(jar)
	}
	return h
}

// NewClient returns an *http.Client that keeps cookies in jar and never
// follows redirects, so a Location header reaches the caller.
// Deadlines come from the request context.
func NewClient(jar http.CookieJar) *http.Client {
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// setStandardHeaders adds the headers every backend request carries.
func (h *HTTP) setStandardHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, */*")
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
}

// do sends a request and returns the response with its body fully read.
// Only network failures are returned as errors; status handling is up to the caller.
func (h *HTTP) do(ctx context.Context, method, path string, payload any) (*http.Response, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return nil, nil, err
	}
	h.setStandardHeaders(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, b, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}
