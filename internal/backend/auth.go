// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// loginRequest is the body of POST /api/login.
type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// Login calls POST /api/login with { user, password }.
// The payload is backend-defined; it is returned untouched.
func (h *HTTP) Login(ctx context.Context, username, password string) (json.RawMessage, error) {
	resp, body, err := h.do(ctx, http.MethodPost, h.endpoints.Login, loginRequest{User: username, Password: password})
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, newError("login", resp.StatusCode, body)
	}
	return rawOrString(body), nil
}

// Logout calls GET /api/logout. The response payload is ignored.
func (h *HTTP) Logout(ctx context.Context) error {
	resp, body, err := h.do(ctx, http.MethodGet, h.endpoints.Logout, nil)
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return newError("logout", resp.StatusCode, body)
	}
	return nil
}

// CurrentUser calls GET /api/user/current and returns the session payload.
func (h *HTTP) CurrentUser(ctx context.Context) (json.RawMessage, error) {
	resp, body, err := h.do(ctx, http.MethodGet, h.endpoints.Current, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, newError("current user", resp.StatusCode, body)
	}
	return json.RawMessage(bytes.TrimSpace(body)), nil
}

// SSOLogin calls POST /api/ssoLogin, or /api/ssoLogin?code=<code> when a code
// is given, with an empty JSON object body.
// Redirect answers count as success: their Location header is the point.
func (h *HTTP) SSOLogin(ctx context.Context, code string) (*Response, error) {
	resp, body, err := h.do(ctx, http.MethodPost, SSOPath(h.endpoints.SSOLogin, code), struct{}{})
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) && !isRedirect(resp.StatusCode) {
		return nil, newError("sso login", resp.StatusCode, body)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       rawOrString(body),
	}, nil
}

// SSOPath returns the SSO endpoint path, with code appended as a query
// parameter when it is not empty.
func SSOPath(endpoint, code string) string {
	if code == "" {
		return endpoint
	}
	return endpoint + "?" + url.Values{"code": {code}}.Encode()
}
