// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides interfaces and implementations for communicating with the identity backend.
// It defines the API contract for login, logout, current-user lookup and SSO code exchange.
// The package includes both interface definitions and an HTTP-based implementation.
package backend

import (
	"context"
	"encoding/json"
	"net/http"
)

// API defines backend operations the session manager depends on.
// Implementations may call real HTTP endpoints or provide mocks for tests.
type API interface {
	// Login posts the credential pair and returns the raw response payload.
	Login(ctx context.Context, username, password string) (json.RawMessage, error)
	// Logout invalidates the session on the backend.
	Logout(ctx context.Context) error
	// CurrentUser returns the raw "who am I" payload for the active session.
	CurrentUser(ctx context.Context) (json.RawMessage, error)
	// SSOLogin exchanges an SSO code. An empty code calls the bare endpoint.
	// 3xx responses are returned as successes so the Location header is visible.
	SSOLogin(ctx context.Context, code string) (*Response, error)
	// Status returns backend versions and the enabled authentication types.
	Status(ctx context.Context) (*ServerStatus, error)
}

// Response is a transport-level view of a successful backend answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage
}
