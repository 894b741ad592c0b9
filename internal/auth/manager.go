// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth provides the client-side session manager.
// It performs login, logout and current-user refresh against the identity
// backend, caches the single current session, answers role checks against it,
// and drives the SSO code exchange.
//
// The cached session is process memory only. Continuity across restarts comes
// from the backend-issued cookies held by the transport.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"cortex/cli/internal/backend"
	cerrors "cortex/cli/internal/errors"
	"cortex/cli/internal/logging"

	"github.com/pterm/pterm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const name = "cortex/cli/internal/auth"

// DefaultTimeout bounds every backend round trip unless overridden.
const DefaultTimeout = 30 * time.Second

// maxSSOCodeLen bounds the size of an SSO code placed in a URL.
const maxSSOCodeLen = 4096

// Manager owns the current session and the operations that change it.
//
// Overlapping calls are not serialized: when two Current calls are in flight,
// whichever completes last determines the cached session.
type Manager struct {
	api     backend.API
	log     *pterm.Logger
	timeout time.Duration

	mu      sync.RWMutex
	current *Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *pterm.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithTimeout sets the per-operation deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// NewManager constructs a Manager over the given backend. The session starts absent.
func NewManager(api backend.API, opts ...Option) *Manager {
	m := &Manager{
		api:     api,
		log:     logging.Discard(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NormalizeUsername is applied to every username before login: surrounding
// space is trimmed and the name is lowercased.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Login authenticates the credential pair and returns the backend payload.
// It does not touch the cached session; call Current afterwards to load it.
// Backend errors are returned unchanged.
func (m *Manager) Login(ctx context.Context, username, password string) (json.RawMessage, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.Login()")
	defer span.End()

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	user := NormalizeUsername(username)
	m.log.Debug("login", m.log.Args("user", user))

	payload, err := m.api.Login(ctx, user, password)
	if err != nil {
		err = m.classify(ctx, "login", err)
		recordError(span, err)
		m.log.Debug("login failed", m.log.Args("user", user, "error", logging.Mask(err.Error())))
		return nil, err
	}
	return payload, nil
}

// Logout ends the backend session. The cached session is cleared only when
// the backend confirms; on failure it is left as it was.
func (m *Manager) Logout(ctx context.Context) error {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.Logout()")
	defer span.End()

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.api.Logout(ctx); err != nil {
		err = m.classify(ctx, "logout", err)
		recordError(span, err)
		m.log.Debug("logout failed, session kept", m.log.Args("error", logging.Mask(err.Error())))
		return err
	}
	m.set(nil)
	m.log.Debug("logged out")
	return nil
}

// Current asks the backend who is logged in and replaces the cached session
// with the answer. Any failure, including an undecodable payload, clears the
// cached session before the error is returned.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.Current()")
	defer span.End()

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	payload, err := m.api.CurrentUser(ctx)
	if err != nil {
		m.set(nil)
		err = m.classify(ctx, "current user", err)
		recordError(span, err)
		m.log.Debug("current user failed, session cleared", m.log.Args("error", logging.Mask(err.Error())))
		return nil, err
	}

	s, err := ParseSession(payload)
	if err != nil {
		m.set(nil)
		err = cerrors.Wrap(cerrors.Decode, "current user payload", err)
		recordError(span, err)
		m.log.Debug("current user payload rejected, session cleared", m.log.Args("error", err.Error()))
		return nil, err
	}

	m.set(s)
	m.log.Debug("session loaded", m.log.Args("id", s.ID, "roles", strings.Join(s.Roles, ",")))
	return s.Clone(), nil
}

// Session returns a copy of the cached session, or nil when absent.
func (m *Manager) Session() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// Authenticated reports whether a session is cached.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}

// HasRole reports whether the cached session holds at least one of roles.
// Matching is exact and case-sensitive. It is false when no session is cached.
func (m *Manager) HasRole(roles ...string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return false
	}
	return m.current.Roles.HasAny(roles...)
}

// IsOrgAdmin reports whether s carries an org admin role. It looks only at
// its argument, never at the cached session.
func (m *Manager) IsOrgAdmin(s *Session) bool {
	return s.IsOrgAdmin()
}

// IsSuperAdmin reports whether s carries a super admin role. It looks only at
// its argument, never at the cached session.
func (m *Manager) IsSuperAdmin(s *Session) bool {
	return s.IsSuperAdmin()
}

// SSOResult is the transport-level answer of an SSO exchange.
type SSOResult struct {
	Payload    json.RawMessage
	StatusCode int
	Header     http.Header
}

// Location returns the redirect target the backend asked for, if any.
func (r *SSOResult) Location() string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get("Location")
}

// SSOLogin calls the SSO endpoint, with code as a query parameter when it is
// not empty. A malformed code is rejected before any request is made.
// The cached session is not changed; call Current once the exchange is done.
func (m *Manager) SSOLogin(ctx context.Context, code string) (*SSOResult, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Manager.SSOLogin()")
	defer span.End()

	if err := ValidateSSOCode(code); err != nil {
		recordError(span, err)
		return nil, err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	m.log.Debug("sso login", m.log.Args("with_code", code != ""))
	resp, err := m.api.SSOLogin(ctx, code)
	if err != nil {
		err = m.classify(ctx, "sso login", err)
		recordError(span, err)
		m.log.Debug("sso login failed", m.log.Args("error", logging.Mask(err.Error())))
		return nil, err
	}

	res := &SSOResult{Payload: resp.Body, StatusCode: resp.StatusCode, Header: resp.Header}
	if loc := res.Location(); loc != "" {
		m.log.Debug("sso redirect", m.log.Args("location", logging.Mask(loc)))
	}
	return res, nil
}

// ValidateSSOCode accepts the empty code (bare endpoint) or a single token
// with no whitespace or control characters.
func ValidateSSOCode(code string) error {
	if code == "" {
		return nil
	}
	if len(code) > maxSSOCodeLen {
		return cerrors.New(cerrors.Configuration, fmt.Sprintf("sso code longer than %d bytes", maxSSOCodeLen))
	}
	for _, r := range code {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar {
			return cerrors.New(cerrors.Configuration, "sso code must be a single token")
		}
	}
	return nil
}

func (m *Manager) set(s *Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// classify marks deadline failures as timeouts and passes everything else through.
func (m *Manager) classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return cerrors.Wrap(cerrors.Timeout, fmt.Sprintf("%s: no answer within %s", op, m.timeout), err)
	}
	return err
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
