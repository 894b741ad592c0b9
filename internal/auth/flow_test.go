// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"cortex/cli/internal/auth"
	"cortex/cli/internal/backend"
	"cortex/cli/internal/backendtest"
	cerrors "cortex/cli/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlow_LoginRefreshLogout(t *testing.T) {
	t.Parallel()

	srv := backendtest.New(t)
	srv.AddUser("alice", "pw", map[string]any{"id": 1, "roles": []string{"user"}})
	m := auth.NewManager(backend.New(srv.URL, backend.Endpoints{}))
	ctx := context.Background()

	assert.False(t, m.HasRole("user"))

	_, err := m.Login(ctx, "ALICE", "pw")
	require.NoError(t, err)
	assert.False(t, m.Authenticated(), "login alone must not load a session")

	s, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", s.ID)
	assert.JSONEq(t, `{"id":1,"roles":["user"]}`, string(s.Raw))
	assert.True(t, m.HasRole("user"))

	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.HasRole("user"))
	assert.Equal(t, 0, srv.ActiveSessions())

	// the backend no longer knows us, so a refresh stays logged out
	_, err = m.Current(ctx)
	assert.True(t, backend.IsStatus(err, http.StatusUnauthorized))
	assert.False(t, m.Authenticated())
}

func TestFlow_FailedLogoutKeepsSession(t *testing.T) {
	t.Parallel()

	srv := backendtest.New(t)
	srv.AddUser("alice", "pw", map[string]any{"roles": []string{"user"}})
	m := auth.NewManager(backend.New(srv.URL, backend.Endpoints{}))
	ctx := context.Background()

	_, err := m.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	_, err = m.Current(ctx)
	require.NoError(t, err)

	srv.Fail("/api/logout", backend.StatusCustom, `{"message":"Logout blocked"}`)
	err = m.Logout(ctx)
	require.True(t, backend.IsStatus(err, backend.StatusCustom))
	assert.True(t, m.HasRole("user"))

	srv.Recover("/api/logout")
	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.Authenticated())
}

func TestFlow_SSO(t *testing.T) {
	t.Parallel()

	srv := backendtest.New(t)
	srv.AddUser("carol", "", map[string]any{"roles": []string{"orgadmin"}})
	srv.AddSSOCode("abc123", "carol")
	m := auth.NewManager(backend.New(srv.URL, backend.Endpoints{}))
	ctx := context.Background()

	res, err := m.SSOLogin(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, srv.SSOLocation, res.Location())

	res, err = m.SSOLogin(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Location())
	assert.Equal(t, []string{"", "code=abc123"}, srv.SSOQueries())
	assert.False(t, m.Authenticated())

	s, err := m.Current(ctx)
	require.NoError(t, err)
	assert.True(t, m.IsOrgAdmin(s))

	_, err = m.SSOLogin(ctx, "abc 123")
	assert.True(t, cerrors.Is(err, cerrors.Configuration))
	assert.Len(t, srv.SSOQueries(), 2, "invalid code must not reach the backend")
}

func TestFlow_HungBackendTimesOut(t *testing.T) {
	t.Parallel()

	srv := backendtest.New(t)
	srv.Hang("/api/user/current")
	m := auth.NewManager(backend.New(srv.URL, backend.Endpoints{}), auth.WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := m.Current(context.Background())
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.Timeout))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, srv.Calls("/api/user/current"), "failures are never retried")
}
