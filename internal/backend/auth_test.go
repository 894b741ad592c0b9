// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cortex/cli/internal/backend"
	"cortex/cli/internal/backendtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSOPath(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{name: "no code", code: "", want: "/api/ssoLogin"},
		{name: "plain code", code: "abc123", want: "/api/ssoLogin?code=abc123"},
		{name: "code needing escape", code: "a/b+c=", want: "/api/ssoLogin?code=a%2Fb%2Bc%3D"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backend.SSOPath("/api/ssoLogin", tt.code))
		})
	}
}

func TestHTTP_LoginAndCurrentUser(t *testing.T) {
	t.Parallel()

	srv := backendtest.New(t)
	srv.AddUser("alice", "s3cret", map[string]any{"name": "Alice", "roles": []string{"read", "analyze"}})
	be := backend.New(srv.URL, backend.Endpoints{})
	ctx := context.Background()

	_, err := be.CurrentUser(ctx)
	require.Error(t, err)
	assert.True(t, backend.IsStatus(err, http.StatusUnauthorized))

	payload, err := be.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"alice","name":"Alice","roles":["read","analyze"]}`, string(payload))

	current, err := be.CurrentUser(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"alice","name":"Alice","roles":["read","analyze"]}`, string(current))

	require.NoError(t, be.Logout(ctx))
	assert.Equal(t, 0, srv.ActiveSessions())

	_, err = be.CurrentUser(ctx)
	assert.True(t, backend.IsStatus(err, http.StatusUnauthorized))
}

func TestHTTP_LoginRejected(t *testing.T) {
	t.Parallel()

	srv := backendtest.New(t)
	srv.AddUser("alice", "s3cret", nil)
	be := backend.New(srv.URL, backend.Endpoints{})

	_, err := be.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)

	var be2 *backend.Error
	require.True(t, errors.As(err, &be2))
	assert.Equal(t, http.StatusUnauthorized, be2.Status)
	assert.Equal(t, "Authentication failure", be2.Message)
	assert.Equal(t, "login", be2.Op)
	assert.JSONEq(t, `{"type":"AuthenticationError","message":"Authentication failure"}`, string(be2.Data))
}

func TestHTTP_ErrorPassThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantData    string
	}{
		{
			name:        "custom status with json payload",
			status:      backend.StatusCustom,
			body:        `{"message":"Custom failure","details":{"field":"user"}}`,
			wantMessage: "Custom failure",
			wantData:    `{"message":"Custom failure","details":{"field":"user"}}`,
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			body:        "upstream down\n",
			wantMessage: "upstream down",
			wantData:    `"upstream down"`,
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			body:        "",
			wantMessage: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := backendtest.New(t)
			srv.Fail("/api/login", tt.status, tt.body)
			be := backend.New(srv.URL, backend.Endpoints{})

			_, err := be.Login(context.Background(), "bob", "pw")
			var apiErr *backend.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			if tt.wantData == "" {
				assert.Nil(t, apiErr.Data)
			} else {
				assert.JSONEq(t, tt.wantData, string(apiErr.Data))
			}
		})
	}
}

func TestHTTP_LoginRequestShape(t *testing.T) {
	t.Parallel()

	var got struct {
		method      string
		contentType string
		requestID   string
		body        map[string]string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.contentType = r.Header.Get("Content-Type")
		got.requestID = r.Header.Get("X-Request-Id")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	be := backend.New(srv.URL+"/", backend.Endpoints{}, backend.WithUserAgent("cortex-cli/test"))
	payload, err := be.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)

	assert.JSONEq(t, `{"ok":true}`, string(payload))
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "application/json", got.contentType)
	assert.Len(t, got.requestID, 36)
	assert.Equal(t, map[string]string{"user": "alice", "password": "pw"}, got.body)
}

func TestHTTP_SSOLogin(t *testing.T) {
	t.Parallel()

	srv := backendtest.New(t)
	srv.AddUser("carol", "", map[string]any{"roles": []string{"read"}})
	srv.AddSSOCode("abc123", "carol")
	be := backend.New(srv.URL, backend.Endpoints{})
	ctx := context.Background()

	resp, err := be.SSOLogin(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, srv.SSOLocation, resp.Header.Get("Location"))

	resp, err = be.SSOLogin(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"carol","roles":["read"]}`, string(resp.Body))
	assert.Equal(t, []string{"", "code=abc123"}, srv.SSOQueries())

	// the exchange established a cookie session
	current, err := be.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(current), `"carol"`)

	_, err = be.SSOLogin(ctx, "abc123")
	assert.True(t, backend.IsStatus(err, http.StatusUnauthorized))
}

func TestHTTP_Status(t *testing.T) {
	t.Parallel()

	srv := backendtest.New(t)
	be := backend.New(srv.URL, backend.Endpoints{})

	st, err := be.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.1.0-1", st.Version())
	assert.True(t, st.SSOEnabled())

	srv.SetAuthTypes("local")
	st, err = be.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.SSOEnabled())
}

func TestHTTP_NetworkErrorIsWrappedNotStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	be := backend.New(url, backend.Endpoints{})
	_, err := be.CurrentUser(context.Background())
	require.Error(t, err)

	var apiErr *backend.Error
	assert.False(t, errors.As(err, &apiErr))
	assert.True(t, strings.Contains(err.Error(), "connect") || strings.Contains(err.Error(), "refused"))
}

func TestEndpointsWithDefaults(t *testing.T) {
	e := backend.Endpoints{Login: "/auth/login"}.WithDefaults()
	assert.Equal(t, "/auth/login", e.Login)
	assert.Equal(t, "/api/logout", e.Logout)
	assert.Equal(t, "/api/user/current", e.Current)
	assert.Equal(t, "/api/ssoLogin", e.SSOLogin)
	assert.Equal(t, "/api/status", e.Status)
}
