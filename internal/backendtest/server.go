// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backendtest runs an in-process identity backend for tests.
// It serves the same routes as the real backend, issues a session cookie on
// login and SSO code exchange, and lets a test inject failures per route.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CookieName is the session cookie the fake backend issues.
const CookieName = "CORTEX_SESSION"

// Failure is a canned error answer for a route.
type Failure struct {
	Status int
	Body   string
}

type user struct {
	password string
	profile  map[string]any
}

// Server is a fake identity backend.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]user
	sessions map[string]string // session token -> username
	codes    map[string]string // sso code -> username
	failures map[string]Failure
	hang     map[string]bool
	calls    map[string]int
	ssoQuery []string

	// SSOLocation is returned as the Location header when SSO is called without a code.
	SSOLocation string
	// Versions is served by the status route.
	Versions map[string]string
	// AuthTypes is served by the status route.
	AuthTypes []string
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:       make(map[string]user),
		sessions:    make(map[string]string),
		codes:       make(map[string]string),
		failures:    make(map[string]Failure),
		hang:        make(map[string]bool),
		calls:       make(map[string]int),
		SSOLocation: "https://idp.example.com/authorize?client_id=cortex",
		Versions:    map[string]string{"Cortex": "3.1.0-1"},
		AuthTypes:   []string{"local", "oauth2"},
	}

	r := chi.NewRouter()
	r.Use(s.intercept)
	r.Post("/api/login", s.login)
	r.Get("/api/logout", s.logout)
	r.Get("/api/user/current", s.current)
	r.Post("/api/ssoLogin", s.ssoLogin)
	r.Get("/api/status", s.status)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddUser registers a user. profile is returned as the current-user payload,
// with "id" defaulting to the username.
func (s *Server) AddUser(username, password string, profile map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := make(map[string]any, len(profile)+1)
	for k, v := range profile {
		p[k] = v
	}
	if _, ok := p["id"]; !ok {
		p["id"] = username
	}
	s.users[username] = user{password: password, profile: p}
}

// AddSSOCode makes code exchangeable for a session of username.
func (s *Server) AddSSOCode(code, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = username
}

// Fail makes every request to path answer with the given status and body.
func (s *Server) Fail(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = Failure{Status: status, Body: body}
}

// Recover removes an injected failure or hang for path.
func (s *Server) Recover(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, path)
	delete(s.hang, path)
}

// Hang makes requests to path block until the client gives up.
func (s *Server) Hang(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hang[path] = true
}

// SetAuthTypes replaces the auth types served by the status route.
func (s *Server) SetAuthTypes(types ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AuthTypes = types
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// SSOQueries returns the raw query strings received by the SSO route.
func (s *Server) SSOQueries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ssoQuery...)
}

// ActiveSessions returns the number of live session cookies.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		f, failing := s.failures[r.URL.Path]
		hang := s.hang[r.URL.Path]
		s.mu.Unlock()

		if hang {
			<-r.Context().Done()
			return
		}
		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.Status)
			_, _ = w.Write([]byte(f.Body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"type": "BadRequest", "message": "invalid body"})
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.User]
	s.mu.Unlock()
	if !ok || u.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"type": "AuthenticationError", "message": "Authentication failure"})
		return
	}
	s.startSession(w, req.User)
	writeJSON(w, http.StatusOK, u.profile)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) current(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.sessionProfile(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"type": "AuthenticationError", "message": "Authentication failure"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) ssoLogin(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	s.mu.Lock()
	s.ssoQuery = append(s.ssoQuery, r.URL.RawQuery)
	location := s.SSOLocation
	username, known := s.codes[code]
	s.mu.Unlock()

	if code == "" {
		w.Header().Set("Location", location)
		w.WriteHeader(http.StatusSeeOther)
		return
	}
	if !known {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"type": "AuthenticationError", "message": "invalid sso code"})
		return
	}

	s.mu.Lock()
	delete(s.codes, code)
	u := s.users[username]
	s.mu.Unlock()
	s.startSession(w, username)
	writeJSON(w, http.StatusOK, u.profile)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	body := map[string]any{
		"versions": s.Versions,
		"config":   map[string]any{"authType": s.AuthTypes},
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) startSession(w http.ResponseWriter, username string) {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = username
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: token, Path: "/", HttpOnly: true})
}

func (s *Server) sessionProfile(r *http.Request) (map[string]any, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.sessions[c.Value]
	if !ok {
		return nil, false
	}
	return s.users[username].profile, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
