// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// CookieStore persists the serialized session cookies between runs.
type CookieStore interface {
	LoadCookies() ([]byte, error)
	SaveCookies(data []byte) error
	ClearCookies() error
}

// storedCookie is the persisted form of a cookie issued by the backend.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// key identifies a cookie the way the cookie jar does.
func (c storedCookie) key() string {
	return c.Name + ";" + c.Domain + ";" + c.Path
}

// PersistentJar is an http.CookieJar that mirrors the cookies set by the
// backend host into a CookieStore, so a session cookie survives a restart.
// Cookies for other hosts are kept in memory only.
//
// http.CookieJar cannot report failures, so the outcome of the last write to
// the store is kept and returned by Err.
type PersistentJar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	store   CookieStore
	base    *url.URL
	cookies map[string]storedCookie
	err     error
	now     func() time.Time
}

// NewPersistentJar creates a jar for baseURL and restores previously saved cookies.
func NewPersistentJar(store CookieStore, baseURL string) (*PersistentJar, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	j := &PersistentJar{
		store:   store,
		base:    base,
		cookies: make(map[string]storedCookie),
		now:     time.Now,
	}
	j.jar = newCookieJar()

	data, err := store.LoadCookies()
	if err != nil {
		return nil, fmt.Errorf("load cookies: %w", err)
	}
	if len(data) == 0 {
		return j, nil
	}
	var saved []storedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		// Corrupt entries are ignored; the user logs in again.
		return j, nil
	}
	restore := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		if !c.Expires.IsZero() && c.Expires.Before(j.now()) {
			continue
		}
		j.cookies[c.key()] = c
		restore = append(restore, c.httpCookie())
	}
	j.jar.SetCookies(base, restore)
	return j, nil
}

// SetCookies implements http.CookieJar.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)
	if u.Hostname() != j.base.Hostname() {
		return
	}
	for _, c := range cookies {
		sc := storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(j.now())) {
			delete(j.cookies, sc.key())
			continue
		}
		if c.MaxAge > 0 {
			sc.Expires = j.now().Add(time.Duration(c.MaxAge) * time.Second)
		}
		j.cookies[sc.key()] = sc
	}
	if err := j.persist(); err != nil {
		j.err = fmt.Errorf("save cookies: %w", err)
	} else {
		j.err = nil
	}
}

// Err returns the error of the last attempt to write the backend cookies to
// the store, or nil when the store holds what the jar holds.
func (j *PersistentJar) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Cookies implements http.CookieJar.
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// Clear drops every cookie from memory and from the store.
func (j *PersistentJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = newCookieJar()
	j.cookies = make(map[string]storedCookie)
	if err := j.store.ClearCookies(); err != nil {
		j.err = fmt.Errorf("clear cookies: %w", err)
		return j.err
	}
	j.err = nil
	return nil
}

// persist writes the backend host cookies to the store. Caller holds j.mu.
func (j *PersistentJar) persist() error {
	if len(j.cookies) == 0 {
		return j.store.ClearCookies()
	}
	out := make([]storedCookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		out = append(out, c)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return j.store.SaveCookies(b)
}

func (c storedCookie) httpCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
}

func newCookieJar() *cookiejar.Jar {
	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// MemoryStore is a CookieStore that forgets everything when the process exits.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func (m *MemoryStore) LoadCookies() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryStore) SaveCookies(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) ClearCookies() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
