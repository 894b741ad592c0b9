// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Session is the cached representation of the authenticated user.
// Raw keeps the exact payload the backend returned; Fields holds every
// top-level field of it, opaque to this package.
type Session struct {
	ID     string
	Name   string
	Roles  Roles
	Fields map[string]json.RawMessage
	Raw    json.RawMessage
}

// ParseSession decodes a current-user payload.
func ParseSession(payload []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UnmarshalJSON implements json.Unmarshaler. The payload must be a JSON object.
func (s *Session) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return errors.New("session payload is not a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	// An id that is neither string nor number stays in Fields only.
	out := Session{Fields: fields, Raw: append(json.RawMessage(nil), b...)}
	for _, key := range []string{"id", "_id"} {
		if v, ok := fields[key]; ok {
			if id, err := scalarString(v); err == nil && id != "" {
				out.ID = id
				break
			}
		}
	}
	if v, ok := fields["name"]; ok {
		out.Name, _ = scalarString(v)
	}
	if v, ok := fields["roles"]; ok {
		if err := json.Unmarshal(v, &out.Roles); err != nil {
			return fmt.Errorf("session roles: %w", err)
		}
	}
	*s = out
	return nil
}

// MarshalJSON returns the payload the session was decoded from.
func (s Session) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	fields := make(map[string]any, len(s.Fields)+3)
	for k, v := range s.Fields {
		fields[k] = v
	}
	if s.ID != "" {
		fields["id"] = s.ID
	}
	if s.Name != "" {
		fields["name"] = s.Name
	}
	fields["roles"] = []string(s.Roles)
	return json.Marshal(fields)
}

// Clone returns a deep copy, so callers never share memory with the cache.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := &Session{ID: s.ID, Name: s.Name}
	if s.Roles != nil {
		c.Roles = append(Roles(nil), s.Roles...)
	}
	if s.Fields != nil {
		c.Fields = make(map[string]json.RawMessage, len(s.Fields))
		for k, v := range s.Fields {
			c.Fields[k] = append(json.RawMessage(nil), v...)
		}
	}
	if s.Raw != nil {
		c.Raw = append(json.RawMessage(nil), s.Raw...)
	}
	return c
}

// IsOrgAdmin reports whether any role contains "orgadmin", ignoring case.
// A nil session is never an admin.
func (s *Session) IsOrgAdmin() bool {
	return s != nil && s.Roles.ContainsFold("orgadmin")
}

// IsSuperAdmin reports whether any role contains "superadmin", ignoring case.
func (s *Session) IsSuperAdmin() bool {
	return s != nil && s.Roles.ContainsFold("superadmin")
}

// scalarString renders a JSON string or number as text; null is empty.
func scalarString(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("expected string or number, got %s", v)
}

// Roles is the role collection of a session. Order and duplicates are kept
// as received; matching treats it as a set.
type Roles []string

// UnmarshalJSON accepts an array of strings, a comma-separated string, or null.
func (r *Roles) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*r = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(b, &joined); err != nil {
		return errors.New("roles must be an array of strings or a comma-separated string")
	}
	out := Roles{}
	for _, part := range strings.Split(joined, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*r = out
	return nil
}

// HasAny reports whether r and want share at least one role.
// Comparison is exact and case-sensitive.
func (r Roles) HasAny(want ...string) bool {
	if len(r) == 0 || len(want) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(r))
	for _, role := range r {
		set[role] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

// ContainsFold reports whether any role contains sub, ignoring case.
func (r Roles) ContainsFold(sub string) bool {
	sub = strings.ToLower(sub)
	for _, role := range r {
		if strings.Contains(strings.ToLower(role), sub) {
			return true
		}
	}
	return false
}
