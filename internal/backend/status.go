// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// ServerStatus is the answer of GET /api/status.
type ServerStatus struct {
	Versions map[string]string `json:"versions"`
	Config   StatusConfig      `json:"config"`
}

// StatusConfig holds the backend settings the login flow cares about.
type StatusConfig struct {
	AuthType []string `json:"authType"`
}

// SSOEnabled reports whether one of the configured auth types is OAuth2 based.
func (s *ServerStatus) SSOEnabled() bool {
	if s == nil {
		return false
	}
	for _, t := range s.Config.AuthType {
		if strings.Contains(strings.ToLower(t), "oauth2") {
			return true
		}
	}
	return false
}

// Version returns the backend's own version, or "unknown".
func (s *ServerStatus) Version() string {
	if s == nil {
		return "unknown"
	}
	for _, key := range []string{"Cortex", "cortex", "server"} {
		if v := s.Versions[key]; v != "" {
			return v
		}
	}
	return "unknown"
}

// Status calls GET /api/status. No authentication required, so it doubles as
// a connectivity check.
func (h *HTTP) Status(ctx context.Context) (*ServerStatus, error) {
	resp, body, err := h.do(ctx, http.MethodGet, h.endpoints.Status, nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, newError("status", resp.StatusCode, body)
	}
	var out ServerStatus
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
