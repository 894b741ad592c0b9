// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

// Endpoints contains REST API endpoint paths, relative to the base URL.
type Endpoints struct {
	Login    string `json:"login"`        // e.g., "/api/login"
	Logout   string `json:"logout"`       // e.g., "/api/logout"
	Current  string `json:"user_current"` // e.g., "/api/user/current"
	SSOLogin string `json:"sso_login"`    // e.g., "/api/ssoLogin"
	Status   string `json:"status"`       // e.g., "/api/status"
}

// DefaultEndpoints returns the paths the backend serves out of the box.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:    "/api/login",
		Logout:   "/api/logout",
		Current:  "/api/user/current",
		SSOLogin: "/api/ssoLogin",
		Status:   "/api/status",
	}
}

// WithDefaults fills every empty path from DefaultEndpoints.
func (e Endpoints) WithDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.Login == "" {
		e.Login = d.Login
	}
	if e.Logout == "" {
		e.Logout = d.Logout
	}
	if e.Current == "" {
		e.Current = d.Current
	}
	if e.SSOLogin == "" {
		e.SSOLogin = d.SSOLogin
	}
	if e.Status == "" {
		e.Status = d.Status
	}
	return e
}
