// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; session cookies go to the OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cortex/cli/internal/backend"
	cerrors "cortex/cli/internal/errors"
	"cortex/cli/internal/xdg"
)

// Environment variables that override the file.
const (
	EnvURL      = "CORTEX_URL"
	EnvTimeout  = "CORTEX_TIMEOUT"
	EnvLogLevel = "CORTEX_LOG_LEVEL"
	EnvVerbose  = "CORTEX_VERBOSE"
)

// DefaultBaseURL is the backend address used when nothing else is configured.
const DefaultBaseURL = "http://localhost:9001"

// Config holds non-sensitive CLI settings.
type Config struct {
	BaseURL        string            `json:"base_url"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	LogLevel       string            `json:"log_level"`
	StoragePrefix  string            `json:"storage_prefix"`
	Endpoints      backend.Endpoints `json:"endpoints"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		TimeoutSeconds: 30,
		LogLevel:       "info",
		StoragePrefix:  "cortex",
		Endpoints:      backend.DefaultEndpoints(),
	}
}

// Timeout returns the per-request deadline. Zero means none.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks the settings that would otherwise fail on first request.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return cerrors.Wrap(cerrors.Configuration, "invalid base_url", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return cerrors.New(cerrors.Configuration, fmt.Sprintf("base_url must be an http(s) URL, got %q", c.BaseURL))
	}
	if c.TimeoutSeconds < 0 {
		return cerrors.New(cerrors.Configuration, "timeout_seconds must not be negative")
	}
	return nil
}

// Path returns the location of the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; a missing file yields defaults.
// Environment variables are applied on top of whatever was read.
func Load() (Config, error) {
	c, err := LoadFile()
	if err != nil {
		return c, err
	}
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, nil
}

// LoadFile reads the config file over the defaults without looking at the
// environment. Use it when the result will be saved back.
func LoadFile() (Config, error) {
	c := Default()
	p, err := Path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, err
	default:
		if err := json.Unmarshal(data, &c); err != nil {
			return c, cerrors.Wrap(cerrors.Configuration, "parse "+p, err)
		}
	}
	c.Endpoints = c.Endpoints.WithDefaults()
	if c.StoragePrefix == "" {
		c.StoragePrefix = "cortex"
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvURL)); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cerrors.Wrap(cerrors.Configuration, EnvTimeout+" must be a number of seconds", err)
		}
		c.TimeoutSeconds = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if os.Getenv(EnvVerbose) == "1" {
		c.LogLevel = "debug"
	}
	return nil
}

// Keys lists the settings Set accepts, in display order.
var Keys = []string{"url", "timeout", "log-level"}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "off": true, "disabled": true, "none": true,
}

// Set changes one setting by its key and validates the result.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	next := *c
	switch key {
	case "url":
		next.BaseURL = strings.TrimRight(value, "/")
	case "timeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return cerrors.Wrap(cerrors.Configuration, "timeout must be a number of seconds", err)
		}
		next.TimeoutSeconds = n
	case "log-level":
		if !logLevels[strings.ToLower(value)] {
			return cerrors.New(cerrors.Configuration, fmt.Sprintf("unknown log level %q", value))
		}
		next.LogLevel = strings.ToLower(value)
	default:
		return cerrors.New(cerrors.Configuration,
			fmt.Sprintf("unknown setting %q, expected one of %s", key, strings.Join(Keys, ", ")))
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Get returns the display value of a settable key.
func (c Config) Get(key string) string {
	switch key {
	case "url":
		return c.BaseURL
	case "timeout":
		return strconv.Itoa(c.TimeoutSeconds)
	case "log-level":
		return c.LogLevel
	}
	return ""
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
