// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cortex/cli/internal/backend"
	cerrors "cortex/cli/internal/errors"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	for _, env := range []string{EnvURL, EnvTimeout, EnvLogLevel, EnvVerbose} {
		t.Setenv(env, "")
	}
	return filepath.Join(base, "cortex", "config.json")
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	isolate(t)

	c, err := Load()
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 30*time.Second, c.Timeout())
}

func TestSaveThenLoad(t *testing.T) {
	p := isolate(t)

	want := Default()
	want.BaseURL = "https://cortex.example.com"
	want.TimeoutSeconds = 5
	want.Endpoints.Login = "/auth/login"
	require.NoError(t, Save(want))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := isolate(t)
	require.NoError(t, os.WriteFile(p, []byte(`{"base_url":"https://c.example.com","endpoints":{"user_current":"/api/me"}}`), 0o600))

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://c.example.com", c.BaseURL)
	assert.Equal(t, 30, c.TimeoutSeconds)
	assert.Equal(t, "/api/me", c.Endpoints.Current)
	assert.Equal(t, backend.DefaultEndpoints().Login, c.Endpoints.Login)
}

func TestLoad_CorruptFile(t *testing.T) {
	p := isolate(t)
	require.NoError(t, os.WriteFile(p, []byte(`{base_url`), 0o600))

	_, err := Load()
	assert.True(t, cerrors.Is(err, cerrors.Configuration))
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, c Config)
		wantErr bool
	}{
		{
			name: "url",
			env:  map[string]string{EnvURL: "https://env.example.com"},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, "https://env.example.com", c.BaseURL)
			},
		},
		{
			name: "timeout",
			env:  map[string]string{EnvTimeout: "7"},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 7*time.Second, c.Timeout())
			},
		},
		{
			name:    "bad timeout",
			env:     map[string]string{EnvTimeout: "soon"},
			wantErr: true,
		},
		{
			name: "verbose wins over level",
			env:  map[string]string{EnvLogLevel: "warn", EnvVerbose: "1"},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, "debug", c.LogLevel)
			},
		},
		{
			name: "level",
			env:  map[string]string{EnvLogLevel: "error"},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, "error", c.LogLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			c, err := Load()
			if tt.wantErr {
				assert.True(t, cerrors.Is(err, cerrors.Configuration))
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "https", mutate: func(c *Config) { c.BaseURL = "https://cortex.example.com/" }},
		{name: "no timeout", mutate: func(c *Config) { c.TimeoutSeconds = 0 }},
		{name: "negative timeout", mutate: func(c *Config) { c.TimeoutSeconds = -1 }, wantErr: true},
		{name: "ftp", mutate: func(c *Config) { c.BaseURL = "ftp://cortex.example.com" }, wantErr: true},
		{name: "no host", mutate: func(c *Config) { c.BaseURL = "http://" }, wantErr: true},
		{name: "bare host", mutate: func(c *Config) { c.BaseURL = "cortex.example.com" }, wantErr: true},
		{name: "unparsable", mutate: func(c *Config) { c.BaseURL = "http://[::1" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.True(t, cerrors.Is(err, cerrors.Configuration), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadFile_IgnoresEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv(EnvURL, "https://from-env.example.com")

	c, err := LoadFile()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL)

	c, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "https://from-env.example.com", c.BaseURL)
}

func TestConfig_Set(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantGet  string
		wantKind cerrors.Kind
	}{
		{name: "url", key: "url", value: " https://cortex.example.com/ ", wantGet: "https://cortex.example.com"},
		{name: "timeout", key: "timeout", value: "0", wantGet: "0"},
		{name: "log level", key: "log-level", value: "DEBUG", wantGet: "debug"},
		{name: "url without scheme", key: "url", value: "cortex.example.com", wantKind: cerrors.Configuration},
		{name: "negative timeout", key: "timeout", value: "-1", wantKind: cerrors.Configuration},
		{name: "timeout not a number", key: "timeout", value: "soon", wantKind: cerrors.Configuration},
		{name: "unknown log level", key: "log-level", value: "loud", wantKind: cerrors.Configuration},
		{name: "unknown key", key: "storage", value: "x", wantKind: cerrors.Configuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := Default()
			err := c.Set(tt.key, tt.value)
			if tt.wantKind != "" {
				assert.True(t, cerrors.Is(err, tt.wantKind), "got %v", err)
				if diff := cmp.Diff(Default(), c); diff != "" {
					t.Errorf("failed Set changed the config (-want +got):\n%s", diff)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantGet, c.Get(tt.key))
		})
	}
}
