// Copyright (c) 2025 Cortex
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides thread-safe storage of the backend session cookies
// in the OS keychain/credential store.
//
// Only the cookies issued by the identity backend are kept here; the cached
// user session is never written to disk. Supported stores are macOS Keychain,
// Windows Credential Manager and, on Linux, Secret Service, KWallet or pass.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	cerrors "cortex/cli/internal/errors"

	"github.com/99designs/keyring"
)

// DefaultServiceName identifies our keychain/credential store namespace.
const DefaultServiceName = "cortex"

// Keys used for storing secrets in the OS keychain.
const (
	KeySessionCookies = "session_cookies"
)

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	backend keychainBackend
}

// keychainBackend defines the interface for keychain operations.
// Get returns empty data and no error for a missing key.
type keychainBackend interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// NewManager opens the OS keyring under the given service name.
// An empty name uses DefaultServiceName.
func NewManager(serviceName string) (*Manager, error) {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	ring, err := openRing(serviceName)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "open keychain", err)
	}
	return &Manager{backend: &ringBackend{ring: ring}}, nil
}

// openRing opens the OS keyring using native platform backends only.
// There is no file fallback: cookies never land in a plain file.
func openRing(serviceName string) (keyring.Keyring, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowedBackends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.PassBackend,
		}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
		}
	default:
		return nil, errors.New("secure storage not supported on this OS")
	}

	cfg := keyring.Config{
		ServiceName:              serviceName,
		AllowedBackends:          allowedBackends,
		PassPrefix:               serviceName,
		KeychainTrustApplication: true,
		LibSecretCollectionName:  serviceName,
		KWalletAppID:             serviceName,
		KWalletFolder:            serviceName,
	}
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = serviceName
	}

	return keyring.Open(cfg)
}

// SaveCookies stores the serialized session cookies.
// This method is thread-safe.
func (m *Manager) SaveCookies(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.backend.Set(KeySessionCookies, data); err != nil {
		return cerrors.Wrap(cerrors.Storage, "save session cookies", err)
	}
	return nil
}

// LoadCookies retrieves the serialized session cookies. Missing data yields nil.
// This method is thread-safe.
func (m *Manager) LoadCookies() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, err := m.backend.Get(KeySessionCookies)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.Storage, "load session cookies", err)
	}
	return data, nil
}

// ClearCookies removes the stored session cookies.
// This method is thread-safe.
func (m *Manager) ClearCookies() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.backend.Delete(KeySessionCookies); err != nil {
		return cerrors.Wrap(cerrors.Storage, "clear session cookies", err)
	}
	return nil
}

// ringBackend adapts a keyring.Keyring to keychainBackend.
type ringBackend struct {
	ring keyring.Keyring
}

func (r *ringBackend) Set(key string, value []byte) error {
	return r.ring.Set(keyring.Item{Key: key, Data: value})
}

func (r *ringBackend) Get(key string) ([]byte, error) {
	it, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return it.Data, nil
}

func (r *ringBackend) Delete(key string) error {
	err := r.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
