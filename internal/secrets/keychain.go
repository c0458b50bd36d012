// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// KeychainBackendPriority is the priority of the keychain backend.
	KeychainBackendPriority = 50

	// KeychainService is the service name of every keychain entry.
	KeychainService = "polarion-node"

	// keychainIndex holds the keys written through this backend, since
	// go-keyring cannot enumerate entries.
	keychainIndex = "__polarion_node_index__"
)

// KeychainBackend stores secrets in the OS keychain: macOS Keychain, the
// Secret Service on Linux, or the Windows Credential Manager.
type KeychainBackend struct {
	mu        sync.Mutex
	available bool
}

// NewKeychainBackend creates the backend and probes the keyring service.
func NewKeychainBackend() *KeychainBackend {
	_, err := keyring.Get(KeychainService, keychainIndex)
	return &KeychainBackend{
		available: err == nil || errors.Is(err, keyring.ErrNotFound),
	}
}

// Name returns the backend identifier.
func (k *KeychainBackend) Name() string {
	return "keychain"
}

// Get reads key from the keychain.
func (k *KeychainBackend) Get(ctx context.Context, key string) (string, error) {
	if !k.available {
		return "", fmt.Errorf("%w: keychain service unavailable", ErrBackendUnavailable)
	}
	value, err := keyring.Get(KeychainService, key)
	if err != nil {
		return "", k.wrap(key, err)
	}
	return value, nil
}

// Set writes key to the keychain and records it in the index.
func (k *KeychainBackend) Set(ctx context.Context, key string, value string) error {
	if !k.available {
		return fmt.Errorf("%w: keychain service unavailable", ErrBackendUnavailable)
	}
	if err := keyring.Set(KeychainService, key, value); err != nil {
		return k.wrap(key, err)
	}
	return k.updateIndex(func(keys []string) []string {
		if slices.Contains(keys, key) {
			return keys
		}
		return append(keys, key)
	})
}

// Delete removes key from the keychain and the index.
func (k *KeychainBackend) Delete(ctx context.Context, key string) error {
	if !k.available {
		return fmt.Errorf("%w: keychain service unavailable", ErrBackendUnavailable)
	}
	if err := keyring.Delete(KeychainService, key); err != nil {
		return k.wrap(key, err)
	}
	return k.updateIndex(func(keys []string) []string {
		return slices.DeleteFunc(keys, func(s string) bool { return s == key })
	})
}

// List returns the keys written through this backend.
func (k *KeychainBackend) List(ctx context.Context) ([]string, error) {
	if !k.available {
		return nil, fmt.Errorf("%w: keychain service unavailable", ErrBackendUnavailable)
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.readIndex()
}

// Available reports whether the keyring service answered the probe.
func (k *KeychainBackend) Available() bool {
	return k.available
}

// Priority returns KeychainBackendPriority.
func (k *KeychainBackend) Priority() int {
	return KeychainBackendPriority
}

func (k *KeychainBackend) readIndex() ([]string, error) {
	raw, err := keyring.Get(KeychainService, keychainIndex)
	if errors.Is(err, keyring.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, k.wrap(keychainIndex, err)
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, fmt.Errorf("keychain index is corrupt: %w", err)
	}
	return keys, nil
}

func (k *KeychainBackend) updateIndex(update func([]string) []string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	keys, err := k.readIndex()
	if err != nil {
		return err
	}
	keys = update(keys)
	slices.Sort(keys)

	raw, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	if err := keyring.Set(KeychainService, keychainIndex, string(raw)); err != nil {
		return k.wrap(keychainIndex, err)
	}
	return nil
}

func (k *KeychainBackend) wrap(key string, err error) error {
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	case isKeychainUnavailableError(err):
		return fmt.Errorf("%w: %s", ErrBackendUnavailable, err.Error())
	default:
		return fmt.Errorf("keychain error: %w", err)
	}
}

// isKeychainUnavailableError matches the platform messages for a locked or
// unreachable keyring.
func isKeychainUnavailableError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"locked",
		"cannot access",
		"permission denied",
		"failed to unlock",
		"user interaction required",
		"secret service",
		"dbus",
		"user canceled",
	} {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
