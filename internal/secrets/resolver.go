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
	"errors"
	"fmt"
	"log/slog"
	"sort"

	nodelog "github.com/Jasbris/polarion-node/internal/log"
)

// Resolver queries a chain of backends in priority order.
type Resolver struct {
	backends []SecretBackend
	logger   *slog.Logger
}

// NewResolver keeps the available backends, highest priority first.
func NewResolver(backends ...SecretBackend) *Resolver {
	available := make([]SecretBackend, 0, len(backends))
	for _, b := range backends {
		if b != nil && b.Available() {
			available = append(available, b)
		}
	}
	sort.SliceStable(available, func(i, j int) bool {
		return available[i].Priority() > available[j].Priority()
	})
	return &Resolver{backends: available, logger: nodelog.Discard()}
}

// WithLogger sets the logger used for skipped backends.
func (r *Resolver) WithLogger(logger *slog.Logger) *Resolver {
	if logger != nil {
		r.logger = nodelog.WithComponent(logger, "secrets")
	}
	return r
}

// Get returns the value from the first backend holding key. A backend
// failure other than not-found is reported when no backend has the key.
func (r *Resolver) Get(ctx context.Context, key string) (string, error) {
	if len(r.backends) == 0 {
		return "", fmt.Errorf("%w: no available backends", ErrBackendUnavailable)
	}

	var lastErr error
	for _, backend := range r.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			r.logger.DebugContext(ctx, "secret resolved", slog.String("key", key), slog.String("backend", backend.Name()))
			return value, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", key, lastErr)
	}
	return "", fmt.Errorf("%w: %q", ErrSecretNotFound, key)
}

// Set writes to backendName, or to the highest-priority writable backend
// when backendName is empty. It returns the backend used.
func (r *Resolver) Set(ctx context.Context, key, value, backendName string) (string, error) {
	if len(r.backends) == 0 {
		return "", fmt.Errorf("%w: no available backends", ErrBackendUnavailable)
	}

	if backendName != "" {
		backend, err := r.backend(backendName)
		if err != nil {
			return "", err
		}
		if err := backend.Set(ctx, key, value); err != nil {
			return "", fmt.Errorf("failed to set secret in %s: %w", backendName, err)
		}
		return backendName, nil
	}

	for _, backend := range r.backends {
		if isReadOnly(backend) {
			continue
		}
		if err := backend.Set(ctx, key, value); err != nil {
			if errors.Is(err, ErrReadOnlyBackend) {
				continue
			}
			return "", fmt.Errorf("failed to set secret in %s: %w", backend.Name(), err)
		}
		return backend.Name(), nil
	}
	return "", errors.New("no writable backend available")
}

// Delete removes key from backendName, or from every writable backend
// holding it when backendName is empty.
func (r *Resolver) Delete(ctx context.Context, key, backendName string) error {
	if len(r.backends) == 0 {
		return fmt.Errorf("%w: no available backends", ErrBackendUnavailable)
	}

	if backendName != "" {
		backend, err := r.backend(backendName)
		if err != nil {
			return err
		}
		if err := backend.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete secret from %s: %w", backendName, err)
		}
		return nil
	}

	deleted := false
	for _, backend := range r.backends {
		if isReadOnly(backend) {
			continue
		}
		if err := backend.Delete(ctx, key); err != nil {
			if errors.Is(err, ErrSecretNotFound) || errors.Is(err, ErrReadOnlyBackend) {
				continue
			}
			return fmt.Errorf("failed to delete secret from %s: %w", backend.Name(), err)
		}
		deleted = true
	}
	if !deleted {
		return fmt.Errorf("%w: %q", ErrSecretNotFound, key)
	}
	return nil
}

// List returns every key with the highest-priority backend holding it.
func (r *Resolver) List(ctx context.Context) ([]SecretMetadata, error) {
	if len(r.backends) == 0 {
		return nil, fmt.Errorf("%w: no available backends", ErrBackendUnavailable)
	}

	seen := make(map[string]SecretMetadata)
	for _, backend := range r.backends {
		keys, err := backend.List(ctx)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping backend", slog.String("backend", backend.Name()), nodelog.Error(err))
			continue
		}
		for _, key := range keys {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = SecretMetadata{Key: key, Backend: backend.Name(), ReadOnly: isReadOnly(backend)}
		}
	}

	result := make([]SecretMetadata, 0, len(seen))
	for _, meta := range seen {
		result = append(result, meta)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// Backends returns the available backends in priority order.
func (r *Resolver) Backends() []SecretBackend {
	return r.backends
}

func (r *Resolver) backend(name string) (SecretBackend, error) {
	for _, b := range r.backends {
		if b.Name() == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: backend %q not found or unavailable", ErrBackendUnavailable, name)
}

// NewDefaultResolver builds the env, keychain and file chain. filePath and
// masterKey may be empty.
func NewDefaultResolver(filePath, masterKey string) (*Resolver, error) {
	file, err := NewFileBackend(filePath, masterKey)
	if err != nil {
		return nil, err
	}
	return NewResolver(NewEnvBackend(), NewKeychainBackend(), file), nil
}
