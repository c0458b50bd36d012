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
)

var (
	// ErrSecretNotFound is returned when a key is absent from a backend.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrBackendUnavailable is returned when a backend cannot be used here.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrReadOnlyBackend is returned by Set and Delete on read-only backends.
	ErrReadOnlyBackend = errors.New("backend is read-only")
)

// SecretBackend stores credential material. The Resolver queries backends
// in priority order.
type SecretBackend interface {
	// Name returns the backend identifier ("env", "keychain", "file").
	Name() string

	// Get returns ErrSecretNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)

	Set(ctx context.Context, key string, value string) error

	// Delete returns ErrSecretNotFound when key is absent.
	Delete(ctx context.Context, key string) error

	// List returns the keys held by the backend, never values.
	List(ctx context.Context) ([]string, error)

	// Available reports whether the backend works in this environment.
	Available() bool

	// Priority orders resolution, higher first: env 100, keychain 50, file 25.
	Priority() int
}

// ReadOnlyBackend marks backends that reject writes.
type ReadOnlyBackend interface {
	SecretBackend
	ReadOnly() bool
}

// SecretMetadata describes where a key is held.
type SecretMetadata struct {
	Key      string `json:"key" yaml:"key"`
	Backend  string `json:"backend" yaml:"backend"`
	ReadOnly bool   `json:"readOnly" yaml:"readOnly"`
}

func isReadOnly(b SecretBackend) bool {
	ro, ok := b.(ReadOnlyBackend)
	return ok && ro.ReadOnly()
}
