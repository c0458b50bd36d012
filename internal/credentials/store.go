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

// Package credentials persists the polarionApi credential in the secret
// store and loads it for the request helper.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	"github.com/Jasbris/polarion-node/internal/secrets"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

// SecretKey is the secret store key the credential is kept under.
const SecretKey = "credentials/" + polarion.CredentialType

// Environment shortcut variables. When POLARION_BASE_URL is set the stored
// credential is ignored.
const (
	EnvBaseURL  = "POLARION_BASE_URL"
	EnvAuth     = "POLARION_AUTH"
	EnvUsername = "POLARION_USERNAME"
	EnvPassword = "POLARION_PASSWORD"
	EnvToken    = "POLARION_TOKEN"
)

// SourceEnv is reported by Store.Source for the environment shortcut.
const SourceEnv = "environment"

// ErrNotConfigured is returned when no credential exists anywhere.
var ErrNotConfigured = errors.New("no " + polarion.CredentialType + " credential configured")

// SecretStore is the subset of *secrets.Resolver the store needs.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value, backendName string) (string, error)
	Delete(ctx context.Context, key, backendName string) error
}

// Store reads and writes the credential.
type Store struct {
	secrets SecretStore
	backend string
	getenv  func(string) string
}

// Option configures a Store.
type Option func(*Store)

// WithBackend pins writes and deletes to one secret backend.
func WithBackend(name string) Option {
	return func(s *Store) {
		s.backend = name
	}
}

// WithGetenv replaces os.Getenv for the environment shortcut.
func WithGetenv(getenv func(string) string) Option {
	return func(s *Store) {
		s.getenv = getenv
	}
}

// NewStore creates a store over secretStore.
func NewStore(secretStore SecretStore, opts ...Option) *Store {
	s := &Store{
		secrets: secretStore,
		getenv:  os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements polarion.CredentialSource.
func (s *Store) Load(ctx context.Context) (*polarion.Credential, error) {
	cred, _, err := s.LoadWithSource(ctx)
	return cred, err
}

// LoadWithSource returns the credential and where it came from: SourceEnv
// or the secret store.
func (s *Store) LoadWithSource(ctx context.Context) (*polarion.Credential, string, error) {
	if cred := s.fromEnv(); cred != nil {
		return cred, SourceEnv, nil
	}

	raw, err := s.secrets.Get(ctx, SecretKey)
	if errors.Is(err, secrets.ErrSecretNotFound) {
		return nil, "", ErrNotConfigured
	}
	if err != nil {
		return nil, "", pkgerrors.Wrap(err, "failed to read credential")
	}

	var cred polarion.Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, "", pkgerrors.Wrap(err, "stored credential is corrupt")
	}
	return &cred, "secrets", nil
}

// Save validates cred and writes it. It returns the backend used.
func (s *Store) Save(ctx context.Context, cred *polarion.Credential) (string, error) {
	if err := cred.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(cred)
	if err != nil {
		return "", err
	}
	return s.secrets.Set(ctx, SecretKey, string(raw), s.backend)
}

// Remove deletes the stored credential. ErrNotConfigured is returned when
// nothing was stored.
func (s *Store) Remove(ctx context.Context) error {
	err := s.secrets.Delete(ctx, SecretKey, s.backend)
	if errors.Is(err, secrets.ErrSecretNotFound) {
		return ErrNotConfigured
	}
	return err
}

func (s *Store) fromEnv() *polarion.Credential {
	baseURL := s.getenv(EnvBaseURL)
	if baseURL == "" {
		return nil
	}
	return polarion.CredentialFromValues(map[string]string{
		"baseUrl":        baseURL,
		"authentication": s.getenv(EnvAuth),
		"username":       s.getenv(EnvUsername),
		"password":       s.getenv(EnvPassword),
		"token":          s.getenv(EnvToken),
	})
}
