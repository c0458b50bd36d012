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

package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	"github.com/Jasbris/polarion-node/internal/secrets"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

type memorySecrets struct {
	values  map[string]string
	lastSet string
	err     error
}

func (m *memorySecrets) Get(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[key]
	if !ok {
		return "", secrets.ErrSecretNotFound
	}
	return v, nil
}

func (m *memorySecrets) Set(_ context.Context, key, value, backend string) (string, error) {
	m.values[key] = value
	m.lastSet = backend
	if backend == "" {
		backend = "keychain"
	}
	return backend, nil
}

func (m *memorySecrets) Delete(_ context.Context, key, _ string) error {
	if _, ok := m.values[key]; !ok {
		return secrets.ErrSecretNotFound
	}
	delete(m.values, key)
	return nil
}

func noEnv(string) string { return "" }

func TestStore_SaveLoadRemove(t *testing.T) {
	mem := &memorySecrets{values: map[string]string{}}
	store := NewStore(mem, WithBackend("file"), WithGetenv(noEnv))
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNotConfigured)

	cred := &polarion.Credential{BaseURL: "https://alm.example.com/polarion/rest/v1", Authentication: polarion.AuthToken, Token: "pat"}
	backend, err := store.Save(ctx, cred)
	require.NoError(t, err)
	assert.Equal(t, "file", backend)
	assert.Contains(t, mem.values, "credentials/polarionApi")

	got, source, err := store.LoadWithSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred, got)
	assert.Equal(t, "secrets", source)

	require.NoError(t, store.Remove(ctx))
	assert.ErrorIs(t, store.Remove(ctx), ErrNotConfigured)
}

func TestStore_SaveValidates(t *testing.T) {
	mem := &memorySecrets{values: map[string]string{}}
	store := NewStore(mem, WithGetenv(noEnv))

	_, err := store.Save(context.Background(), &polarion.Credential{BaseURL: "https://x", Authentication: polarion.AuthBasic, Username: "u"})
	var valErr *pkgerrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "password", valErr.Field)
	assert.Empty(t, mem.values)
}

func TestStore_EnvironmentShortcut(t *testing.T) {
	env := map[string]string{
		EnvBaseURL: "https://env.example.com",
		EnvAuth:    "token",
		EnvToken:   "env-token",
	}
	mem := &memorySecrets{values: map[string]string{SecretKey: `{"baseUrl":"https://stored"}`}}
	store := NewStore(mem, WithGetenv(func(k string) string { return env[k] }))

	cred, source, err := store.LoadWithSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, source)
	assert.Equal(t, "https://env.example.com", cred.BaseURL)
	assert.Equal(t, polarion.AuthToken, cred.Method())
	assert.Equal(t, "env-token", cred.Token)
}

func TestStore_LoadErrors(t *testing.T) {
	ctx := context.Background()

	corrupt := NewStore(&memorySecrets{values: map[string]string{SecretKey: "{"}}, WithGetenv(noEnv))
	_, err := corrupt.Load(ctx)
	assert.ErrorContains(t, err, "corrupt")

	locked := NewStore(&memorySecrets{err: errors.New("keychain locked")}, WithGetenv(noEnv))
	_, err = locked.Load(ctx)
	assert.ErrorContains(t, err, "keychain locked")
	assert.NotErrorIs(t, err, ErrNotConfigured)
}

func TestStore_IsCredentialSource(t *testing.T) {
	var _ polarion.CredentialSource = NewStore(&memorySecrets{values: map[string]string{}})
}
