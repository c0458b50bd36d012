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
	"fmt"
	"os"
	"sort"
	"strings"
)

const (
	// EnvBackendPriority lets environment variables override stored secrets.
	EnvBackendPriority = 100

	// EnvSecretPrefix prefixes every secret environment variable.
	EnvSecretPrefix = "POLARION_NODE_SECRET_"
)

var envKeyReplacer = strings.NewReplacer("/", "_", "-", "_", ".", "_")

// EnvBackend reads secrets from POLARION_NODE_SECRET_* variables.
type EnvBackend struct {
	lookup  func(string) (string, bool)
	environ func() []string
}

// NewEnvBackend creates a backend over the process environment.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{
		lookup:  os.LookupEnv,
		environ: os.Environ,
	}
}

// Name returns the backend identifier.
func (e *EnvBackend) Name() string {
	return "env"
}

// Get returns the value of the variable for key.
func (e *EnvBackend) Get(ctx context.Context, key string) (string, error) {
	name := EnvVarName(key)
	if value, ok := e.lookup(name); ok && value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s not set", ErrSecretNotFound, name)
}

// Set always fails.
func (e *EnvBackend) Set(ctx context.Context, key string, value string) error {
	return ErrReadOnlyBackend
}

// Delete always fails.
func (e *EnvBackend) Delete(ctx context.Context, key string) error {
	return ErrReadOnlyBackend
}

// List returns the non-empty secret variables as lower-cased keys. Slashes
// cannot be recovered, so only the first separator is restored.
func (e *EnvBackend) List(ctx context.Context) ([]string, error) {
	var keys []string
	for _, kv := range e.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(name, EnvSecretPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, EnvSecretPrefix))
		keys = append(keys, strings.Replace(key, "_", "/", 1))
	}
	sort.Strings(keys)
	return keys, nil
}

// Available is always true.
func (e *EnvBackend) Available() bool {
	return true
}

// Priority returns EnvBackendPriority.
func (e *EnvBackend) Priority() int {
	return EnvBackendPriority
}

// ReadOnly is always true.
func (e *EnvBackend) ReadOnly() bool {
	return true
}

// EnvVarName returns the variable consulted for key.
// Example: "credentials/polarionApi" -> "POLARION_NODE_SECRET_CREDENTIALS_POLARIONAPI"
func EnvVarName(key string) string {
	return EnvSecretPrefix + strings.ToUpper(envKeyReplacer.Replace(key))
}
