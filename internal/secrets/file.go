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
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	// FileBackendPriority is the priority of the encrypted file backend.
	FileBackendPriority = 25

	// MasterKeyEnv names the variable holding the file backend master key.
	MasterKeyEnv = "POLARION_NODE_MASTER_KEY"

	envelopeVersion = 1

	// Argon2id: time=3, memory=64MiB, parallelism=4, 256-bit key.
	argon2Time        = 3
	argon2Memory      = 64 * 1024
	argon2Parallelism = 4
	argon2KeyLength   = 32

	saltSize = 16
)

// FileBackend keeps secrets in one AES-256-GCM encrypted JSON file.
type FileBackend struct {
	path      string
	masterKey []byte
	mu        sync.RWMutex
}

// envelope is the on-disk form of the secrets file.
type envelope struct {
	Version int    `json:"version"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Data    []byte `json:"data"`
}

// DefaultSecretsPath returns $XDG_CONFIG_HOME/polarion-node/secrets.enc.
func DefaultSecretsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "polarion-node", "secrets.enc"), nil
}

// NewFileBackend creates a file backend at path, or DefaultSecretsPath when
// path is empty. masterKey overrides the environment and key file. Without
// any master key the backend is returned unavailable.
func NewFileBackend(path string, masterKey string) (*FileBackend, error) {
	if path == "" {
		var err error
		if path, err = DefaultSecretsPath(); err != nil {
			return nil, err
		}
	}

	key, err := resolveMasterKey(masterKey, filepath.Join(filepath.Dir(path), "master.key"))
	if err != nil {
		return &FileBackend{path: path}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create secrets directory: %w", err)
	}
	return &FileBackend{path: path, masterKey: key}, nil
}

// Name returns the backend identifier.
func (f *FileBackend) Name() string {
	return "file"
}

// Path returns the location of the encrypted file.
func (f *FileBackend) Path() string {
	return f.path
}

// Get decrypts the file and returns key.
func (f *FileBackend) Get(ctx context.Context, key string) (string, error) {
	if !f.Available() {
		return "", fmt.Errorf("%w: master key not available", ErrBackendUnavailable)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	values, err := f.load()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return value, nil
}

// Set stores key and rewrites the file.
func (f *FileBackend) Set(ctx context.Context, key string, value string) error {
	if !f.Available() {
		return fmt.Errorf("%w: master key not available", ErrBackendUnavailable)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

// Delete removes key and rewrites the file.
func (f *FileBackend) Delete(ctx context.Context, key string) error {
	if !f.Available() {
		return fmt.Errorf("%w: master key not available", ErrBackendUnavailable)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	delete(values, key)
	return f.save(values)
}

// List returns the stored keys in order.
func (f *FileBackend) List(ctx context.Context) ([]string, error) {
	if !f.Available() {
		return nil, fmt.Errorf("%w: master key not available", ErrBackendUnavailable)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	values, err := f.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Available reports whether a master key was found.
func (f *FileBackend) Available() bool {
	return len(f.masterKey) > 0
}

// Priority returns FileBackendPriority.
func (f *FileBackend) Priority() int {
	return FileBackendPriority
}

// load returns an empty map when the file does not exist yet.
func (f *FileBackend) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid secrets file format: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported secrets file version %d", env.Version)
	}

	gcm, err := f.cipher(env.Salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, env.Nonce, env.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong master key or corrupted data): %w", err)
	}
	defer clear(plaintext)

	values := map[string]string{}
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, fmt.Errorf("invalid decrypted data format: %w", err)
	}
	return values, nil
}

// save encrypts values under a fresh salt and nonce and replaces the file
// atomically.
func (f *FileBackend) save(values map[string]string) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}
	defer clear(plaintext)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := f.cipher(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	raw, err := json.Marshal(envelope{
		Version: envelopeVersion,
		Salt:    salt,
		Nonce:   nonce,
		Data:    gcm.Seal(nil, nonce, plaintext, nil),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal secrets file: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace secrets file: %w", err)
	}
	return nil
}

func (f *FileBackend) cipher(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(f.masterKey, salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLength)
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// resolveMasterKey prefers the explicit key, then MasterKeyEnv, then the key
// file when it is not readable by group or others.
func resolveMasterKey(explicit, keyFile string) ([]byte, error) {
	if explicit != "" {
		return []byte(explicit), nil
	}
	if env := os.Getenv(MasterKeyEnv); env != "" {
		return []byte(env), nil
	}
	info, err := os.Lstat(keyFile)
	if err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o077 == 0 {
		if key, err := os.ReadFile(keyFile); err == nil {
			if key = bytes.TrimSpace(key); len(key) > 0 {
				return key, nil
			}
		}
	}
	return nil, fmt.Errorf("master key not available (set %s or create %s with mode 0600)", MasterKeyEnv, keyFile)
}
