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
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func newTestFileBackend(t *testing.T, masterKey string) *FileBackend {
	t.Helper()
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "polarion-node", "secrets.enc"), masterKey)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	return backend
}

func TestFileBackend_SetGetDelete(t *testing.T) {
	backend := newTestFileBackend(t, "test-master-key")
	ctx := context.Background()

	if _, err := backend.Get(ctx, "k"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get() on empty store error = %v, want ErrSecretNotFound", err)
	}

	if err := backend.Set(ctx, "credentials/polarionApi", `{"token":"abc"}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := backend.Set(ctx, "other", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(backend.Path())
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("file mode = %o, want 600", info.Mode().Perm())
	}

	raw, _ := os.ReadFile(backend.Path())
	if strings.Contains(string(raw), "abc") {
		t.Error("secrets file holds plaintext")
	}

	got, err := backend.Get(ctx, "credentials/polarionApi")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != `{"token":"abc"}` {
		t.Errorf("Get() = %q", got)
	}

	keys, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"credentials/polarionApi", "other"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("List() = %v, want %v", keys, want)
	}

	if err := backend.Delete(ctx, "other"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := backend.Delete(ctx, "other"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrSecretNotFound", err)
	}
}

func TestFileBackend_WrongMasterKey(t *testing.T) {
	backend := newTestFileBackend(t, "right")
	ctx := context.Background()
	if err := backend.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	wrong, err := NewFileBackend(backend.Path(), "wrong")
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	if _, err := wrong.Get(ctx, "k"); err == nil || !strings.Contains(err.Error(), "decryption failed") {
		t.Errorf("Get() with wrong key error = %v", err)
	}
}

func TestFileBackend_MasterKeySources(t *testing.T) {
	t.Setenv(MasterKeyEnv, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.enc")

	backend, err := NewFileBackend(path, "")
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	if backend.Available() {
		t.Fatal("Available() = true without a master key")
	}
	if _, err := backend.Get(context.Background(), "k"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Get() error = %v, want ErrBackendUnavailable", err)
	}

	keyFile := filepath.Join(dir, "master.key")
	if err := os.WriteFile(keyFile, []byte("from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	backend, _ = NewFileBackend(path, "")
	if backend.Available() {
		t.Error("world-readable key file must be ignored")
	}

	if err := os.Chmod(keyFile, 0o600); err != nil {
		t.Fatal(err)
	}
	backend, _ = NewFileBackend(path, "")
	if !backend.Available() {
		t.Error("Available() = false with a 0600 key file")
	}

	t.Setenv(MasterKeyEnv, "from-env")
	backend, _ = NewFileBackend(path, "")
	if string(backend.masterKey) != "from-env" {
		t.Errorf("master key = %q, want env value", backend.masterKey)
	}
}
