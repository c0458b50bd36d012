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

package shared

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Jasbris/polarion-node/internal/credentials"
	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"configuration error", &polarion.ConfigurationError{Reason: "missing baseUrl"}, ExitMissingCredential},
		{"no credential", fmt.Errorf("load: %w", credentials.ErrNotConfigured), ExitMissingCredential},
		{"payload", &polarion.PayloadParseError{Reason: "not JSON"}, ExitInvalidInput},
		{"routing", &polarion.RoutingError{Resource: "users", Operation: "list", Reason: "x"}, ExitInvalidInput},
		{"validation", &pkgerrors.ValidationError{Field: "limit", Message: "bad"}, ExitInvalidInput},
		{"config file", &pkgerrors.ConfigError{Key: "config_file", Reason: "bad yaml"}, ExitInvalidInput},
		{"request", &polarion.RequestFailure{StatusCode: 500, Message: "boom"}, ExitExecutionFailed},
		{"plain", errors.New("boom"), ExitExecutionFailed},
		{"already classified", NewInvalidInputError("bad flag", nil), ExitInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExitCode(Classify("run failed", tt.err))
			if got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}

	if Classify("x", nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
	if ExitCode(nil) != ExitSuccess {
		t.Error("ExitCode(nil) should be success")
	}
}

func TestExitError_Unwrap(t *testing.T) {
	cause := &polarion.ConfigurationError{Reason: "token is empty"}
	err := NewMissingCredentialError("cannot run", cause)

	var cfgErr *polarion.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatal("expected ConfigurationError in chain")
	}
	if !strings.Contains(err.Error(), "cannot run: ") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestWriteError(t *testing.T) {
	t.Run("user visible suggestion", func(t *testing.T) {
		var buf bytes.Buffer
		code := WriteError(&buf, Classify("run failed", &polarion.ConfigurationError{Reason: "no credential"}))
		if code != ExitMissingCredential {
			t.Errorf("code = %d", code)
		}
		out := buf.String()
		if !strings.HasPrefix(out, "Error: run failed") {
			t.Errorf("missing error line: %q", out)
		}
		if !strings.Contains(out, "Suggestion: Run 'polarion-node credentials set'") {
			t.Errorf("missing suggestion: %q", out)
		}
	})

	t.Run("validation suggestion", func(t *testing.T) {
		var buf bytes.Buffer
		WriteError(&buf, &pkgerrors.ValidationError{Field: "resource", Message: "unknown", Suggestion: "see 'polarion-node resources'"})
		if !strings.Contains(buf.String(), "Suggestion: see 'polarion-node resources'") {
			t.Errorf("missing suggestion: %q", buf.String())
		}
	})

	t.Run("no suggestion", func(t *testing.T) {
		var buf bytes.Buffer
		code := WriteError(&buf, errors.New("plain"))
		if code != ExitExecutionFailed {
			t.Errorf("code = %d", code)
		}
		if strings.Contains(buf.String(), "Suggestion") {
			t.Errorf("unexpected suggestion: %q", buf.String())
		}
	})
}
