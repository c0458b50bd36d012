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
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/zalando/go-keyring"

	"github.com/Jasbris/polarion-node/internal/commands/shared"
	"github.com/Jasbris/polarion-node/internal/integration/polarion"
)

func setupEnv(t *testing.T) {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("POLARION_NODE_MASTER_KEY", "")
	t.Setenv(shared.NonInteractiveEnv, "true")
	for _, key := range []string{"POLARION_BASE_URL", "POLARION_AUTH", "POLARION_USERNAME", "POLARION_PASSWORD", "POLARION_TOKEN"} {
		t.Setenv(key, "")
	}
	shared.ResetFlagsForTest("")
	t.Cleanup(func() { shared.ResetFlagsForTest("") })
}

func setJSON(t *testing.T) {
	t.Helper()
	_, _, jsonFlag, _ := shared.RegisterFlagPointers()
	*jsonFlag = true
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCredentials_SetShowRemove(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "pat-secret\n", "set",
		"--base-url", "https://alm.example.com/polarion/rest/v1",
		"--auth", "token",
		"--username", "ignored-for-token",
		"--secret-stdin")
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}

	setJSON(t)
	out, err := execute(t, "", "show")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	var shown showResponse
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("show output is not JSON: %v\n%s", err, out)
	}
	if shown.Source != "secrets" {
		t.Errorf("source = %q", shown.Source)
	}
	if shown.Credential.Token != "[REDACTED]" {
		t.Errorf("token not redacted: %q", shown.Credential.Token)
	}
	if shown.Credential.Username != "" {
		t.Errorf("fields hidden by the auth method must not be stored, got username %q", shown.Credential.Username)
	}
	if strings.Contains(out, "pat-secret") {
		t.Error("secret leaked into show output")
	}

	if _, err := execute(t, "", "remove"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	_, err = execute(t, "", "show")
	if code := shared.ExitCode(err); code != shared.ExitMissingCredential {
		t.Errorf("show after remove: exit code = %d (%v)", code, err)
	}
	_, err = execute(t, "", "remove")
	if code := shared.ExitCode(err); code != shared.ExitMissingCredential {
		t.Errorf("second remove: exit code = %d (%v)", code, err)
	}
}

func TestCredentials_SetRequiresFieldsWithoutTerminal(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "", "set", "--base-url", "https://alm.example.com", "--auth", "basic", "--username", "jdoe")
	if code := shared.ExitCode(err); code != shared.ExitInvalidInput {
		t.Fatalf("exit code = %d, want %d (%v)", code, shared.ExitInvalidInput, err)
	}
	if !strings.Contains(err.Error(), "password") {
		t.Errorf("error should name the missing field: %v", err)
	}
}

func TestCredentials_SetRejectsInvalidURL(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "", "set", "--base-url", "not a url", "--auth", "token", "--token", "t")
	if code := shared.ExitCode(err); code != shared.ExitInvalidInput {
		t.Fatalf("exit code = %d, want %d (%v)", code, shared.ExitInvalidInput, err)
	}
}

func TestCredentials_Test(t *testing.T) {
	var gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		if r.Header.Get("Authorization") != "Basic amRvZTpzM2NyZXQ=" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"errors":[{"status":"401","title":"Unauthorized"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"id":"P1"}]}`)
	}))
	defer server.Close()

	setupEnv(t)
	t.Setenv("POLARION_BASE_URL", server.URL)
	t.Setenv("POLARION_USERNAME", "jdoe")
	t.Setenv("POLARION_PASSWORD", "s3cret")

	out, err := execute(t, "", "test")
	if err != nil {
		t.Fatalf("test failed: %v", err)
	}
	if !strings.Contains(out, "Credential accepted") {
		t.Errorf("unexpected output %q", out)
	}
	if gotQuery != "limit=1" {
		t.Errorf("query = %q", gotQuery)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Errorf("Authorization = %q", gotAuth)
	}

	t.Setenv("POLARION_PASSWORD", "wrong")
	setJSON(t)
	out, err = execute(t, "", "test")
	if code := shared.ExitCode(err); code != shared.ExitExecutionFailed {
		t.Errorf("exit code = %d (%v)", code, err)
	}
	var resp struct {
		Success bool               `json:"success"`
		Errors  []shared.JSONError `json:"errors"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if resp.Success || len(resp.Errors) != 1 || resp.Errors[0].Code != "auth_error" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestCredentials_Describe(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "", "describe")
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	for _, want := range []string{"baseUrl", "basic|token", "authentication=token", "(secret)"} {
		if !strings.Contains(out, want) {
			t.Errorf("describe output missing %q:\n%s", want, out)
		}
	}
}

func TestVisibleValues(t *testing.T) {
	desc := polarion.CredentialDescriptor
	got := visibleValues(desc, map[string]string{
		"baseUrl":        "https://x",
		"authentication": "token",
		"username":       "stale",
		"password":       "stale",
		"token":          "t",
	})
	want := map[string]string{"baseUrl": "https://x", "authentication": "token", "token": "t"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("visibleValues() = %v, want %v", got, want)
	}
}

func TestMissingRequired(t *testing.T) {
	desc := polarion.CredentialDescriptor
	if got := missingRequired(desc, map[string]string{}); !reflect.DeepEqual(got, []string{"baseUrl", "username", "password"}) {
		t.Errorf("basic default: %v", got)
	}
	if got := missingRequired(desc, map[string]string{"baseUrl": "https://x", "authentication": "token"}); !reflect.DeepEqual(got, []string{"token"}) {
		t.Errorf("token: %v", got)
	}
}

func TestFormTheme(t *testing.T) {
	theme := formTheme()
	if theme.Focused.Title.GetForeground() != shared.Header.GetForeground() {
		t.Errorf("focused title should use the header color")
	}
	if !theme.Focused.Title.GetBold() {
		t.Error("focused title should be bold")
	}

	t.Setenv(NoAltScreenEnv, "1")
	if newForm(huh.NewGroup(huh.NewInput().Title("Base URL"))) == nil {
		t.Fatal("expected a form")
	}
}
