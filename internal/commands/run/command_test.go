package run

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/Jasbris/polarion-node/internal/commands/shared"
)

// polarionStub answers work item requests and records what it received.
type polarionStub struct {
	mu       sync.Mutex
	requests []string
	auth     string
}

func (s *polarionStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	s.auth = r.Header.Get("Authorization")
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/missing"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors":[{"status":"404","title":"Not Found","detail":"no such work item"}]}`)
	case strings.HasSuffix(r.URL.Path, "/workitems"):
		_, _ = io.WriteString(w, `{"data":[{"id":"P/WI-1"},{"id":"P/WI-2"}]}`)
	default:
		_, _ = io.WriteString(w, `{"data":{"id":"P/WI-3"}}`)
	}
}

// setupEnv isolates configuration, secrets and credentials for one test.
func setupEnv(t *testing.T, baseURL string) {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("POLARION_NODE_MASTER_KEY", "")
	t.Setenv("POLARION_BASE_URL", baseURL)
	t.Setenv("POLARION_AUTH", "token")
	t.Setenv("POLARION_TOKEN", "pat-123")
	t.Setenv("POLARION_USERNAME", "")
	t.Setenv("POLARION_PASSWORD", "")
	shared.ResetFlagsForTest("")
	t.Cleanup(func() { shared.ResetFlagsForTest("") })
}

func execCommand(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()
	if cmd.Use != "run" {
		t.Errorf("expected use 'run', got %q", cmd.Use)
	}

	expectedFlags := []string{"resource", "operation", "id", "query", "data", "fields", "limit", "skip",
		"param", "input", "continue-on-fail", "jq", "output", "metrics-file", "dry-run"}
	for _, flag := range expectedFlags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("--%s flag not defined", flag)
		}
	}
}

func TestRun_List(t *testing.T) {
	stub := &polarionStub{}
	server := httptest.NewServer(stub)
	defer server.Close()
	setupEnv(t, server.URL)

	out, err := execCommand(t, nil, "--resource", "workitems", "--operation", "list", "--query", "type:task")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var records []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, out)
	}
	if len(records) != 2 || records[0]["id"] != "P/WI-1" {
		t.Errorf("records = %v", records)
	}
	if stub.auth != "Bearer pat-123" {
		t.Errorf("Authorization = %q", stub.auth)
	}
}

func TestRun_ContinueOnFailFromStdin(t *testing.T) {
	stub := &polarionStub{}
	server := httptest.NewServer(stub)
	defer server.Close()
	setupEnv(t, server.URL)

	stdin := strings.NewReader(`{"workItemId":"WI-3"}
{"workItemId":"missing"}
{"workItemId":"WI-4"}`)
	out, err := execCommand(t, stdin, "--input", "-", "--resource", "workitems", "--operation", "get",
		"--continue-on-fail", "--jq", "[.[] | .itemIndex // .data.id]")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var got []interface{}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	want := []interface{}{"P/WI-3", float64(1), "P/WI-3"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %v, want %v", i, got[i], want[i])
		}
	}
	if len(stub.requests) != 3 {
		t.Errorf("requests = %v", stub.requests)
	}
}

func TestRun_AbortsWithoutContinueOnFail(t *testing.T) {
	stub := &polarionStub{}
	server := httptest.NewServer(stub)
	defer server.Close()
	setupEnv(t, server.URL)

	stdin := strings.NewReader(`[{"workItemId":"missing"},{"workItemId":"WI-4"}]`)
	_, err := execCommand(t, stdin, "-i", "-", "-r", "workitems", "-o", "get")
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if code := shared.ExitCode(err); code != shared.ExitExecutionFailed {
		t.Errorf("exit code = %d, want %d", code, shared.ExitExecutionFailed)
	}
	if !strings.Contains(err.Error(), "no such work item") {
		t.Errorf("error should carry the upstream detail: %v", err)
	}
	if len(stub.requests) != 1 {
		t.Errorf("items after the failure must not be sent: %v", stub.requests)
	}
}

func TestRun_MissingCredential(t *testing.T) {
	setupEnv(t, "")

	_, err := execCommand(t, nil, "--resource", "users", "--operation", "list")
	if err == nil {
		t.Fatal("expected error without credential")
	}
	if code := shared.ExitCode(err); code != shared.ExitMissingCredential {
		t.Errorf("exit code = %d, want %d (%v)", code, shared.ExitMissingCredential, err)
	}
}

func TestRun_InvalidInput(t *testing.T) {
	setupEnv(t, "https://alm.example.com")

	tests := [][]string{
		{"--resource", "users", "--operation", "list", "--output", "xml"},
		{"--param", "novalue"},
		{"--input", filepath.Join(t.TempDir(), "*.json")},
	}
	for _, args := range tests {
		_, err := execCommand(t, nil, args...)
		if code := shared.ExitCode(err); code != shared.ExitInvalidInput {
			t.Errorf("%v: exit code = %d, want %d (%v)", args, code, shared.ExitInvalidInput, err)
		}
	}
}

func TestRun_YAMLOutputAndMetrics(t *testing.T) {
	stub := &polarionStub{}
	server := httptest.NewServer(stub)
	defer server.Close()
	setupEnv(t, server.URL)

	metricsPath := filepath.Join(t.TempDir(), "polarion.prom")
	out, err := execCommand(t, nil, "-r", "workitems", "-o", "list", "--output", "yaml", "--metrics-file", metricsPath)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out, "- id: P/WI-1") {
		t.Errorf("unexpected YAML output:\n%s", out)
	}

	metrics, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(metrics), "polarion_node_items_total") {
		t.Errorf("metrics file lacks item counter:\n%s", metrics)
	}
}

func TestRun_DryRun(t *testing.T) {
	setupEnv(t, "")

	out, err := execCommand(t, nil, "-r", "documents", "-o", "get", "--id", "Space/Spec", "--dry-run")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}

	var plan []plannedRequest
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(plan) != 1 || plan[0].Method != http.MethodGet || plan[0].Path != "/documents/Space%2FSpec" {
		t.Errorf("plan = %+v", plan)
	}
}

func TestFlagCompletion(t *testing.T) {
	cmd := NewCommand()

	for flag, want := range map[string]string{"resource": "workitems", "operation": "list", "output": "yaml"} {
		fn, ok := cmd.GetFlagCompletionFunc(flag)
		if !ok {
			t.Fatalf("no completion registered for --%s", flag)
		}
		got, _ := fn(cmd, nil, "")
		found := false
		for _, c := range got {
			if strings.SplitN(c, "\t", 2)[0] == want {
				found = true
			}
		}
		if !found {
			t.Errorf("--%s completions %v missing %q", flag, got, want)
		}
	}
}
