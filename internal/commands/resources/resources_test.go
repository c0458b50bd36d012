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

package resources

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Jasbris/polarion-node/internal/commands/shared"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResources_List(t *testing.T) {
	shared.ResetFlagsForTest("")

	out, err := execute(t)
	if err != nil {
		t.Fatalf("resources failed: %v", err)
	}
	for _, want := range []string{"workitems", "documentId", "testrecords", "approvals"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(strings.TrimSpace(out), "\n"); lines != 13 {
		t.Errorf("expected header plus 13 resources, got %d lines", lines+1)
	}
}

func TestResources_Describe(t *testing.T) {
	shared.ResetFlagsForTest("")

	out, err := execute(t, "documents", "--operation", "update")
	if err != nil {
		t.Fatalf("resources documents failed: %v", err)
	}
	if !strings.Contains(out, "PUT /documents/{documentId}") {
		t.Errorf("missing route line:\n%s", out)
	}
	if !strings.Contains(out, "data") || strings.Contains(out, "options.limit") {
		t.Errorf("unexpected fields:\n%s", out)
	}
}

func TestResources_DescribeJSON(t *testing.T) {
	shared.ResetFlagsForTest("")
	_, _, jsonFlag, _ := shared.RegisterFlagPointers()
	*jsonFlag = true
	t.Cleanup(func() { shared.ResetFlagsForTest("") })

	out, err := execute(t, "workitems")
	if err != nil {
		t.Fatalf("resources workitems failed: %v", err)
	}

	var resp struct {
		Resource   string                 `json:"resource"`
		Operations map[string][]fieldView `json:"operations"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(resp.Operations) != 5 {
		t.Errorf("expected 5 operations, got %d", len(resp.Operations))
	}
	var names []string
	for _, f := range resp.Operations["list"] {
		names = append(names, f.Name)
	}
	if got := strings.Join(names, ","); got != "resource,operation,query,options.fields,options.limit,options.skip" {
		t.Errorf("list fields = %s", got)
	}
}

func TestResources_Unknown(t *testing.T) {
	shared.ResetFlagsForTest("")

	_, err := execute(t, "widgets")
	if code := shared.ExitCode(err); code != shared.ExitInvalidInput {
		t.Errorf("exit code = %d (%v)", code, err)
	}
	_, err = execute(t, "users", "--operation", "archive")
	if code := shared.ExitCode(err); code != shared.ExitInvalidInput {
		t.Errorf("exit code = %d (%v)", code, err)
	}
}
