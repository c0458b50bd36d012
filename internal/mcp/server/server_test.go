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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	"github.com/Jasbris/polarion-node/internal/operation"
)

// recordingNode returns canned records and remembers the params it saw.
type recordingNode struct {
	params  []operation.Params
	records []operation.Record
	err     error
}

func (n *recordingNode) Name() string { return "polarion" }

func (n *recordingNode) ExecuteItem(_ context.Context, params operation.Params, _ int) ([]operation.Record, error) {
	n.params = append(n.params, params)
	return n.records, n.err
}

func callRequest(tool string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = tool
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func newTestServer(t *testing.T, node operation.Node) *Server {
	t.Helper()
	s, err := NewServer(ServerConfig{Name: "test-server", Version: "1.0.0", LogLevel: "error", Node: node})
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	return s
}

func TestCreateLogger_ValidLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := createLogger(tt.level)
			if err != nil {
				t.Fatalf("createLogger(%q) returned error: %v", tt.level, err)
			}
			if !logger.Enabled(context.Background(), tt.expected) {
				t.Errorf("logger not enabled for level %v", tt.expected)
			}
		})
	}
}

func TestCreateLogger_InvalidLevel(t *testing.T) {
	for _, level := range []string{"invalid", "INFO", "1"} {
		logger, err := createLogger(level)
		if err == nil {
			t.Errorf("createLogger(%q) should return error, got nil", level)
		}
		if logger != nil {
			t.Errorf("createLogger(%q) should return nil logger on error", level)
		}
	}
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t, &recordingNode{})
	if s.name != "test-server" || s.version != "1.0.0" {
		t.Errorf("server = %q %q", s.name, s.version)
	}
	if got := len(s.Tools()); got != len(polarion.Resources)+1 {
		t.Errorf("expected %d tools, got %d", len(polarion.Resources)+1, got)
	}

	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Error("NewServer() without a node should fail")
	}
	if _, err := NewServer(ServerConfig{Node: &recordingNode{}, LogLevel: "loud"}); err == nil {
		t.Error("NewServer() with invalid log level should fail")
	}
}

func TestResourceTool_Schema(t *testing.T) {
	tool := resourceTool(polarion.ResourceWorkItems)
	if tool.Name != "polarion_workitems" {
		t.Errorf("Name = %q", tool.Name)
	}
	for _, arg := range []string{"operation", "workItemId", "query", "data", "fields", "limit", "skip", "dry_run"} {
		if _, ok := tool.InputSchema.Properties[arg]; !ok {
			t.Errorf("missing argument %q", arg)
		}
	}
	if _, ok := tool.InputSchema.Properties["documentId"]; ok {
		t.Error("documentId does not apply to work items")
	}

	pages := resourceTool(polarion.ResourcePages)
	if _, ok := pages.InputSchema.Properties["query"]; ok {
		t.Error("query only applies to work item lists")
	}
	if _, ok := pages.InputSchema.Properties["resourceId"]; !ok {
		t.Error("pages are addressed by resourceId")
	}
}

func TestResourceHandler_List(t *testing.T) {
	node := &recordingNode{records: []operation.Record{{"id": "P/WI-1"}, {"id": "P/WI-2"}}}
	s := newTestServer(t, node)

	result, err := s.resourceHandler(polarion.ResourceWorkItems)(context.Background(), callRequest("polarion_workitems", map[string]interface{}{
		"operation": "list",
		"query":     "type:task",
		"limit":     float64(5),
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var records []map[string]interface{}
	if err := json.Unmarshal([]byte(resultText(t, result)), &records); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("records = %v", records)
	}

	if len(node.params) != 1 {
		t.Fatalf("node called %d times", len(node.params))
	}
	got := node.params[0]
	if got["resource"] != "workitems" || got["query"] != "type:task" {
		t.Errorf("params = %v", got)
	}
	if opts, _ := got["options"].(map[string]interface{}); opts["limit"] != float64(5) {
		t.Errorf("limit should move under options, got %v", got["options"])
	}
}

func TestResourceHandler_WritesDefaultToDryRun(t *testing.T) {
	node := &recordingNode{}
	s := newTestServer(t, node)
	handler := s.resourceHandler(polarion.ResourceDocuments)

	result, err := handler(context.Background(), callRequest("polarion_documents", map[string]interface{}{
		"operation":  "update",
		"documentId": "Space/Spec",
		"data":       map[string]interface{}{"data": map[string]interface{}{"type": "documents"}},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var plan dryRunResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &plan); err != nil {
		t.Fatalf("plan is not JSON: %v", err)
	}
	if !plan.DryRun || plan.Method != "PUT" || plan.Path != "/documents/Space%2FSpec" {
		t.Errorf("plan = %+v", plan)
	}
	if len(node.params) != 0 {
		t.Error("dry run must not reach the node")
	}

	_, err = handler(context.Background(), callRequest("polarion_documents", map[string]interface{}{
		"operation":  "delete",
		"documentId": "Space/Spec",
		"dry_run":    false,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(node.params) != 1 {
		t.Error("dry_run=false must execute")
	}
}

func TestResourceHandler_Errors(t *testing.T) {
	node := &recordingNode{err: &polarion.ConfigurationError{Reason: "no credential"}}
	s := newTestServer(t, node)
	handler := s.resourceHandler(polarion.ResourceUsers)

	result, _ := handler(context.Background(), callRequest("polarion_users", map[string]interface{}{}))
	if !result.IsError {
		t.Error("missing operation should be a tool error")
	}

	result, _ = handler(context.Background(), callRequest("polarion_users", map[string]interface{}{"operation": "list"}))
	if !result.IsError {
		t.Fatal("node failure should be a tool error")
	}
	if text := resultText(t, result); !strings.Contains(text, "Suggestion: Run 'polarion-node credentials set'") {
		t.Errorf("error should carry the suggestion: %s", text)
	}

	result, _ = handler(context.Background(), callRequest("polarion_users", map[string]interface{}{
		"operation": "create",
		"data":      "{broken",
	}))
	if !result.IsError || !strings.Contains(resultText(t, result), "invalid data") {
		t.Error("unparseable data should fail the dry run")
	}
}

func TestHandleSchema(t *testing.T) {
	s := newTestServer(t, &recordingNode{})

	result, err := s.handleSchema(context.Background(), callRequest(SchemaToolName, map[string]interface{}{"resource": "teststeps"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var out []schemaResource
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if len(out) != 1 || out[0].Tool != "polarion_teststeps" || len(out[0].Operations) != 5 {
		t.Errorf("schema = %+v", out)
	}

	result, _ = s.handleSchema(context.Background(), callRequest(SchemaToolName, map[string]interface{}{"resource": "widgets"}))
	if !result.IsError {
		t.Error("unknown resource should be a tool error")
	}
}

func TestDescribeError(t *testing.T) {
	if got := describeError(errors.New("plain")); got != "plain" {
		t.Errorf("describeError() = %q", got)
	}
}
