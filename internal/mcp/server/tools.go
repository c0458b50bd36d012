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
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	"github.com/Jasbris/polarion-node/internal/operation"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

const (
	// SchemaToolName is the tool describing resources and their fields.
	SchemaToolName = "polarion_resources"

	toolPrefix = "polarion_"
	optionsKey = "options"
	dryRunArg  = "dry_run"
)

// ToolName returns the MCP tool name for resource.
func ToolName(resource polarion.Resource) string {
	return toolPrefix + string(resource)
}

func resourceNames() []string {
	names := make([]string, len(polarion.Resources))
	for i, r := range polarion.Resources {
		names[i] = string(r)
	}
	return names
}

func operationNames() []string {
	names := make([]string, len(polarion.Operations))
	for i, op := range polarion.Operations {
		names[i] = string(op)
	}
	return names
}

// argumentName maps an item field to its tool argument; options.limit
// becomes limit.
func argumentName(field string) string {
	return strings.TrimPrefix(field, optionsKey+".")
}

func jsonSchemaType(kind polarion.FieldKind) interface{} {
	switch kind {
	case polarion.KindNumber:
		return "integer"
	case polarion.KindJSON:
		return []string{"object", "array", "string"}
	default:
		return "string"
	}
}

// resourceTool declares the tool for resource. Its arguments are the union
// of the item fields of every operation.
func resourceTool(resource polarion.Resource) mcp.Tool {
	properties := map[string]interface{}{
		"operation": map[string]interface{}{
			"type":        "string",
			"description": "Operation to perform",
			"enum":        operationNames(),
		},
		dryRunArg: map[string]interface{}{
			"type":        "boolean",
			"description": "For create, update and delete: return the request without sending it (default: true)",
			"default":     true,
		},
	}

	for _, op := range polarion.Operations {
		for _, f := range polarion.FieldsFor(resource, op) {
			if f.Name == polarion.FieldResource || f.Name == polarion.FieldOperation {
				continue
			}
			name := argumentName(f.Name)
			if _, seen := properties[name]; seen {
				continue
			}
			description := f.DisplayName
			if f.Description != "" {
				description = f.Description
			}
			prop := map[string]interface{}{
				"type":        jsonSchemaType(f.Kind),
				"description": fmt.Sprintf("%s (%s)", description, strings.Join(fieldOperations(resource, f.Name), ", ")),
			}
			if f.Default != nil {
				prop["default"] = f.Default
			}
			properties[name] = prop
		}
	}

	return mcp.Tool{
		Name: ToolName(resource),
		Description: fmt.Sprintf("Operate on Polarion %s entities (%s) through the REST API. List results are flattened into one record per entity.",
			resource.DisplayName(), resource),
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: properties,
			Required:   []string{"operation"},
		},
	}
}

// fieldOperations lists the operations that accept field on resource.
func fieldOperations(resource polarion.Resource, field string) []string {
	var ops []string
	for _, op := range polarion.Operations {
		for _, f := range polarion.FieldsFor(resource, op) {
			if f.Name == field {
				ops = append(ops, string(op))
				break
			}
		}
	}
	return ops
}

// paramsFromArguments converts tool arguments into runner parameters.
func paramsFromArguments(resource polarion.Resource, args map[string]interface{}) operation.Params {
	params := operation.Params{polarion.FieldResource: string(resource)}
	options := map[string]interface{}{}
	for key, value := range args {
		switch key {
		case dryRunArg:
		case argumentName(polarion.FieldFields), argumentName(polarion.FieldLimit), argumentName(polarion.FieldSkip):
			options[key] = value
		default:
			params[key] = value
		}
	}
	if len(options) > 0 {
		params[optionsKey] = options
	}
	return params
}

type dryRunResult struct {
	DryRun bool        `json:"dry_run"`
	Method string      `json:"method"`
	Path   string      `json:"path"`
	Query  string      `json:"query,omitempty"`
	Body   interface{} `json:"body,omitempty"`
}

func (s *Server) resourceHandler(resource polarion.Resource) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !s.rateLimiter.AllowCall() {
			return errorResponse("Rate limit exceeded. Please try again later."), nil
		}

		op, err := request.RequireString("operation")
		if err != nil {
			return errorResponse("Missing or invalid 'operation' argument"), nil
		}
		params := paramsFromArguments(resource, request.GetArguments())

		if polarion.Operation(op).HasPayload() || polarion.Operation(op) == polarion.OperationDelete {
			if request.GetBool(dryRunArg, true) {
				return s.planResponse(params), nil
			}
			if !s.rateLimiter.AllowWrite() {
				return errorResponse("Rate limit exceeded for write operations. Please try again later or use dry_run=true."), nil
			}
		}

		s.logger.Debug("tool call", slog.String("tool", ToolName(resource)), slog.String("operation", op))
		result, err := s.runner.Run(ctx, s.node, []operation.Params{params}, operation.RunOptions{})
		if err != nil {
			return errorResponse(describeError(err)), nil
		}

		records := result.Records
		if records == nil {
			records = []operation.Record{}
		}
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return errorResponse(fmt.Sprintf("Failed to encode records: %v", err)), nil
		}
		return textResponse(string(out)), nil
	}
}

// planResponse resolves params to the request a real call would send.
func (s *Server) planResponse(params operation.Params) *mcp.CallToolResult {
	item, err := polarion.DecodeItem(params)
	if err != nil {
		return errorResponse(describeError(err))
	}
	spec, err := polarion.Resolve(item)
	if err != nil {
		return errorResponse(describeError(err))
	}
	out, err := json.MarshalIndent(dryRunResult{
		DryRun: true,
		Method: spec.Method,
		Path:   spec.Path,
		Query:  spec.Query.Encode(),
		Body:   spec.Body,
	}, "", "  ")
	if err != nil {
		return errorResponse(fmt.Sprintf("Failed to encode plan: %v", err))
	}
	return textResponse(string(out))
}

// describeError renders err with its suggestion, if any.
func describeError(err error) string {
	msg := err.Error()
	var userErr pkgerrors.UserVisibleError
	if errors.As(err, &userErr) && userErr.Suggestion() != "" {
		return msg + "\n\nSuggestion: " + userErr.Suggestion()
	}
	var valErr *pkgerrors.ValidationError
	if errors.As(err, &valErr) && valErr.Suggestion != "" {
		return msg + "\n\nSuggestion: " + valErr.Suggestion
	}
	return msg
}

type schemaField struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Required bool        `json:"required"`
	Default  interface{} `json:"default,omitempty"`
}

type schemaResource struct {
	Name       string                   `json:"name"`
	Tool       string                   `json:"tool"`
	Operations map[string][]schemaField `json:"operations"`
}

func (s *Server) handleSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() {
		return errorResponse("Rate limit exceeded. Please try again later."), nil
	}

	filter := request.GetString("resource", "")
	var out []schemaResource
	for _, resource := range polarion.Resources {
		if filter != "" && string(resource) != filter {
			continue
		}
		entry := schemaResource{
			Name:       string(resource),
			Tool:       ToolName(resource),
			Operations: make(map[string][]schemaField, len(polarion.Operations)),
		}
		for _, op := range polarion.Operations {
			var fields []schemaField
			for _, f := range polarion.FieldsFor(resource, op) {
				if f.Name == polarion.FieldResource || f.Name == polarion.FieldOperation {
					continue
				}
				fields = append(fields, schemaField{
					Name:     argumentName(f.Name),
					Type:     string(f.Kind),
					Required: f.Required,
					Default:  f.Default,
				})
			}
			entry.Operations[string(op)] = fields
		}
		out = append(out, entry)
	}
	if len(out) == 0 {
		return errorResponse(fmt.Sprintf("Unknown resource %q", filter)), nil
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errorResponse(fmt.Sprintf("Failed to encode schema: %v", err)), nil
	}
	return textResponse(string(data)), nil
}
