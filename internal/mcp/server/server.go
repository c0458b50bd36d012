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

// Package server implements an MCP server that exposes the Polarion node as tools.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	nodelog "github.com/Jasbris/polarion-node/internal/log"
	"github.com/Jasbris/polarion-node/internal/operation"
)

// Server wraps the MCP server and provides Polarion tools
type Server struct {
	mcpServer   *server.MCPServer
	name        string
	version     string
	node        operation.Node
	runner      *operation.Runner
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// ServerConfig configures the MCP server
type ServerConfig struct {
	// Name is the server name (default: "polarion-node")
	Name string

	// Version is the polarion-node version
	Version string

	// LogLevel controls logging verbosity (trace, debug, info, warn, error).
	// Ignored when Logger is set.
	LogLevel string

	// Logger receives server logs. It must not write to stdout.
	Logger *slog.Logger

	// Node executes tool calls.
	Node operation.Node

	// WritesPerMinute bounds create, update and delete calls that are not
	// dry runs. Default: 10.
	WritesPerMinute int

	// CallsPerMinute bounds all tool calls. Default: 100.
	CallsPerMinute int
}

// createLogger creates a logger with the specified log level.
// Writes to stderr to avoid interfering with MCP stdio protocol.
func createLogger(levelStr string) (*slog.Logger, error) {
	switch levelStr {
	case "trace", "debug", "info", "warn", "error":
	case "":
		levelStr = "info"
	default:
		return nil, fmt.Errorf("invalid log level: %s (must be trace, debug, info, warn, or error)", levelStr)
	}

	return nodelog.New(&nodelog.Config{
		Level:  levelStr,
		Format: nodelog.FormatText,
		Output: os.Stderr,
	}), nil
}

// NewServer creates a new MCP server instance
func NewServer(config ServerConfig) (*Server, error) {
	if config.Node == nil {
		return nil, errors.New("a node is required")
	}
	if config.Name == "" {
		config.Name = "polarion-node"
	}
	if config.Version == "" {
		config.Version = "dev"
	}
	if config.WritesPerMinute <= 0 {
		config.WritesPerMinute = 10
	}
	if config.CallsPerMinute <= 0 {
		config.CallsPerMinute = 100
	}

	logger := config.Logger
	if logger == nil {
		var err error
		logger, err = createLogger(config.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}
	logger = nodelog.WithComponent(logger, "mcp")

	s := &Server{
		mcpServer:   server.NewMCPServer(config.Name, config.Version, server.WithToolCapabilities(false)),
		name:        config.Name,
		version:     config.Version,
		node:        config.Node,
		runner:      operation.NewRunner(operation.WithLogger(logger)),
		rateLimiter: NewRateLimiter(config.WritesPerMinute, config.CallsPerMinute),
		logger:      logger,
	}

	s.registerTools()
	return s, nil
}

// registerTools registers the schema tool and one tool per resource.
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        SchemaToolName,
		Description: "List Polarion resources with the parameters each operation accepts. Call this before using a resource tool.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"resource": map[string]interface{}{
					"type":        "string",
					"description": "Only describe this resource",
					"enum":        resourceNames(),
				},
			},
		},
	}, s.handleSchema)

	for _, resource := range polarion.Resources {
		s.mcpServer.AddTool(resourceTool(resource), s.resourceHandler(resource))
	}
}

// Tools returns the names of the registered tools.
func (s *Server) Tools() []string {
	names := []string{SchemaToolName}
	for _, resource := range polarion.Resources {
		names = append(names, ToolName(resource))
	}
	return names
}

// Run starts the MCP server using stdio transport
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("version", s.version), slog.Int("tools", len(s.Tools())))

	// Serve via stdio
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down MCP server")
	// The mcp-go server doesn't have an explicit shutdown method
	// Returning from ServeStdio() is sufficient
	return nil
}

// Helper function to create error response
func errorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// Helper function to create success response
func textResponse(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}
