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

package mcpserver

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jasbris/polarion-node/internal/commands/shared"
	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	nodelog "github.com/Jasbris/polarion-node/internal/log"
	"github.com/Jasbris/polarion-node/internal/mcp/server"
)

// NewCommand creates the mcp-server command
func NewCommand() *cobra.Command {
	var (
		writesPerMinute int
		callsPerMinute  int
	)

	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Start the polarion-node MCP server",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `Start the polarion-node MCP (Model Context Protocol) server.

The server exposes one tool per Polarion resource (polarion_workitems,
polarion_documents, ...) plus polarion_resources, which describes the
arguments each operation accepts. It uses the credential configured with
'polarion-node credentials set' or the POLARION_* environment variables.

The server runs in stdio mode, which is suitable for integration with
AI assistants via their MCP configuration:
  {
    "mcpServers": {
      "polarion": {
        "command": "polarion-node",
        "args": ["mcp-server"]
      }
    }
  }

For safety, create, update and delete calls default to dry_run=true and
return the request that would be sent. Callers must set dry_run=false to
change data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCPServer(cmd, writesPerMinute, callsPerMinute)
		},
	}

	cmd.Flags().IntVar(&writesPerMinute, "writes-per-minute", 10, "Maximum executed create, update and delete calls per minute")
	cmd.Flags().IntVar(&callsPerMinute, "calls-per-minute", 100, "Maximum tool calls per minute")

	return cmd
}

func runMCPServer(cmd *cobra.Command, writesPerMinute, callsPerMinute int) error {
	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer func() {
		if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
			rt.Logger.Warn("shutdown incomplete", nodelog.Error(err))
		}
	}()

	node, err := rt.Registry.Get(polarion.NodeName)
	if err != nil {
		return shared.NewExecutionError("node unavailable", err)
	}

	versionStr, _, _ := shared.GetVersion()
	srv, err := server.NewServer(server.ServerConfig{
		Name:            "polarion-node",
		Version:         versionStr,
		Logger:          rt.Logger,
		Node:            node,
		WritesPerMinute: writesPerMinute,
		CallsPerMinute:  callsPerMinute,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.Logger.Warn("error during shutdown", nodelog.Error(err))
		}
		cancel()
	}()

	// Run the server (blocks until shutdown)
	if err := srv.Run(ctx); err != nil {
		return shared.NewExecutionError("MCP server stopped", err)
	}
	return nil
}
