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

package main

import (
	"github.com/Jasbris/polarion-node/internal/cli"
	"github.com/Jasbris/polarion-node/internal/commands/completion"
	configcmd "github.com/Jasbris/polarion-node/internal/commands/config"
	credentialscmd "github.com/Jasbris/polarion-node/internal/commands/credentials"
	"github.com/Jasbris/polarion-node/internal/commands/mcpserver"
	"github.com/Jasbris/polarion-node/internal/commands/resources"
	"github.com/Jasbris/polarion-node/internal/commands/run"
	versioncmd "github.com/Jasbris/polarion-node/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// Operation commands
	rootCmd.AddCommand(run.NewCommand())
	rootCmd.AddCommand(resources.NewCommand())

	// Credential and configuration management
	rootCmd.AddCommand(credentialscmd.NewCommand())
	rootCmd.AddCommand(configcmd.NewConfigCommand())
	rootCmd.AddCommand(completion.NewCommand())

	// MCP server
	rootCmd.AddCommand(mcpserver.NewCommand())

	// Version command
	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	// Custom help command with JSON support
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
