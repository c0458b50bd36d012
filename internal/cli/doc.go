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

/*
Package cli provides the root command and shared configuration for the polarion-node CLI.

This package creates the main Cobra command tree and handles global concerns like
version information, persistent flags, and error handling. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

The CLI is organized as:

	polarion-node
	├── run           Execute Polarion operations for one or more items
	├── credentials   Store, show, test and remove the Polarion credential
	├── resources     Describe resources, operations and their fields
	├── config        Show, initialize and validate the config file
	├── mcp-server    Serve the operations as MCP tools over stdio
	├── completion    Generate shell completion scripts
	├── version       Show version
	└── help          Show help

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	rootCmd := cli.NewRootCommand()
	// ... add commands ...
	if err := rootCmd.Execute(); err != nil {
	    cli.HandleExitError(err)
	}

# Global Flags

All commands inherit these flags:

	--verbose, -v    Enable verbose output
	--quiet, -q      Suppress non-error output
	--json           Output in JSON format
	--config         Path to config file

# Error Handling

Errors are handled centrally to ensure proper exit codes:

  - Exit 0: Success
  - Exit 1: Execution failed (request failures, aborted batches)
  - Exit 2: Invalid input (bad flags, unparseable data, unknown resources)
  - Exit 3: Missing or invalid credential
*/
package cli
