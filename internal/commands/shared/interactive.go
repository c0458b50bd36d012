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
	"os"

	"golang.org/x/term"
)

// NonInteractiveEnv forces non-interactive mode when set to "true".
const NonInteractiveEnv = "POLARION_NODE_NON_INTERACTIVE"

// IsNonInteractive reports whether prompts must be skipped.
func IsNonInteractive() bool {
	// Priority 1: Explicit environment variable
	if os.Getenv(NonInteractiveEnv) == "true" {
		return true
	}

	// Priority 2: CI environment detection
	if isCIEnvironment() {
		return true
	}

	// Priority 3: stdin is not a TTY
	return !term.IsTerminal(int(os.Stdin.Fd()))
}

func isCIEnvironment() bool {
	ciVars := []string{
		"CI",             // Generic CI indicator
		"GITHUB_ACTIONS", // GitHub Actions
		"GITLAB_CI",      // GitLab CI
		"CIRCLECI",       // CircleCI
		"JENKINS_HOME",   // Jenkins
	}

	for _, envVar := range ciVars {
		value := os.Getenv(envVar)
		if value == "true" || value == "1" {
			return true
		}
		// JENKINS_HOME is set to a path, just check if it exists
		if envVar == "JENKINS_HOME" && value != "" {
			return true
		}
	}

	return false
}
