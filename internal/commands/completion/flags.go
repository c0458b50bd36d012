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

package completion

import (
	"github.com/spf13/cobra"

	"github.com/Jasbris/polarion-node/internal/integration/polarion"
)

// SafeCompletionWrapper wraps a completion function with panic recovery.
// Returns empty completion list on panic.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}

// CompleteResources provides completion for --resource flag values and
// resource arguments.
func CompleteResources(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		// At most one resource is named.
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		out := make([]string, 0, len(polarion.Resources))
		for _, r := range polarion.Resources {
			out = append(out, string(r)+"\t"+r.DisplayName())
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteOperations provides completion for --operation flag values.
func CompleteOperations(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		out := make([]string, 0, len(polarion.Operations))
		for _, op := range polarion.Operations {
			out = append(out, string(op)+"\t"+op.Method())
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteSecretsBackend provides completion for --backend flag values.
func CompleteSecretsBackend(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		backends := []string{
			"env\tEnvironment variables",
			"keychain\tSystem keychain (macOS/Linux)",
			"file\tEncrypted file storage",
		}
		return backends, cobra.ShellCompDirectiveNoFileComp
	})
}
