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

package credentials

import (
	"github.com/spf13/cobra"
)

// NewCommand creates the credentials command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the Polarion API credential",
		Annotations: map[string]string{
			"group": "configuration",
		},
		Long: `Manage the polarionApi credential used to authenticate requests.

The credential is read from the environment first (POLARION_BASE_URL,
POLARION_AUTH, POLARION_USERNAME, POLARION_PASSWORD, POLARION_TOKEN) and
otherwise from secret storage: the system keychain, or an encrypted file
when POLARION_NODE_MASTER_KEY is set.

Examples:
  polarion-node credentials set
  polarion-node credentials set --base-url https://alm.example.com/polarion/rest/v1 --auth token --secret-stdin
  polarion-node credentials show
  polarion-node credentials test
  polarion-node credentials remove`,
	}

	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newTestCommand())
	cmd.AddCommand(newRemoveCommand())
	cmd.AddCommand(newDescribeCommand())

	return cmd
}
