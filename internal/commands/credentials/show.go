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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jasbris/polarion-node/internal/commands/shared"
	"github.com/Jasbris/polarion-node/internal/integration/polarion"
)

type showResponse struct {
	shared.JSONResponse
	Source      string              `json:"source"`
	Credential  polarion.Credential `json:"credential"`
	TokenExpiry *time.Time          `json:"tokenExpiry,omitempty"`
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the credential with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := shared.NewRuntime(ctx)
			if err != nil {
				return shared.Classify("failed to initialize", err)
			}
			defer rt.Close(ctx)

			cred, source, err := rt.Credentials.LoadWithSource(ctx)
			if err != nil {
				return shared.Classify("failed to load credential", err)
			}

			var expiry *time.Time
			if cred.Method() == polarion.AuthToken {
				exp, ok, err := cred.TokenExpiry()
				if err != nil {
					rt.Logger.Debug("token is not a JWT, expiry unknown")
				} else if ok {
					expiry = &exp
				}
			}

			redacted := cred.Redacted()
			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), showResponse{
					JSONResponse: shared.NewJSONResponse("credentials show"),
					Source:       source,
					Credential:   redacted,
					TokenExpiry:  expiry,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, shared.Header.Render(polarion.CredentialDescriptor.DisplayName))
			fmt.Fprintln(out, shared.RenderField("  source        ", source))
			fmt.Fprintln(out, shared.RenderField("  baseUrl       ", redacted.BaseURL))
			fmt.Fprintln(out, shared.RenderField("  authentication", string(redacted.Method())))
			switch redacted.Method() {
			case polarion.AuthToken:
				fmt.Fprintln(out, shared.RenderField("  token         ", redacted.Token))
				if expiry != nil {
					line := expiry.UTC().Format(time.RFC3339)
					if time.Until(*expiry) <= 0 {
						line = shared.RenderWarn(line + " (expired)")
					}
					fmt.Fprintln(out, shared.RenderField("  token expires ", line))
				}
			default:
				fmt.Fprintln(out, shared.RenderField("  username      ", redacted.Username))
				fmt.Fprintln(out, shared.RenderField("  password      ", redacted.Password))
			}
			return nil
		},
	}
}
