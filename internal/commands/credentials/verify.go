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
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Jasbris/polarion-node/internal/commands/shared"
	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	nodelog "github.com/Jasbris/polarion-node/internal/log"
)

func newTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check the credential against the server",
		Long: `Test sends a minimal request with the stored credential and reports
whether the server accepted it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := shared.NewRuntime(ctx)
			if err != nil {
				return shared.Classify("failed to initialize", err)
			}
			defer rt.Shutdown(ctx)

			check := polarion.CredentialDescriptor.Test
			client := polarion.NewClient(rt.Credentials, rt.Transport,
				polarion.WithClientLogger(nodelog.WithComponent(rt.Logger, "credentials")))
			query := url.Values{"limit": {strconv.Itoa(check.Limit)}}

			_, reqErr := client.Request(ctx, check.Method, check.Path, nil, query)
			if reqErr != nil {
				if shared.GetJSON() {
					jsonErr := shared.JSONError{Code: "request", Message: reqErr.Error()}
					var (
						failure *polarion.RequestFailure
						cfgErr  *polarion.ConfigurationError
					)
					switch {
					case errors.As(reqErr, &failure):
						jsonErr.Code = failure.ErrorType()
						jsonErr.Suggestion = failure.Suggestion()
					case errors.As(reqErr, &cfgErr):
						jsonErr.Code = "configuration"
						jsonErr.Suggestion = cfgErr.Suggestion()
					}
					if err := shared.EmitJSONError(cmd.OutOrStdout(), "credentials test", []shared.JSONError{jsonErr}); err != nil {
						return err
					}
				}
				return shared.Classify("credential test failed", reqErr)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), shared.NewJSONResponse("credentials test"))
			}
			cmd.Println(shared.RenderOK(fmt.Sprintf("Credential accepted (%s %s)", check.Method, check.Path)))
			return nil
		},
	}
}
