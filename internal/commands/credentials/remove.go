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

	"github.com/spf13/cobra"

	"github.com/Jasbris/polarion-node/internal/commands/completion"
	"github.com/Jasbris/polarion-node/internal/commands/shared"
	credstore "github.com/Jasbris/polarion-node/internal/credentials"
	"github.com/Jasbris/polarion-node/internal/integration/polarion"
)

func newRemoveCommand() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:     "remove",
		Aliases: []string{"rm", "delete"},
		Short:   "Delete the stored credential",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := shared.NewRuntime(ctx)
			if err != nil {
				return shared.Classify("failed to initialize", err)
			}
			defer rt.Close(ctx)

			store := rt.Credentials
			if backend != "" {
				store = credstore.NewStore(rt.Secrets, credstore.WithBackend(backend))
			}

			err = store.Remove(ctx)
			if errors.Is(err, credstore.ErrNotConfigured) {
				return shared.NewMissingCredentialError("nothing to remove", err)
			}
			if err != nil {
				return shared.Classify("failed to remove credential", err)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), shared.NewJSONResponse("credentials remove"))
			}
			if !shared.GetQuiet() {
				cmd.Println(shared.RenderOK(fmt.Sprintf("Credential %s removed", polarion.CredentialType)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "Backend to delete from (keychain, file)")
	_ = cmd.RegisterFlagCompletionFunc("backend", completion.CompleteSecretsBackend)
	return cmd
}
