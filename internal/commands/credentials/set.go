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
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jasbris/polarion-node/internal/commands/completion"
	"github.com/Jasbris/polarion-node/internal/commands/shared"
	credstore "github.com/Jasbris/polarion-node/internal/credentials"
	"github.com/Jasbris/polarion-node/internal/integration/polarion"
)

type setOptions struct {
	baseURL     string
	auth        string
	username    string
	password    string
	token       string
	secretStdin bool
	backend     string
}

func newSetCommand() *cobra.Command {
	var opts setOptions

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the credential",
		Long: `Store the Polarion API credential in secret storage.

On a terminal a form asks for every field; flags pre-fill it. Without a
terminal all required fields must come from flags. Secrets can be piped
with --secret-stdin to keep them out of shell history.

Backend Selection:
  --backend <name>  Target specific backend (keychain, file)
  Default: secrets.backend from config, else the first writable backend

Examples:
  polarion-node credentials set
  polarion-node credentials set --base-url https://alm.example.com/polarion/rest/v1 \
      --auth basic --username jdoe --secret-stdin < password.txt
  echo "$PAT" | polarion-node credentials set --base-url https://alm.example.com/polarion/rest/v1 \
      --auth token --secret-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "REST API root of the Polarion server")
	cmd.Flags().StringVar(&opts.auth, "auth", "", "Authentication method: basic or token")
	cmd.Flags().StringVar(&opts.username, "username", "", "Username for basic authentication")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password for basic authentication (prefer --secret-stdin)")
	cmd.Flags().StringVar(&opts.token, "token", "", "Personal access token (prefer --secret-stdin)")
	cmd.Flags().BoolVar(&opts.secretStdin, "secret-stdin", false, "Read the password or token from stdin")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Target backend (keychain, file)")
	_ = cmd.RegisterFlagCompletionFunc("backend", completion.CompleteSecretsBackend)
	_ = cmd.RegisterFlagCompletionFunc("auth", cobra.FixedCompletions([]string{"basic", "token"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func (o *setOptions) values() map[string]string {
	return map[string]string{
		"baseUrl":        o.baseURL,
		"authentication": o.auth,
		"username":       o.username,
		"password":       o.password,
		"token":          o.token,
	}
}

func runSet(cmd *cobra.Command, opts *setOptions) error {
	ctx := cmd.Context()
	values := opts.values()

	if opts.secretStdin {
		secret, err := readSecret(cmd.InOrStdin())
		if err != nil {
			return shared.NewInvalidInputError("failed to read secret from stdin", err)
		}
		if polarion.AuthMethod(values["authentication"]) == polarion.AuthToken {
			values["token"] = secret
		} else {
			values["password"] = secret
		}
	}

	desc := polarion.CredentialDescriptor
	if missing := missingRequired(desc, values); len(missing) > 0 {
		if shared.IsNonInteractive() {
			return shared.NewInvalidInputError(
				fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")), nil)
		}
		prompted, err := promptValues(desc, values)
		if err != nil {
			return shared.NewInvalidInputError("credential entry aborted", err)
		}
		values = prompted
	}
	values = visibleValues(desc, values)

	rt, err := shared.NewRuntime(ctx)
	if err != nil {
		return shared.Classify("failed to initialize", err)
	}
	defer rt.Close(ctx)

	store := rt.Credentials
	if opts.backend != "" {
		store = credstore.NewStore(rt.Secrets, credstore.WithBackend(opts.backend))
	}

	backend, err := store.Save(ctx, polarion.CredentialFromValues(values))
	if err != nil {
		return shared.Classify("failed to store credential", err)
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), struct {
			shared.JSONResponse
			Backend string `json:"backend"`
		}{shared.NewJSONResponse("credentials set"), backend})
	}
	if !shared.GetQuiet() {
		cmd.Println(shared.RenderOK(fmt.Sprintf("Credential %s stored in %s", polarion.CredentialType, backend)))
	}
	return nil
}

// readSecret reads the first line of r.
func readSecret(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	secret := strings.TrimRight(line, "\r")
	if secret == "" {
		return "", fmt.Errorf("stdin is empty")
	}
	return secret, nil
}
