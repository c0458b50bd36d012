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
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Jasbris/polarion-node/internal/commands/shared"
	"github.com/Jasbris/polarion-node/internal/integration/polarion"
)

// propertyView is the JSON form of a descriptor property.
type propertyView struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"displayName"`
	Type        string            `json:"type"`
	Required    bool              `json:"required"`
	Secret      bool              `json:"secret,omitempty"`
	Default     string            `json:"default,omitempty"`
	Options     []string          `json:"options,omitempty"`
	ShowWhen    map[string]string `json:"showWhen,omitempty"`
}

func newDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Show the fields of the credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			desc := polarion.CredentialDescriptor
			props := make([]propertyView, 0, len(desc.Properties))
			for _, p := range desc.Properties {
				props = append(props, propertyView{
					Name:        p.Name,
					DisplayName: p.DisplayName,
					Type:        string(p.Kind),
					Required:    p.Required,
					Secret:      p.Secret,
					Default:     p.Default,
					Options:     p.Options,
					ShowWhen:    p.ShowWhen,
				})
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					Name       string         `json:"name"`
					Properties []propertyView `json:"properties"`
				}{shared.NewJSONResponse("credentials describe"), desc.Name, props})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n\n", shared.Header.Render(desc.DisplayName), desc.Name)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tTYPE\tREQUIRED\tSHOWN WHEN")
			for _, p := range props {
				typ := p.Type
				if len(p.Options) > 0 {
					typ = strings.Join(p.Options, "|")
				}
				if p.Secret {
					typ += " (secret)"
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", p.Name, typ, p.Required, conditions(p.ShowWhen))
			}
			return w.Flush()
		},
	}
}

func conditions(showWhen map[string]string) string {
	if len(showWhen) == 0 {
		return "always"
	}
	parts := make([]string, 0, len(showWhen))
	for field, value := range showWhen {
		parts = append(parts, field+"="+value)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
