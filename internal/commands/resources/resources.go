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

package resources

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Jasbris/polarion-node/internal/commands/completion"
	"github.com/Jasbris/polarion-node/internal/commands/shared"
	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

type resourceView struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	IDField     string   `json:"idField"`
	Operations  []string `json:"operations"`
}

type fieldView struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"displayName"`
	Type        string      `json:"type"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Description string      `json:"description,omitempty"`
}

// NewCommand creates the resources command.
func NewCommand() *cobra.Command {
	var operation string

	cmd := &cobra.Command{
		Use:   "resources [resource]",
		Short: "List resources and the fields each operation accepts",
		Annotations: map[string]string{
			"group": "discovery",
		},
		Long: `Without arguments, list every resource with its identifier field.
With a resource, list the item fields each operation accepts.

Examples:
  polarion-node resources
  polarion-node resources workitems
  polarion-node resources documents --operation update`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completion.CompleteResources,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listResources(cmd)
			}

			resource := polarion.Resource(args[0])
			if !resource.Valid() {
				return shared.NewInvalidInputError("unknown resource", &pkgerrors.ValidationError{
					Field:      "resource",
					Message:    fmt.Sprintf("%q is not a resource", args[0]),
					Suggestion: "Run 'polarion-node resources' to list resources",
				})
			}

			ops := polarion.Operations
			if operation != "" {
				op := polarion.Operation(operation)
				if !op.Valid() {
					return shared.NewInvalidInputError("unknown operation", &pkgerrors.ValidationError{
						Field:   "operation",
						Message: fmt.Sprintf("%q is not one of list, get, create, update, delete", operation),
					})
				}
				ops = []polarion.Operation{op}
			}
			return describeResource(cmd, resource, ops)
		},
	}

	cmd.Flags().StringVar(&operation, "operation", "", "Only show fields for this operation")
	_ = cmd.RegisterFlagCompletionFunc("operation", completion.CompleteOperations)
	return cmd
}

func operationNames() []string {
	names := make([]string, len(polarion.Operations))
	for i, op := range polarion.Operations {
		names[i] = string(op)
	}
	return names
}

func listResources(cmd *cobra.Command) error {
	views := make([]resourceView, 0, len(polarion.Resources))
	for _, r := range polarion.Resources {
		views = append(views, resourceView{
			Name:        string(r),
			DisplayName: r.DisplayName(),
			IDField:     polarion.IDField(r),
			Operations:  operationNames(),
		})
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), struct {
			shared.JSONResponse
			Resources []resourceView `json:"resources"`
		}{shared.NewJSONResponse("resources"), views})
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tNAME\tID FIELD")
	for _, v := range views {
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.Name, v.DisplayName, v.IDField)
	}
	return w.Flush()
}

func fieldViews(resource polarion.Resource, op polarion.Operation) []fieldView {
	fields := polarion.FieldsFor(resource, op)
	views := make([]fieldView, 0, len(fields))
	for _, f := range fields {
		views = append(views, fieldView{
			Name:        f.Name,
			DisplayName: f.DisplayName,
			Type:        string(f.Kind),
			Required:    f.Required,
			Default:     f.Default,
			Description: f.Description,
		})
	}
	return views
}

func describeResource(cmd *cobra.Command, resource polarion.Resource, ops []polarion.Operation) error {
	if shared.GetJSON() {
		byOp := make(map[string][]fieldView, len(ops))
		for _, op := range ops {
			byOp[string(op)] = fieldViews(resource, op)
		}
		return shared.EmitJSON(cmd.OutOrStdout(), struct {
			shared.JSONResponse
			Resource   string                 `json:"resource"`
			Operations map[string][]fieldView `json:"operations"`
		}{shared.NewJSONResponse("resources"), string(resource), byOp})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", shared.Header.Render(resource.DisplayName()), resource)
	for _, op := range ops {
		fmt.Fprintf(out, "\n%s  %s %s\n", shared.Header.Render(op.DisplayName()), op.Method(), pathFor(resource, op))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  FIELD\tTYPE\tREQUIRED\tDEFAULT")
		for _, f := range fieldViews(resource, op) {
			def := ""
			if f.Default != nil {
				def = fmt.Sprint(f.Default)
			}
			fmt.Fprintf(w, "  %s\t%s\t%t\t%s\n", f.Name, f.Type, f.Required, def)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func pathFor(resource polarion.Resource, op polarion.Operation) string {
	path := "/" + string(resource)
	if op.TargetsOne() {
		path += "/{" + polarion.IDField(resource) + "}"
	}
	return path
}
