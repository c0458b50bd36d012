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
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/Jasbris/polarion-node/internal/integration/polarion"
)

// promptValues asks for every visible descriptor property. It is a variable
// so tests can replace the terminal form.
var promptValues = runForm

// runForm renders one group per descriptor property. Groups whose ShowWhen
// conditions do not hold for the values entered so far are hidden.
func runForm(desc polarion.Descriptor, initial map[string]string) (map[string]string, error) {
	values := make(map[string]*string, len(desc.Properties))
	for _, p := range desc.Properties {
		v := initial[p.Name]
		if v == "" {
			v = p.Default
		}
		values[p.Name] = &v
	}
	current := func() map[string]string {
		out := make(map[string]string, len(values))
		for name, v := range values {
			out[name] = *v
		}
		return out
	}

	groups := make([]*huh.Group, 0, len(desc.Properties))
	for _, p := range desc.Properties {
		p := p
		groups = append(groups, huh.NewGroup(propertyField(p, values[p.Name])).
			WithHideFunc(func() bool { return !p.Visible(current()) }))
	}

	if err := newForm(groups...).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, errors.New("cancelled")
		}
		return nil, err
	}
	return visibleValues(desc, current()), nil
}

func propertyField(p polarion.CredentialProperty, value *string) huh.Field {
	title := p.DisplayName
	if p.Kind == polarion.KindOptions {
		return huh.NewSelect[string]().
			Title(title).
			Description(p.Description).
			Options(huh.NewOptions(p.Options...)...).
			Value(value)
	}

	input := huh.NewInput().
		Title(title).
		Description(p.Description).
		Placeholder(p.Placeholder).
		Value(value).
		Validate(func(s string) error {
			if p.Required && strings.TrimSpace(s) == "" {
				// Never echo secret input back in errors.
				return fmt.Errorf("%s is required", p.DisplayName)
			}
			return nil
		})
	if p.Secret {
		input = input.EchoMode(huh.EchoModePassword)
	}
	return input
}

// visibleValues drops values of properties hidden by their ShowWhen
// conditions, so switching auth methods does not store stale secrets.
func visibleValues(desc polarion.Descriptor, values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for _, p := range desc.Properties {
		if p.Visible(values) && values[p.Name] != "" {
			out[p.Name] = values[p.Name]
		}
	}
	return out
}

// missingRequired lists required visible properties without a value.
func missingRequired(desc polarion.Descriptor, values map[string]string) []string {
	var missing []string
	for _, p := range desc.Properties {
		if p.Required && p.Visible(values) && strings.TrimSpace(values[p.Name]) == "" {
			missing = append(missing, p.Name)
		}
	}
	return missing
}
