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
	"github.com/charmbracelet/lipgloss"
)

var (
	// StatusOK styles success indicators
	StatusOK = lipgloss.NewStyle().Foreground(lipgloss.Color("42")) // green

	// StatusWarn styles warning indicators
	StatusWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange

	// StatusError styles error indicators
	StatusError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red

	// Muted styles secondary text such as descriptions and sources
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray

	// Header styles table and section headers
	Header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")) // blue bold
)

const (
	SymbolOK    = "✓"
	SymbolWarn  = "⚠"
	SymbolError = "✗"
)

func RenderOK(msg string) string {
	return StatusOK.Render(SymbolOK) + " " + msg
}

func RenderWarn(msg string) string {
	return StatusWarn.Render(SymbolWarn) + " " + msg
}

func RenderError(msg string) string {
	return StatusError.Render(SymbolError) + " " + msg
}

// RenderField renders an aligned "label: value" line.
func RenderField(label, value string) string {
	return Muted.Render(label+":") + " " + value
}
