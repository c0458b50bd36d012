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
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/Jasbris/polarion-node/internal/commands/shared"
)

// NoAltScreenEnv disables the alternate screen for the credential form.
const NoAltScreenEnv = "NO_ALT_SCREEN"

// formTheme is the Charm theme recolored with the CLI status palette.
func formTheme() *huh.Theme {
	t := huh.ThemeCharm()

	primary := shared.Header.GetForeground()
	muted := shared.Muted.GetForeground()
	failure := shared.StatusError.GetForeground()

	// Focused field styles
	t.Focused.Base = lipgloss.NewStyle()
	t.Focused.Title = lipgloss.NewStyle().Foreground(primary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(muted)
	t.Focused.ErrorIndicator = lipgloss.NewStyle().Foreground(failure).Bold(true)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(failure)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(primary).Bold(true)
	t.Focused.NextIndicator = lipgloss.NewStyle().Foreground(muted)
	t.Focused.PrevIndicator = lipgloss.NewStyle().Foreground(muted)

	// Blurred field styles
	t.Blurred.Base = lipgloss.NewStyle()
	t.Blurred.Title = lipgloss.NewStyle().Foreground(muted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(muted)

	return t
}

// newForm applies the theme and screen mode to the credential groups.
func newForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).
		WithTheme(formTheme()).
		WithProgramOptions(screenOption())
}

// screenOption enables the alternate screen unless NO_ALT_SCREEN=1.
func screenOption() tea.ProgramOption {
	if os.Getenv(NoAltScreenEnv) == "1" {
		return tea.WithoutCatchPanics()
	}
	return tea.WithAltScreen()
}
