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

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Jasbris/polarion-node/internal/commands/shared"
	"github.com/Jasbris/polarion-node/internal/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
		Annotations: map[string]string{
			"group": "configuration",
		},
		Long: `View and manage polarion-node configuration.

Subcommands:
  show     - Display the effective configuration
  path     - Show config file location
  init     - Write a config file with the built-in defaults
  validate - Check the config file for errors and risky settings`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigPathCommand())
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(NewValidateCommand())

	// If no subcommand provided, default to 'show'
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd, args)
	}

	return cmd
}

// newConfigShowCommand creates the 'config show' subcommand
func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration: the config file over the
built-in defaults, with environment overrides applied.

Credentials embedded in endpoint URLs are masked.
Use --json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
}

// newConfigPathCommand creates the 'config path' subcommand
func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file location",
		Long:  `Display the path to the configuration file.`,
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Long: `Write the built-in defaults to the config file so they can be edited.

An existing file is left untouched unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolvePath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return shared.NewInvalidInputError(fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return shared.NewExecutionError("failed to write config", err)
			}
			if !shared.GetQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("Wrote "+path))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func resolvePath() (string, error) {
	if p := shared.GetConfigPath(); p != "" {
		return p, nil
	}
	p, err := config.ConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to determine config path: %w", err)
	}
	return p, nil
}

// runConfigShow displays the current configuration
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolvePath()
	if err != nil {
		return err
	}

	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		return shared.Classify("failed to load config", err)
	}

	masked := maskSensitiveConfig(cfg)
	out := cmd.OutOrStdout()

	if shared.GetJSON() {
		return shared.EmitJSON(out, masked)
	}
	return outputConfigYAML(out, cfgPath, masked)
}

// runConfigPath displays the config file path
func runConfigPath(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolvePath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cfgPath)
	return nil
}

// maskSensitiveConfig creates a copy of config with URL credentials masked
func maskSensitiveConfig(cfg *config.Config) *config.Config {
	masked := *cfg
	masked.Tracing.Endpoint = maskURL(cfg.Tracing.Endpoint)
	return &masked
}

// maskURL hides the password part of a URL's userinfo.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), "****")
	return u.String()
}

// outputConfigYAML outputs config in YAML format
func outputConfigYAML(w io.Writer, path string, cfg *config.Config) error {
	source := path
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		source = path + " (not found, using defaults)"
	}
	fmt.Fprintf(w, "Configuration: %s\n", source)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return encoder.Close()
}
