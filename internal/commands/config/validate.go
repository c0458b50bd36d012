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
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jasbris/polarion-node/internal/commands/shared"
	"github.com/Jasbris/polarion-node/internal/config"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

// ValidationResult represents the result of config validation.
type ValidationResult struct {
	shared.JSONResponse
	Path     string   `json:"path"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the 'config validate' subcommand.
func NewValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validate the configuration file structure and values.

Checks performed:
  - YAML syntax and structure
  - Log level and format
  - HTTP timeout, retry and rate limit settings
  - Secrets backend name
  - Tracing exporter and endpoint

Risky but valid settings, such as disabled TLS verification, are reported
as warnings. With --strict, warnings are treated as errors.`,
		Example: `  # Validate configuration
  polarion-node config validate

  # Validate with warnings as errors
  polarion-node config validate --strict

  # Get validation result as JSON
  polarion-node config validate --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}

// runValidate performs configuration validation.
func runValidate(w io.Writer, strict bool) error {
	path, err := resolvePath()
	if err != nil {
		return err
	}

	result := ValidationResult{
		JSONResponse: shared.NewJSONResponse("config validate"),
		Path:         path,
	}

	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		result.Errors = loadErrors(err)
	} else {
		result.Warnings = warnings(cfg)
	}
	result.Valid = len(result.Errors) == 0
	result.Success = result.Valid && (!strict || len(result.Warnings) == 0)

	return outputValidationResult(w, result, strict)
}

// loadErrors splits a multi-line validation failure into one entry per problem.
func loadErrors(err error) []string {
	msg := err.Error()
	var cfgErr *pkgerrors.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Cause != nil {
		msg = cfgErr.Cause.Error()
	}

	var errs []string
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line != "" && !strings.HasSuffix(line, ":") {
			errs = append(errs, line)
		}
	}
	if len(errs) == 0 {
		errs = []string{msg}
	}
	return errs
}

// warnings flags settings that load but are likely mistakes.
func warnings(cfg *config.Config) []string {
	var warns []string
	if cfg.HTTP.TLSInsecure {
		warns = append(warns, "http.tls_insecure disables certificate verification for Polarion requests")
	}
	if cfg.HTTP.RateLimit.Burst > 0 && cfg.HTTP.RateLimit.RequestsPerSecond == 0 {
		warns = append(warns, "http.rate_limit.burst has no effect without requests_per_second")
	}
	if cfg.HTTP.Retry.MaxAttempts == 1 {
		warns = append(warns, "http.retry.max_attempts is 1, transient failures are not retried")
	}
	if cfg.Tracing.Exporter != config.ExporterNone && cfg.Tracing.SampleRatio == 0 {
		warns = append(warns, fmt.Sprintf("tracing exporter %q is set but sample_ratio is 0", cfg.Tracing.Exporter))
	}
	if cfg.Log.Level == "trace" || cfg.Log.Level == "debug" {
		warns = append(warns, fmt.Sprintf("log.level %q may log request details", cfg.Log.Level))
	}
	return warns
}

// outputValidationResult outputs the validation result and returns an exit error on failure.
func outputValidationResult(w io.Writer, result ValidationResult, strict bool) error {
	if shared.GetJSON() {
		if err := shared.EmitJSON(w, result); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	} else {
		if result.Valid {
			fmt.Fprintln(w, shared.RenderOK("Configuration is valid"))
		} else {
			fmt.Fprintln(w, shared.RenderError("Configuration validation failed"))
		}
		fmt.Fprintln(w)

		if len(result.Errors) > 0 {
			fmt.Fprintln(w, shared.Header.Render("Errors:"))
			for _, err := range result.Errors {
				fmt.Fprintf(w, "  %s %s\n", shared.StatusError.Render(shared.SymbolError), err)
			}
			fmt.Fprintln(w)
		}

		if len(result.Warnings) > 0 {
			fmt.Fprintln(w, shared.Header.Render("Warnings:"))
			for _, warn := range result.Warnings {
				fmt.Fprintf(w, "  %s %s\n", shared.StatusWarn.Render(shared.SymbolWarn), warn)
			}
			fmt.Fprintln(w)
		}

		if result.Valid && len(result.Warnings) == 0 {
			fmt.Fprintln(w, "No issues found.")
		}
	}

	if !result.Valid {
		return shared.NewInvalidInputError("configuration is invalid", nil)
	}

	// In strict mode, warnings become errors
	if strict && len(result.Warnings) > 0 {
		return shared.NewInvalidInputError("validation failed (strict mode: warnings treated as errors)", nil)
	}

	return nil
}
