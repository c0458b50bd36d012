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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Jasbris/polarion-node/internal/credentials"
	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

// Exit codes for polarion-node commands
const (
	ExitSuccess           = 0
	ExitExecutionFailed   = 1
	ExitInvalidInput      = 2
	ExitMissingCredential = 3
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for failed requests or runs
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitExecutionFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewInvalidInputError creates an error for bad flags, items or payloads
func NewInvalidInputError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidInput,
		Message: msg,
		Cause:   cause,
	}
}

// NewMissingCredentialError creates an error for an absent or unusable
// credential
func NewMissingCredentialError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitMissingCredential,
		Message: msg,
		Cause:   cause,
	}
}

// Classify wraps err in an ExitError whose code reflects the failure kind.
// Errors that already carry an exit code are returned unchanged.
func Classify(msg string, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	var (
		cfgErr     *polarion.ConfigurationError
		parseErr   *polarion.PayloadParseError
		routingErr *polarion.RoutingError
		valErr     *pkgerrors.ValidationError
		confErr    *pkgerrors.ConfigError
	)
	switch {
	case errors.As(err, &cfgErr), errors.Is(err, credentials.ErrNotConfigured):
		return NewMissingCredentialError(msg, err)
	case errors.As(err, &parseErr), errors.As(err, &routingErr),
		errors.As(err, &valErr), errors.As(err, &confErr):
		return NewInvalidInputError(msg, err)
	default:
		return NewExecutionError(msg, err)
	}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitExecutionFailed
}

// HandleExitError checks if an error is an ExitError and exits with the appropriate code
func HandleExitError(err error) {
	if err == nil {
		return
	}
	os.Exit(WriteError(os.Stderr, err))
}

// WriteError prints err and any suggestion to w and returns the exit code.
func WriteError(w io.Writer, err error) int {
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(w, "Error:", msg)
	}
	printUserVisibleSuggestion(w, err)
	return ExitCode(err)
}

// printUserVisibleSuggestion checks if an error implements UserVisibleError
// and prints the suggestion if available.
func printUserVisibleSuggestion(w io.Writer, err error) {
	for err != nil {
		if userErr, ok := err.(pkgerrors.UserVisibleError); ok {
			if userErr.IsUserVisible() {
				if suggestion := userErr.Suggestion(); suggestion != "" {
					fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
				}
			}
			return
		}
		if valErr, ok := err.(*pkgerrors.ValidationError); ok {
			if valErr.Suggestion != "" {
				fmt.Fprintf(w, "\nSuggestion: %s\n", valErr.Suggestion)
			}
			return
		}

		err = errors.Unwrap(err)
	}
}
