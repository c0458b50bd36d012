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

package errors

import "errors"

// UserVisibleError defines errors that should be displayed to end users
// with user-friendly messages and actionable suggestions.
//
// Node errors (RequestFailure, ConfigurationError) implement this interface
// to integrate with CLI error formatting.
type UserVisibleError interface {
	error

	// IsUserVisible returns true if this error should be shown to users.
	IsUserVisible() bool

	// UserMessage returns a user-friendly error message.
	UserMessage() string

	// Suggestion returns actionable guidance for resolving the error.
	// Returns empty string if no suggestion is available.
	Suggestion() string
}

// ErrorClassifier defines methods for programmatic error handling.
type ErrorClassifier interface {
	error

	// ErrorType returns a string identifying the error category.
	// Examples: "configuration", "payload_parse", "routing", "request"
	ErrorType() string

	// IsRetryable returns true if the operation should be retried.
	IsRetryable() bool
}

// FatalError marks errors that invalidate an entire execution.
// The item runner never converts a fatal error into a per-item error record,
// even when fail-tolerant mode is enabled.
type FatalError interface {
	error
	IsFatal() bool
}

// IsFatal reports whether any error in err's chain is a FatalError that
// reports itself as fatal.
func IsFatal(err error) bool {
	var fatal FatalError
	if errors.As(err, &fatal) {
		return fatal.IsFatal()
	}
	return false
}
