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
	"encoding/json"
	"io"
)

// JSONVersion is the envelope version of --json output.
const JSONVersion = "1.0"

// JSONResponse is the common envelope of --json output.
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// JSONError is one error in a failed --json response.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// NewJSONResponse returns a successful envelope for command.
func NewJSONResponse(command string) JSONResponse {
	return JSONResponse{Version: JSONVersion, Command: command, Success: true}
}

// EmitJSON writes response to w as indented JSON.
func EmitJSON(w io.Writer, response interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// EmitJSONError writes a failed envelope for command.
func EmitJSONError(w io.Writer, command string, errors []JSONError) error {
	type errorResponse struct {
		JSONResponse
		Errors []JSONError `json:"errors"`
	}

	resp := errorResponse{
		JSONResponse: JSONResponse{
			Version: JSONVersion,
			Command: command,
			Success: false,
		},
		Errors: errors,
	}

	return EmitJSON(w, resp)
}
