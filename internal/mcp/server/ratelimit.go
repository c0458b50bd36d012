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

package server

import (
	"golang.org/x/time/rate"
)

// RateLimiter bounds MCP tool calls with token buckets.
type RateLimiter struct {
	writes *rate.Limiter
	calls  *rate.Limiter
}

// NewRateLimiter creates a rate limiter with specified limits
// writesPerMinute: max create/update/delete calls that reach the server
// callsPerMinute: max total tool calls per minute
func NewRateLimiter(writesPerMinute, callsPerMinute int) *RateLimiter {
	return &RateLimiter{
		writes: rate.NewLimiter(rate.Limit(float64(writesPerMinute)/60.0), writesPerMinute),
		calls:  rate.NewLimiter(rate.Limit(float64(callsPerMinute)/60.0), callsPerMinute),
	}
}

// AllowWrite checks if a mutating call is allowed
func (rl *RateLimiter) AllowWrite() bool {
	return rl.writes.Allow()
}

// AllowCall checks if any tool call is allowed
func (rl *RateLimiter) AllowCall() bool {
	return rl.calls.Allow()
}
