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

import "testing"

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 3)

	for i := 0; i < 2; i++ {
		if !rl.AllowWrite() {
			t.Fatalf("write %d should be allowed", i)
		}
	}
	if rl.AllowWrite() {
		t.Error("third write within the burst should be denied")
	}

	for i := 0; i < 3; i++ {
		if !rl.AllowCall() {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if rl.AllowCall() {
		t.Error("fourth call within the burst should be denied")
	}
}
