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
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Jasbris/polarion-node/internal/config"
	"github.com/Jasbris/polarion-node/internal/tracing"
)

func TestRuntimeShutdown(t *testing.T) {
	t.Run("close failure is logged", func(t *testing.T) {
		var logs bytes.Buffer
		cfg := config.Default()
		cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "missing", "dir", "metrics.prom")
		rt := &Runtime{
			Config:  cfg,
			Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
			Tracing: &tracing.Provider{},
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rt.Shutdown(ctx)

		if !strings.Contains(logs.String(), "shutdown incomplete") {
			t.Errorf("expected shutdown warning, got %q", logs.String())
		}
		if !strings.Contains(logs.String(), "failed to write metrics") {
			t.Errorf("expected metrics error in log, got %q", logs.String())
		}
	})

	t.Run("clean close logs nothing", func(t *testing.T) {
		var logs bytes.Buffer
		rt := &Runtime{
			Config:  config.Default(),
			Logger:  slog.New(slog.NewTextHandler(&logs, nil)),
			Tracing: &tracing.Provider{},
		}
		rt.Shutdown(context.Background())
		if logs.Len() != 0 {
			t.Errorf("unexpected log output %q", logs.String())
		}
	})
}
