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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Jasbris/polarion-node/internal/config"
	"github.com/Jasbris/polarion-node/internal/credentials"
	"github.com/Jasbris/polarion-node/internal/integration"
	nodelog "github.com/Jasbris/polarion-node/internal/log"
	"github.com/Jasbris/polarion-node/internal/operation"
	"github.com/Jasbris/polarion-node/internal/operation/transport"
	"github.com/Jasbris/polarion-node/internal/secrets"
	"github.com/Jasbris/polarion-node/internal/tracing"
	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

// Runtime holds the services a command needs, built from the loaded
// configuration and global flags.
type Runtime struct {
	Config      *config.Config
	Logger      *slog.Logger
	Secrets     *secrets.Resolver
	Credentials *credentials.Store
	Transport   transport.Transport
	Tracing     *tracing.Provider
	Registry    *operation.Registry
}

// NewRuntime loads configuration and wires logging, tracing, secrets,
// the transport and the node registry.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	cfg, err := config.Load(GetConfigPath())
	if err != nil {
		return nil, err
	}

	logCfg := cfg.LogConfig()
	switch {
	case GetVerbose():
		logCfg.Level = "debug"
	case GetQuiet():
		logCfg.Level = "error"
	}
	logCfg.Output = os.Stderr
	logger := nodelog.New(logCfg)

	v, _, _ := GetVersion()
	provider, err := tracing.Setup(ctx, tracing.Config{
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: v,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to set up tracing")
	}

	resolver, err := secrets.NewDefaultResolver(cfg.Secrets.FilePath, "")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to open secret storage")
	}
	resolver = resolver.WithLogger(nodelog.WithComponent(logger, "secrets"))

	var storeOpts []credentials.Option
	if cfg.Secrets.Backend != "" {
		storeOpts = append(storeOpts, credentials.WithBackend(cfg.Secrets.Backend))
	}
	store := credentials.NewStore(resolver, storeOpts...)

	trCfg := cfg.TransportConfig()
	trCfg.Logger = logger
	tr, err := transport.NewHTTPTransport(trCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create transport")
	}
	if limiter := transport.NewRateLimiter(cfg.HTTP.RateLimit.RequestsPerSecond, cfg.HTTP.RateLimit.Burst); limiter != nil {
		tr.SetRateLimiter(limiter)
	}

	registry, err := integration.NewRegistry(integration.Dependencies{
		Credentials: store,
		Transport:   tr,
		Logger:      logger,
		Tracer:      provider.Tracer("github.com/Jasbris/polarion-node"),
	})
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Config:      cfg,
		Logger:      logger,
		Secrets:     resolver,
		Credentials: store,
		Transport:   tr,
		Tracing:     provider,
		Registry:    registry,
	}, nil
}

// Close flushes telemetry. Metrics are written when a textfile path is
// configured.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if path := r.Config.Metrics.TextfilePath; path != "" {
		if err := operation.WriteMetricsTextfile(path); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if err := r.Tracing.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
	}
	return errors.Join(errs...)
}

// Shutdown closes the runtime after a command finishes. It ignores
// cancellation of ctx so telemetry still flushes after an interrupt, and
// logs a failure instead of returning it.
func (r *Runtime) Shutdown(ctx context.Context) {
	if err := r.Close(context.WithoutCancel(ctx)); err != nil {
		r.Logger.Warn("shutdown incomplete", nodelog.Error(err))
	}
}
