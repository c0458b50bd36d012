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

package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config selects the exporter and sampling.
type Config struct {
	Exporter       string
	Endpoint       string
	Insecure       bool
	Headers        map[string]string
	ServiceName    string
	ServiceVersion string

	// SampleRatio is the fraction of root traces kept. Values >= 1 keep all.
	SampleRatio float64

	// Writer receives stdout exporter output. Default: os.Stderr.
	Writer io.Writer
}

// Provider owns the tracer provider for the process.
type Provider struct {
	tp             *sdktrace.TracerProvider
	tracerProvider trace.TracerProvider
}

// Setup builds the provider for cfg and installs it as the global tracer
// provider. With no exporter a no-op provider is installed.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if exporter == nil {
		p := &Provider{tracerProvider: noop.NewTracerProvider()}
		otel.SetTracerProvider(p.tracerProvider)
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("",
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(NewSampler(cfg.SampleRatio)),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp, tracerProvider: tp}, nil
}

// NewSampler keeps ratio of root traces and follows the parent decision
// otherwise.
func NewSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Tracer returns a tracer from the provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tracerProvider.Tracer(name)
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.tp != nil
}

// Shutdown flushes and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
