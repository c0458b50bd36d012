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
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetup_None(t *testing.T) {
	provider, err := Setup(context.Background(), Config{Exporter: ExporterNone})
	require.NoError(t, err)
	assert.False(t, provider.Enabled())

	_, span := provider.Tracer("test").Start(context.Background(), "dropped")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSetup_Stdout(t *testing.T) {
	var buf bytes.Buffer
	provider, err := Setup(context.Background(), Config{
		Exporter:       ExporterStdout,
		ServiceName:    "polarion-node",
		ServiceVersion: "test",
		SampleRatio:    1,
		Writer:         &buf,
	})
	require.NoError(t, err)
	assert.True(t, provider.Enabled())

	_, span := otel.Tracer("test").Start(context.Background(), "node.item")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, provider.Shutdown(ctx))

	assert.Contains(t, buf.String(), `"Name": "node.item"`)
	assert.Contains(t, buf.String(), "polarion-node")
}

func TestSetup_OTLPExportersConstruct(t *testing.T) {
	for _, exporter := range []string{ExporterOTLPHTTP, ExporterOTLPGRPC} {
		t.Run(exporter, func(t *testing.T) {
			provider, err := Setup(context.Background(), Config{
				Exporter:    exporter,
				Endpoint:    "http://127.0.0.1:1",
				Insecure:    true,
				ServiceName: "polarion-node",
			})
			require.NoError(t, err)
			assert.True(t, provider.Enabled())

			// nothing was recorded, so shutdown has nothing to send
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = provider.Shutdown(ctx)
		})
	}
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), Config{Exporter: "jaeger"})
	assert.ErrorContains(t, err, "unknown trace exporter")
}

func TestNewSampler(t *testing.T) {
	root := sdktrace.SamplingParameters{ParentContext: context.Background(), Name: "x"}

	assert.Equal(t, sdktrace.RecordAndSample, NewSampler(1).ShouldSample(root).Decision)
	assert.Equal(t, sdktrace.Drop, NewSampler(0).ShouldSample(root).Decision)
	assert.Contains(t, NewSampler(0.25).Description(), "TraceIDRatioBased")
}
