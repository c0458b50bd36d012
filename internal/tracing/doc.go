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

/*
Package tracing sets up OpenTelemetry span export for polarion-node.

The runner opens a "node.run" span per execution and a "node.item" span per
input item; the request helper adds a "polarion.request" client span per
HTTP call. Setup installs the provider globally so those tracers export
through it:

	provider, err := tracing.Setup(ctx, tracing.Config{
	    Exporter:    tracing.ExporterOTLPHTTP,
	    Endpoint:    "http://collector:4318",
	    ServiceName: "polarion-node",
	})
	defer provider.Shutdown(ctx)

Exporters: none (spans are dropped), stdout, otlp-http and otlp-grpc.
*/
package tracing
