package integration

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/Jasbris/polarion-node/internal/integration/polarion"
	"github.com/Jasbris/polarion-node/internal/operation"
	"github.com/Jasbris/polarion-node/internal/operation/transport"
)

// Dependencies are the shared services handed to every built-in node.
type Dependencies struct {
	Credentials polarion.CredentialSource
	Transport   transport.Transport
	Logger      *slog.Logger
	Tracer      trace.Tracer
}

// Factory builds a node from its dependencies.
type Factory func(deps Dependencies) (operation.Node, error)

// BuiltinRegistry holds all built-in node factories.
var BuiltinRegistry = map[string]Factory{
	polarion.NodeName: newPolarionNode,
}

func newPolarionNode(deps Dependencies) (operation.Node, error) {
	if deps.Transport == nil {
		return nil, fmt.Errorf("%s: transport is required", polarion.NodeName)
	}
	client := polarion.NewClient(deps.Credentials, deps.Transport,
		polarion.WithClientLogger(deps.Logger),
		polarion.WithClientTracer(deps.Tracer))
	return polarion.NewNode(client, deps.Logger), nil
}

// NewRegistry instantiates every built-in node into a fresh registry.
func NewRegistry(deps Dependencies) (*operation.Registry, error) {
	registry := operation.NewRegistry()
	for name, factory := range BuiltinRegistry {
		node, err := factory(deps)
		if err != nil {
			return nil, fmt.Errorf("failed to create node %s: %w", name, err)
		}
		registry.Register(node)
	}
	return registry, nil
}
