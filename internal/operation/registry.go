package operation

import (
	"fmt"
	"sort"
	"sync"

	pkgerrors "github.com/Jasbris/polarion-node/pkg/errors"
)

// Registry holds the nodes available to the host.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]Node),
	}
}

// Register adds a node, replacing any node with the same name.
func (r *Registry) Register(node Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.Name()] = node
}

// Get retrieves a node by name.
func (r *Registry) Get(name string) (Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[name]
	if !ok {
		return nil, &Error{
			Type:        ErrorTypeNotFound,
			Message:     fmt.Sprintf("node %q not registered", name),
			SuggestText: "Run 'polarion-node resources' to see what is available",
			Cause:       &pkgerrors.NotFoundError{Resource: "node", ID: name},
		}
	}
	return node, nil
}

// List returns the sorted names of all registered nodes.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.nodes))
	for name := range r.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
