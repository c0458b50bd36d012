// Package polarion implements the Polarion ALM node: it routes
// resource/operation items to REST requests, authenticates them with the
// stored credential and flattens the responses into records.
package polarion

import (
	"context"
	"log/slog"

	nodelog "github.com/Jasbris/polarion-node/internal/log"
	"github.com/Jasbris/polarion-node/internal/operation"
)

// NodeName is the name the node registers under.
const NodeName = "polarion"

// Node dispatches items to the Polarion REST API.
type Node struct {
	client *Client
	logger *slog.Logger
}

// NewNode creates the node on top of a request helper.
func NewNode(client *Client, logger *slog.Logger) *Node {
	if logger == nil {
		logger = nodelog.Discard()
	}
	return &Node{
		client: client,
		logger: nodelog.WithComponent(logger, "dispatcher"),
	}
}

// Name implements operation.Node.
func (n *Node) Name() string {
	return NodeName
}

// ExecuteItem implements operation.Node.
func (n *Node) ExecuteItem(ctx context.Context, params operation.Params, index int) ([]operation.Record, error) {
	item, err := DecodeItem(params)
	if err != nil {
		return nil, err
	}
	return n.Dispatch(ctx, item, index)
}

// Dispatch resolves item, performs the request and normalizes the response.
func (n *Node) Dispatch(ctx context.Context, item *Item, index int) ([]operation.Record, error) {
	spec, err := Resolve(item)
	if err != nil {
		recordDispatch(item.Resource, item.Operation, "invalid", 0)
		return nil, err
	}

	n.logger.DebugContext(ctx, "dispatching item",
		slog.Int(nodelog.ItemIndexKey, index),
		slog.String(nodelog.ResourceKey, string(item.Resource)),
		slog.String(nodelog.OperationKey, string(item.Operation)),
		slog.String("method", spec.Method),
		slog.String("path", spec.Path))

	response, err := n.client.Do(ctx, spec)
	if err != nil {
		recordDispatch(item.Resource, item.Operation, "failed", 0)
		return nil, err
	}

	records := Normalize(response)
	recordDispatch(item.Resource, item.Operation, "success", len(records))
	return records, nil
}
