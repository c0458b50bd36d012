package operation

import (
	"context"
	"fmt"
)

// Params are the parameters of one input item, keyed by field name.
// Values are whatever the input decoder produced (strings, numbers, nested
// maps and slices).
type Params = map[string]interface{}

// Record is one output record. Every record is a JSON object.
type Record = map[string]interface{}

// Node processes input items one at a time.
type Node interface {
	// Name returns the node identifier.
	Name() string

	// ExecuteItem processes the item at index and returns its output records.
	// An item may produce zero, one or many records.
	ExecuteItem(ctx context.Context, params Params, index int) ([]Record, error)
}

// Error record keys.
const (
	RecordErrorKey     = "error"
	RecordItemIndexKey = "itemIndex"
)

// ErrorRecord is the record that stands in for a failed item when the run is
// fail-tolerant.
func ErrorRecord(err error, index int) Record {
	return Record{
		RecordErrorKey:     err.Error(),
		RecordItemIndexKey: index,
	}
}

// ItemError wraps the error that aborted a run with the failing item index.
type ItemError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

// Unwrap returns the item's error.
func (e *ItemError) Unwrap() error {
	return e.Err
}
