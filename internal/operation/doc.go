// Package operation is the host runtime that drives nodes over input items.
//
// A Node turns one input item into zero or more output records. The Runner
// invokes a node once per item, strictly in order, and applies the
// fail-tolerant policy:
//   - With ContinueOnFail off, the first item error aborts the run and the
//     records produced by earlier items are returned alongside the error.
//   - With ContinueOnFail on, a failed item contributes an error record
//     {"error": message, "itemIndex": index} and the run continues.
//
// Errors that implement pkg/errors.FatalError (missing credentials, an
// unsupported auth method) always abort the run, whatever the policy.
//
// The transport subpackage is the HTTP round trip nodes use. It owns
// timeouts, retries of idempotent methods and rate limiting so that nodes
// stay free of those concerns.
package operation
