// Package wallet provides the reactive credential cache used by the interface
// layer.
//
// The cache is a refreshable in-memory copy of the store's credential
// collection. It is never the source of truth: every mutating action writes
// through to the store first and then reloads the whole collection.
//
// # Consistency
//
//   - AddCredential / RemoveCredential: write, then Refresh, in that order
//   - A failed write leaves the cache untouched and skips the refresh
//   - A failed refresh keeps the previous (stale but valid) credentials
//   - Refreshes apply in the order their reads began, so a slow refresh that
//     started before an action's write can never overwrite the newer state
//
// # Initial Load
//
// New starts one asynchronous Refresh. Readers that look before it finishes
// see an empty list; Ready reports when it is done.
//
// # Selection
//
// The active credential id is UI state only. It is never persisted and never
// checked against the cached credentials.
package wallet
