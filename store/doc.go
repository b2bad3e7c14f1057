// Package store provides the expiring record store underneath the room layer.
//
// A RecordStore holds opaque payloads keyed by room identity. It knows nothing
// about room semantics; its only policy is the retention window: a Get that
// observes a record older than the window deletes it and reports not-found.
// Concurrent writes to the same key are last-write-wins here; correctness of
// concurrent room mutation is the room layer's responsibility.
package store
