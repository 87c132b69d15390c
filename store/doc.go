// Package store provides the owner-partitioned item data access layer.
//
// Every item belongs to exactly one owner (the authenticated subject) and is
// addressed by the pair (owner, item id). There is no operation that reaches
// an item by id alone, so one owner can never read or change another's items.
//
// # Backends
//
// Three implementations of [Store] are provided:
//
//   - [DynamoStore] - a DynamoDB table keyed by (userId, itemId)
//   - [BadgerStore] - an embedded badger database for local runs
//   - [MemoryStore] - in-process maps for tests
//
// # Configuration
//
// Use [DefaultConfig] and override what you need:
//
//	cfg := store.DefaultConfig()
//	cfg.TableName = "prod_user_items"
//	cfg.Timeout = 2 * time.Second
//
// Every call is bounded by Config.Timeout; a call that does not finish in
// time fails with [ErrUnavailable].
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrNotFound] - no item for (owner, item id)
//   - [ErrValidation] - empty or oversized value, empty owner or id
//   - [ErrUnavailable] - the backend timed out, throttled or could not be reached
//
// Anything else is an internal failure.
package store
