// Package catalog defines the entity model and its SQLite persistence.
//
// An Entity is one catalog item (a series, game, book, ...) assembled from
// several external metadata providers. The package owns the closed set of
// writable fields, the media-type and relation-kind enums, the protected-
// field set that shields operator edits from automated writers, and the
// Store that persists all of it.
//
// Serialized forms (JSON relation maps, protection sets, genre lists) exist
// only at the store boundary; business logic works with native types.
package catalog
