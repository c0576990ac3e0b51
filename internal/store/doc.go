// ABOUTME: Package store persists conversation context, pending commands and tenants.
// ABOUTME: SQLite-backed; every read goes to the database, no in-process cache.

// Package store is the persistence layer behind the context store, the
// approval ledger and the tenant registry. The core treats all records
// as addressable-by-id and append-only: messages are never rewritten
// and pending commands are never deleted, only marked consumed.
package store
