// Package store provides implementations of the core.Store persistence
// contract: a volatile in-memory store for tests and demos, and a durable
// SQLite-backed store for single-node deployments. Records are opaque byte
// values grouped into namespaces and addressed by key.
package store
