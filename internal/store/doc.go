// Package store provides the durable key-value blob store backing job and
// settings persistence. Each key maps to one JSON document and writes
// replace the whole document (last write wins). SQLite is used purely as a
// crash-safe container; no relational structure leaks out of this package.
package store
