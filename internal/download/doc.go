// Package download owns the canonical job records for the fetch engine.
//
// The Registry is the single mutation entry point: every create, partial
// update, and delete goes through it so that persistence and change events
// stay consistent with in-memory state. Callers only ever see defensive
// copies of records, never the live structs.
package download
