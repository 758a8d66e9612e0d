// Package daemon coordinates the long-running snatch process.
//
// It wires configuration, the blob store, the job registry, the scheduler,
// and the process supervisor into a single lifecycle with flock-based
// locking to prevent multiple instances. The daemon owns the operation
// surface the IPC layer exposes: metadata lookup, submission, cancellation,
// retry, history maintenance, and settings.
//
// Keep orchestration logic here: scheduling and process handling live in
// their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
