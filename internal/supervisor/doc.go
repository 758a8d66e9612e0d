// Package supervisor owns the external fetch processes. It starts one
// process per admitted job, funnels output through the progress parser
// back into the registry, and maps process exit onto a terminal job state.
//
// Cancellation is cooperative: Terminate kills the process and drops the
// handle, and the exit observer leaves any job that has already moved past
// downloading untouched.
package supervisor
