// Package ledger records runs and per-item outcomes in a local SQLite
// database so operators can inspect progress with `docbatch status`.
//
// The ledger is advisory. Work coordination between hosts happens through
// the lease service and the output store; the ledger only remembers what this
// host did. Each run gets a UUID, and every work item of the partition is
// recorded as it moves from enumerated to a terminal state.
//
// Schema changes bump schemaVersion in schema.go; operators delete the
// database to adopt the new schema.
package ledger
