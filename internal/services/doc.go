// Package services defines shared utilities consumed by the job driver and
// its external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp work item IDs, stage names, run IDs, and
//     partition labels for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent ledger reasons (transient I/O vs lease outage vs
//     inference failure).
//
// Clients for the remote collaborators live in subpackages: lockserver for the
// HTTP lease service and inference for the recognition endpoint.
package services
