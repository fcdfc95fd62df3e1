// Package workflow drives one partition of a batch job.
//
// The Driver loads the manifest, selects the partition's work items, and
// walks them in order. Each item moves through
//
//	enumerated -> skipped | lock_rejected | processing -> written | failed
//
// Skips come from a missing source or from existing output under any
// candidate root; rejections come from a fresh lease held by another worker.
// Processing reads the source documents, flattens recognizable regions,
// runs them through the batching pipeline, reassembles the results, and
// writes one JSONL blob under the output root.
//
// Errors inside an item are logged with the item identity, recorded in the
// ledger, and never stop the loop. Setup failures (partition lock, inference
// health, manifest) abort Run before the first item. An item that has started
// processing is finished even when the parent context is cancelled; the stop
// sentinel and cancellation are honoured between items.
package workflow
