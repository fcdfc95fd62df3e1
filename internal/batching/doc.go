// Package batching feeds flattened units through a two-level batching
// pipeline that overlaps payload transfer with inference.
//
// Documents are grouped into outer batches and loaded by a bounded worker
// pool. The loaded units of an outer batch are re-chunked into inner batches
// for the inference collaborator. A depth-1 prefetcher prepares inner batch
// N+1 while batch N is being inferred, so at most one batch is on the device
// and at most one is in preparation. Units are tagged with their position
// and placed by that tag, never by completion order.
package batching
