// Package lease implements advisory, time-stamped leases over a remote
// key/timestamp service.
//
// A lease is never released: its timestamp simply ages until another worker
// may take it over. Guard decides whether the caller may proceed with a key;
// MemoryService is an in-process Service used for single-host runs and tests.
package lease
