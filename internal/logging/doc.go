// Package logging assembles structured slog loggers and formatting helpers used
// across docbatch.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so item processing code tags log
// lines with the partition, work item, stage, and run identifier. When a log
// directory is configured the console stream is teed into a per-partition JSON
// file. The package also provides a no-op logger for tests.
package logging
