// Package main hosts the docbatch CLI entrypoint and command graph.
//
// The Cobra-based command tree loads configuration once, applies command-line
// overrides, and hands the result to the internal packages: `run` drives one
// partition, `plan` previews partition assignments, `status` reads the local
// ledger, `check` runs preflight probes, and `config` scaffolds and prints the
// configuration file.
//
// Keep this package lean: new behaviour belongs in internal packages first
// and is surfaced here through dedicated commands or flags.
package main
