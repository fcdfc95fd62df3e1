// Package config loads, normalizes, and validates docbatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DOCBATCH_LEASE_ENDPOINT. The Config type centralizes every knob a worker
// process needs: its partition, the lease service, candidate output roots,
// batch sizes, and the inference endpoint.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
