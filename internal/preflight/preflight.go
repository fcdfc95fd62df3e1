package preflight

import (
	"context"

	"docbatch/internal/config"
	"docbatch/internal/manifest"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Pinger is satisfied by the lease service client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker is satisfied by the inference client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Targets are the remote collaborators to probe. Nil entries are reported as
// not configured.
type Targets struct {
	Manifest  manifest.Reader
	Lease     Pinger
	Inference HealthChecker
}

// RunAll executes every applicable check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckOutputRoot(cfg.OutputRoot()),
	}

	if cfg.Job.Manifest != "" && targets.Manifest != nil {
		results = append(results, CheckManifest(ctx, targets.Manifest, cfg.Job.Manifest))
	}

	switch {
	case cfg.Lease.Endpoint == config.MemoryLeaseEndpoint:
		results = append(results, Result{Name: "Lease service", Passed: true, Detail: "in-memory (single host only)"})
	case targets.Lease == nil:
		results = append(results, Result{Name: "Lease service", Detail: "not configured"})
	default:
		results = append(results, CheckService(ctx, "Lease service", cfg.Lease.Endpoint, targets.Lease.Ping))
	}

	if targets.Inference == nil {
		results = append(results, Result{Name: "Inference", Detail: "not configured"})
	} else {
		results = append(results, CheckService(ctx, "Inference", cfg.Inference.Endpoint, targets.Inference.HealthCheck))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
