package testsupport

import (
	"path/filepath"
	"testing"

	"docbatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The lease endpoint is in-memory and the stop sentinel lives in the temp
// directory, so tests never observe the working directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StopSentinel = filepath.Join(base, "stop.sign")
	cfgVal.Job.Manifest = filepath.Join(base, "manifest.txt")
	cfgVal.Job.ResultRoot = filepath.Join(base, "results")
	cfgVal.Lease.Endpoint = config.MemoryLeaseEndpoint
	cfgVal.Inference.Endpoint = "http://127.0.0.1:0"
	cfgVal.Batch.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithPartition selects the partition the config runs.
func WithPartition(numParts, partIndex int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Job.NumParts = numParts
		b.cfg.Job.PartIndex = partIndex
	}
}

// WithForce sets the force flag.
func WithForce(force bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Job.Force = force
	}
}

// WithCandidateRoots adds legacy output roots probed before processing.
func WithCandidateRoots(roots ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Job.CandidateRoots = append([]string(nil), roots...)
	}
}

// WithBatch overrides the batch sizes.
func WithBatch(outer, inner, workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Batch.OuterSize = outer
		b.cfg.Batch.InnerSize = inner
		b.cfg.Batch.Workers = workers
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
