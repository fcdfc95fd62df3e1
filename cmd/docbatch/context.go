package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"docbatch/internal/config"
)

type commandContext struct {
	configFlag *string
	flags      *jobFlags

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		flags:      &jobFlags{},
	}
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.flags.overrides(cmd).Apply(cfg); err != nil {
			c.configErr = fmt.Errorf("apply flags: %w", err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// jobFlags holds the persistent flags that override config file values.
type jobFlags struct {
	manifest       string
	numParts       int
	partIndex      int
	force          bool
	shuffle        bool
	seed           int64
	resultRoot     string
	candidateRoots []string
	leaseEndpoint  string
	inferenceURL   string
	outerSize      int
	innerSize      int
	workers        int
	logLevel       string
}

func (f *jobFlags) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.manifest, "manifest", "", "Work item list file, or a single .jsonl source")
	flags.IntVar(&f.numParts, "num-parts", 1, "Number of partitions the manifest is split into")
	flags.IntVar(&f.partIndex, "part-index", 0, "Zero-based partition this process owns")
	flags.BoolVar(&f.force, "force", false, "Process items even when output exists or a lease is held")
	flags.BoolVar(&f.shuffle, "shuffle", false, "Shuffle the manifest before partitioning")
	flags.Int64Var(&f.seed, "seed", 0, "Shuffle seed shared by every worker")
	flags.StringVar(&f.resultRoot, "result-root", "", "Root under which <task>/result is written")
	flags.StringSliceVar(&f.candidateRoots, "candidate-root", nil, "Legacy output root probed before processing (repeatable)")
	flags.StringVar(&f.leaseEndpoint, "lease-endpoint", "", "Lease service URL, or memory:// for a single host")
	flags.StringVar(&f.inferenceURL, "inference-endpoint", "", "Inference service URL")
	flags.IntVar(&f.outerSize, "outer-batch", 0, "Documents loaded per outer batch")
	flags.IntVar(&f.innerSize, "inner-batch", 0, "Units sent per inference call")
	flags.IntVar(&f.workers, "workers", 0, "Loader and preparation workers")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// overrides returns only the flags the user actually set.
func (f *jobFlags) overrides(cmd *cobra.Command) config.Overrides {
	changed := func(name string) bool {
		flag := cmd.Flags().Lookup(name)
		return flag != nil && flag.Changed
	}
	var o config.Overrides
	if changed("manifest") {
		o.Manifest = &f.manifest
	}
	if changed("num-parts") {
		o.NumParts = &f.numParts
	}
	if changed("part-index") {
		o.PartIndex = &f.partIndex
	}
	if changed("force") {
		o.Force = &f.force
	}
	if changed("shuffle") {
		o.Shuffle = &f.shuffle
	}
	if changed("seed") {
		o.ShuffleSeed = &f.seed
	}
	if changed("result-root") {
		o.ResultRoot = &f.resultRoot
	}
	if changed("candidate-root") {
		o.CandidateRoots = f.candidateRoots
	}
	if changed("lease-endpoint") {
		o.LeaseEndpoint = &f.leaseEndpoint
	}
	if changed("inference-endpoint") {
		o.InferenceURL = &f.inferenceURL
	}
	if changed("outer-batch") {
		o.OuterSize = &f.outerSize
	}
	if changed("inner-batch") {
		o.InnerSize = &f.innerSize
	}
	if changed("workers") {
		o.Workers = &f.workers
	}
	if changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	return o
}
