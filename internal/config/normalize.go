package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeJob(); err != nil {
		return err
	}
	c.normalizeLease()
	c.normalizeInference()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.StopSentinel = strings.TrimSpace(c.Paths.StopSentinel)
	return nil
}

func (c *Config) normalizeJob() error {
	c.Job.TaskName = strings.TrimSpace(c.Job.TaskName)
	c.Job.ResultRoot = strings.TrimSpace(c.Job.ResultRoot)
	if c.Job.ResultRoot != "" && !isRemote(c.Job.ResultRoot) {
		expanded, err := expandPath(c.Job.ResultRoot)
		if err != nil {
			return fmt.Errorf("job.result_root: %w", err)
		}
		c.Job.ResultRoot = expanded
	}
	c.Job.Manifest = strings.TrimSpace(c.Job.Manifest)
	if c.Job.Manifest != "" {
		expanded, err := expandPath(c.Job.Manifest)
		if err != nil {
			return fmt.Errorf("job.manifest: %w", err)
		}
		c.Job.Manifest = expanded
	}
	roots := make([]string, 0, len(c.Job.CandidateRoots))
	for _, root := range c.Job.CandidateRoots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		if !isRemote(root) {
			expanded, err := expandPath(root)
			if err != nil {
				return fmt.Errorf("job.candidate_roots: %w", err)
			}
			root = expanded
		}
		roots = append(roots, strings.TrimRight(root, "/"))
	}
	c.Job.CandidateRoots = roots

	c.Job.InPlaceMarker = strings.TrimSpace(c.Job.InPlaceMarker)
	c.Job.InPlaceSourceRoot = strings.TrimSpace(c.Job.InPlaceSourceRoot)
	if c.Job.InPlaceSourceRoot != "" && !isRemote(c.Job.InPlaceSourceRoot) {
		expanded, err := expandPath(c.Job.InPlaceSourceRoot)
		if err != nil {
			return fmt.Errorf("job.in_place_source_root: %w", err)
		}
		c.Job.InPlaceSourceRoot = expanded
	}
	return nil
}

func (c *Config) normalizeLease() {
	c.Lease.Endpoint = strings.TrimSpace(c.Lease.Endpoint)
	if c.Lease.Endpoint == "" {
		if value, ok := os.LookupEnv(leaseEndpointEnv); ok {
			c.Lease.Endpoint = strings.TrimSpace(value)
		}
	}
	if c.Lease.Endpoint != MemoryLeaseEndpoint {
		c.Lease.Endpoint = strings.TrimRight(c.Lease.Endpoint, "/")
	}
	if c.Lease.TimeoutSeconds == 0 {
		c.Lease.TimeoutSeconds = defaultLeaseTimeoutSeconds
	}
	if c.Lease.RequestTimeoutSeconds == 0 {
		c.Lease.RequestTimeoutSeconds = defaultLeaseRequestTimeout
	}
}

func (c *Config) normalizeInference() {
	c.Inference.Endpoint = strings.TrimSpace(c.Inference.Endpoint)
	if c.Inference.Endpoint == "" {
		if value, ok := os.LookupEnv(inferenceEndpointEnv); ok {
			c.Inference.Endpoint = strings.TrimSpace(value)
		}
	}
	c.Inference.Endpoint = strings.TrimRight(c.Inference.Endpoint, "/")
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
