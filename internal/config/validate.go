package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateJob(); err != nil {
		return err
	}
	if err := c.validateLease(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateJob() error {
	if c.Job.NumParts < 1 {
		return errors.New("job.num_parts must be at least 1")
	}
	if c.Job.PartIndex < 0 || c.Job.PartIndex >= c.Job.NumParts {
		return fmt.Errorf("job.part_index must be in [0,%d), got %d", c.Job.NumParts, c.Job.PartIndex)
	}
	if c.Job.TaskName == "" {
		return errors.New("job.task_name must be set")
	}
	if strings.ContainsAny(c.Job.TaskName, "/\\") {
		return errors.New("job.task_name must not contain path separators")
	}
	if len(c.Job.CandidateRoots) > maxRecommendedCandidateRoots {
		return fmt.Errorf("job.candidate_roots lists %d roots; at most %d are allowed", len(c.Job.CandidateRoots), maxRecommendedCandidateRoots)
	}
	if c.Job.InPlaceSourceRoot != "" && c.Job.InPlaceMarker == "" {
		return errors.New("job.in_place_marker must be set when job.in_place_source_root is")
	}
	return nil
}

func (c *Config) validateLease() error {
	if c.Lease.TimeoutSeconds < 0 {
		return errors.New("lease.timeout_seconds must not be negative (0 selects the default)")
	}
	if c.Lease.RequestTimeoutSeconds < 0 {
		return errors.New("lease.request_timeout_seconds must not be negative (0 selects the default)")
	}
	endpoint := c.Lease.Endpoint
	if endpoint == "" || endpoint == MemoryLeaseEndpoint {
		return nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return fmt.Errorf("lease.endpoint must be an http(s) URL or %q, got %q", MemoryLeaseEndpoint, endpoint)
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.OuterSize < 1 {
		return errors.New("batch.outer_size must be at least 1")
	}
	if c.Batch.InnerSize < 1 {
		return errors.New("batch.inner_size must be at least 1")
	}
	if c.Batch.Workers < 0 {
		return errors.New("batch.workers must not be negative")
	}
	return nil
}

func (c *Config) validateRecognition() error {
	if len(c.Recognition.CategoryIDs) == 0 {
		return errors.New("recognition.category_ids must list at least one category")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// ValidateForRun checks the settings that only matter when a worker actually
// processes its partition (planning and status commands do not need them).
func (c *Config) ValidateForRun() error {
	if c.Job.Manifest == "" {
		return errors.New("job.manifest is required (set it in the config or pass --manifest)")
	}
	if c.Job.ResultRoot == "" {
		return errors.New("job.result_root is required")
	}
	if c.Lease.Endpoint == "" {
		return fmt.Errorf("lease.endpoint is required. Set %s or edit the config (use %q for a single host)", leaseEndpointEnv, MemoryLeaseEndpoint)
	}
	if c.Inference.Endpoint == "" {
		return fmt.Errorf("inference.endpoint is required. Set %s or edit the config", inferenceEndpointEnv)
	}
	return nil
}
