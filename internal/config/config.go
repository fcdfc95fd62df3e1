package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains local directories used by a worker process.
type Paths struct {
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
	StopSentinel string `toml:"stop_sentinel"`
}

// Job describes which slice of the corpus this process owns and where its
// results go.
type Job struct {
	Manifest       string   `toml:"manifest"`
	NumParts       int      `toml:"num_parts"`
	PartIndex      int      `toml:"part_index"`
	Force          bool     `toml:"force"`
	Shuffle        bool     `toml:"shuffle"`
	ShuffleSeed    *int64   `toml:"shuffle_seed"`
	ResultRoot     string   `toml:"result_root"`
	TaskName       string   `toml:"task_name"`
	CandidateRoots []string `toml:"candidate_roots"`
	// Manifest entries containing InPlaceMarker name an earlier result file.
	// The item is re-read from InPlaceSourceRoot under the same name and its
	// result replaces the listed file. Disabled while InPlaceSourceRoot is empty.
	InPlaceMarker     string `toml:"in_place_marker"`
	InPlaceSourceRoot string `toml:"in_place_source_root"`
}

// Lease contains the remote lease service settings.
// Zero timeouts select the defaults.
type Lease struct {
	Endpoint              string `toml:"endpoint"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Batch contains the two batch levels and the loader pool size.
type Batch struct {
	OuterSize int `toml:"outer_size"`
	InnerSize int `toml:"inner_size"`
	Workers   int `toml:"workers"`
}

// Inference contains settings for the recognition endpoint.
type Inference struct {
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	NormalizeLatex bool   `toml:"normalize_latex"`
}

// Recognition selects which layout regions are sent to inference.
type Recognition struct {
	CategoryIDs []int `toml:"category_ids"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for docbatch.
//
// Configuration sections by subsystem:
//   - Paths: local state, logs, and the stop sentinel
//   - Job: manifest, partition, force/shuffle, output roots
//   - Lease: remote lease service endpoint and staleness timeout
//   - Batch: outer/inner batch sizes and worker pool size
//   - Inference: recognition endpoint and value post-processing
//   - Recognition: layout categories that are recognized
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Job         Job         `toml:"job"`
	Lease       Lease       `toml:"lease"`
	Batch       Batch       `toml:"batch"`
	Inference   Inference   `toml:"inference"`
	Recognition Recognition `toml:"recognition"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/docbatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("docbatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories a worker writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// OutputRoot returns the directory this run writes results into.
func (c *Config) OutputRoot() string {
	return joinRoot(c.Job.ResultRoot, c.Job.TaskName, "result")
}

// SkipRoots returns the candidate output roots probed before processing an
// item, newest first. The current output root always leads the list.
func (c *Config) SkipRoots() []string {
	primary := c.OutputRoot()
	roots := []string{primary}
	seen := map[string]struct{}{primary: {}}
	for _, root := range c.Job.CandidateRoots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	return roots
}

// LeaseTimeout returns the lease staleness timeout.
func (c *Config) LeaseTimeout() time.Duration {
	return time.Duration(c.Lease.TimeoutSeconds) * time.Second
}

// LeaseRequestTimeout returns the per-request timeout for the lease service.
func (c *Config) LeaseRequestTimeout() time.Duration {
	return time.Duration(c.Lease.RequestTimeoutSeconds) * time.Second
}

// InferenceTimeout returns the per-request timeout for the inference endpoint.
// Zero means no client-side timeout.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutSeconds) * time.Second
}

// LedgerPath returns the SQLite ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// PartitionLockPath returns the host-local lock file for this partition.
func (c *Config) PartitionLockPath() string {
	name := fmt.Sprintf("partition-%d-of-%d.lock", c.Job.PartIndex, c.Job.NumParts)
	return filepath.Join(c.Paths.StateDir, name)
}

// LogPath returns the per-partition log file.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, fmt.Sprintf("docbatch-part%d.log", c.Job.PartIndex))
}

// joinRoot joins path segments without cleaning away URL schemes.
func joinRoot(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, part := range parts {
		part = strings.Trim(part, "/")
		if part == "" {
			continue
		}
		if out == "" {
			out = part
			continue
		}
		out += "/" + part
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// isRemote reports whether a location uses a URL scheme rather than a local path.
func isRemote(location string) bool {
	return strings.Contains(location, "://")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
