package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"docbatch/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DOCBATCH_LEASE_ENDPOINT", "http://locks.internal:8000/")
	t.Setenv("DOCBATCH_INFERENCE_ENDPOINT", "http://gpu-01:9000")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "docbatch", "state")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Lease.Endpoint != "http://locks.internal:8000" {
		t.Fatalf("expected lease endpoint from env without trailing slash, got %q", cfg.Lease.Endpoint)
	}
	if cfg.Inference.Endpoint != "http://gpu-01:9000" {
		t.Fatalf("expected inference endpoint from env, got %q", cfg.Inference.Endpoint)
	}
	if cfg.LeaseTimeout() != time.Hour {
		t.Fatalf("expected one hour lease timeout, got %s", cfg.LeaseTimeout())
	}
	if cfg.Job.NumParts != 1 || cfg.Job.PartIndex != 0 {
		t.Fatalf("unexpected partition defaults: %d/%d", cfg.Job.PartIndex, cfg.Job.NumParts)
	}
	if got := cfg.Recognition.CategoryIDs; len(got) != 2 || got[0] != 13 || got[1] != 14 {
		t.Fatalf("unexpected default categories: %v", got)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "docbatch.toml")

	type payload struct {
		Job struct {
			NumParts       int      `toml:"num_parts"`
			PartIndex      int      `toml:"part_index"`
			ResultRoot     string   `toml:"result_root"`
			TaskName       string   `toml:"task_name"`
			CandidateRoots []string `toml:"candidate_roots"`
			ShuffleSeed    int64    `toml:"shuffle_seed"`
		} `toml:"job"`
		Batch struct {
			InnerSize int `toml:"inner_size"`
		} `toml:"batch"`
	}
	custom := payload{}
	custom.Job.NumParts = 3
	custom.Job.PartIndex = 2
	custom.Job.ResultRoot = "http://store.internal/pdf_gpu_output/"
	custom.Job.TaskName = "layoutV9"
	custom.Job.CandidateRoots = []string{" http://store.internal/pdf_gpu_output/layoutV8/result/ ", ""}
	custom.Job.ShuffleSeed = 7
	custom.Batch.InnerSize = 128
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Job.PartIndex != 2 || cfg.Job.NumParts != 3 {
		t.Fatalf("unexpected partition: %d/%d", cfg.Job.PartIndex, cfg.Job.NumParts)
	}
	if cfg.Job.ShuffleSeed == nil || *cfg.Job.ShuffleSeed != 7 {
		t.Fatalf("expected shuffle seed 7, got %v", cfg.Job.ShuffleSeed)
	}
	if cfg.Batch.InnerSize != 128 {
		t.Fatalf("expected inner size 128, got %d", cfg.Batch.InnerSize)
	}
	if got := cfg.OutputRoot(); got != "http://store.internal/pdf_gpu_output/layoutV9/result" {
		t.Fatalf("unexpected output root: %q", got)
	}
	roots := cfg.SkipRoots()
	want := []string{
		"http://store.internal/pdf_gpu_output/layoutV9/result",
		"http://store.internal/pdf_gpu_output/layoutV8/result",
	}
	if len(roots) != len(want) {
		t.Fatalf("unexpected skip roots: %v", roots)
	}
	for i := range want {
		if roots[i] != want[i] {
			t.Fatalf("skip root %d = %q, want %q", i, roots[i], want[i])
		}
	}
}

func TestSkipRootsDeduplicatesPrimary(t *testing.T) {
	cfg := config.Default()
	cfg.Job.ResultRoot = "/data/out"
	cfg.Job.CandidateRoots = []string{"/data/out/layoutV6/result", "/data/out/layoutV5/result"}
	roots := cfg.SkipRoots()
	if len(roots) != 2 {
		t.Fatalf("expected primary root once plus one legacy root, got %v", roots)
	}
	if roots[0] != "/data/out/layoutV6/result" || roots[1] != "/data/out/layoutV5/result" {
		t.Fatalf("unexpected order: %v", roots)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "candidate_roots") {
		t.Fatalf("sample config missing candidate_roots: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.StateDir, "docbatch") {
		t.Fatalf("expected state dir to contain docbatch, got %q", cfg.Paths.StateDir)
	}
	if cfg.Lease.TimeoutSeconds != 3600 {
		t.Fatalf("expected sample lease timeout 3600, got %d", cfg.Lease.TimeoutSeconds)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero parts", func(c *config.Config) { c.Job.NumParts = 0 }},
		{"index too large", func(c *config.Config) { c.Job.NumParts = 2; c.Job.PartIndex = 2 }},
		{"negative index", func(c *config.Config) { c.Job.PartIndex = -1 }},
		{"task with slash", func(c *config.Config) { c.Job.TaskName = "a/b" }},
		{"bad lease scheme", func(c *config.Config) { c.Lease.Endpoint = "tcp://locks" }},
		{"negative lease timeout", func(c *config.Config) { c.Lease.TimeoutSeconds = -1 }},
		{"in-place root without marker", func(c *config.Config) { c.Job.InPlaceSourceRoot = "/data/in"; c.Job.InPlaceMarker = "" }},
		{"zero outer", func(c *config.Config) { c.Batch.OuterSize = 0 }},
		{"zero inner", func(c *config.Config) { c.Batch.InnerSize = 0 }},
		{"negative workers", func(c *config.Config) { c.Batch.Workers = -1 }},
		{"no categories", func(c *config.Config) { c.Recognition.CategoryIDs = nil }},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	cfg.Lease.Endpoint = config.MemoryLeaseEndpoint
	if err := cfg.Validate(); err != nil {
		t.Fatalf("memory endpoint should validate: %v", err)
	}
}

func TestLoadZeroLeaseTimeoutSelectsDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "docbatch.toml")
	data := "[lease]\nendpoint = \"memory://\"\ntimeout_seconds = 0\nrequest_timeout_seconds = 0\n"
	if err := os.WriteFile(configPath, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Lease.TimeoutSeconds != 3600 || cfg.LeaseTimeout() != time.Hour {
		t.Fatalf("expected default lease timeout, got %d (%s)", cfg.Lease.TimeoutSeconds, cfg.LeaseTimeout())
	}
	if cfg.LeaseRequestTimeout() <= 0 {
		t.Fatalf("expected default request timeout, got %s", cfg.LeaseRequestTimeout())
	}
}

func TestValidateForRunRequiresEndpoints(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateForRun(); err == nil || !strings.Contains(err.Error(), "job.manifest") {
		t.Fatalf("expected manifest error, got %v", err)
	}
	cfg.Job.Manifest = "/data/list.txt"
	cfg.Job.ResultRoot = "/data/out"
	if err := cfg.ValidateForRun(); err == nil || !strings.Contains(err.Error(), "lease.endpoint") {
		t.Fatalf("expected lease endpoint error, got %v", err)
	}
	cfg.Lease.Endpoint = config.MemoryLeaseEndpoint
	if err := cfg.ValidateForRun(); err == nil || !strings.Contains(err.Error(), "inference.endpoint") {
		t.Fatalf("expected inference endpoint error, got %v", err)
	}
	cfg.Inference.Endpoint = "http://gpu:9000"
	if err := cfg.ValidateForRun(); err != nil {
		t.Fatalf("expected valid run config, got %v", err)
	}
}

func TestOverridesApply(t *testing.T) {
	cfg := config.Default()
	parts, index, inner := 4, 3, 64
	seed := int64(11)
	force := true
	endpoint := "http://locks:8000/"
	overrides := config.Overrides{
		NumParts:       &parts,
		PartIndex:      &index,
		InnerSize:      &inner,
		ShuffleSeed:    &seed,
		Force:          &force,
		LeaseEndpoint:  &endpoint,
		CandidateRoots: []string{"http://store/layoutV5/result"},
	}
	if err := overrides.Apply(&cfg); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if cfg.Job.NumParts != 4 || cfg.Job.PartIndex != 3 || cfg.Batch.InnerSize != 64 || !cfg.Job.Force {
		t.Fatalf("overrides not applied: %+v", cfg.Job)
	}
	if cfg.Lease.Endpoint != "http://locks:8000" {
		t.Fatalf("expected normalized endpoint, got %q", cfg.Lease.Endpoint)
	}
	if cfg.Job.ShuffleSeed == nil || *cfg.Job.ShuffleSeed != 11 {
		t.Fatalf("expected seed override, got %v", cfg.Job.ShuffleSeed)
	}

	bad := 9
	if err := (config.Overrides{PartIndex: &bad}).Apply(&cfg); err == nil {
		t.Fatal("expected out-of-range part index to fail validation")
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	cfg := config.Default()
	cfg.Job.ResultRoot = "/data/out"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode encoded config: %v", err)
	}
	if decoded.Job.ResultRoot != "/data/out" || decoded.Batch.InnerSize != cfg.Batch.InnerSize {
		t.Fatalf("unexpected decoded config: %+v", decoded)
	}
}
