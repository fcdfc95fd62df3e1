package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docbatch/internal/config"
	"docbatch/internal/logging"
	"docbatch/internal/services"
)

func newFileLogger(t *testing.T) (string, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.log")
	return path, func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		return string(data)
	}
}

func TestConsoleLoggerRendersSubjectAndFields(t *testing.T) {
	path, read := newFileLogger(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithPartition(context.Background(), "1/3")
	ctx = services.WithItemID(ctx, "shard-07.jsonl")
	ctx = services.WithStage(ctx, "inference")
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "workflow"))
	logger.Info("batch flushed", logging.Int("units", 12))
	logger.Debug("hidden at info")

	content := read()
	for _, want := range []string{"INFO [workflow]", "Part 1/3 · Item shard-07.jsonl (inference)", "batch flushed", "units=12"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in output, got %q", want, content)
		}
	}
	if strings.Contains(content, "hidden at info") {
		t.Fatalf("debug line leaked at info level: %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	path, read := newFileLogger(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("with caller")
	if content := read(); !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller in debug output, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	path, read := newFileLogger(t)
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("lease held", logging.String(logging.FieldItemID, "a.jsonl"))

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "warn" || record["msg"] != "lease held" || record["item_id"] != "a.jsonl" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key: %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigTeesIntoPartitionLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Job.NumParts = 3
	cfg.Job.PartIndex = 2

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("partition started")

	data, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read partition log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"partition started"`) {
		t.Fatalf("expected JSON copy in partition log, got %q", data)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	path, read := newFileLogger(t)
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "item failed", "item_failed", logging.String(logging.FieldErrorHint, "check the inference endpoint"))

	content := read()
	for _, want := range []string{`"event_type":"item_failed"`, `"error_hint":"check the inference endpoint"`, `"impact":`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in %s", want, content)
		}
	}
}

func TestFormatSubject(t *testing.T) {
	tests := []struct {
		partition, item, stage, want string
	}{
		{"", "", "", ""},
		{"0/1", "", "", "Part 0/1"},
		{"", "a.jsonl", "", "Item a.jsonl"},
		{"", "", "plan", "plan"},
		{"2/4", "a.jsonl", "write", "Part 2/4 · Item a.jsonl (write)"},
	}
	for _, tc := range tests {
		if got := logging.FormatSubject(tc.partition, tc.item, tc.stage); got != tc.want {
			t.Errorf("FormatSubject(%q,%q,%q) = %q, want %q", tc.partition, tc.item, tc.stage, got, tc.want)
		}
	}
}
