// Package manifest enumerates the work items of a job.
//
// A manifest location ending in ".jsonl" is itself the single work item. Any
// other location is a text file listing one source location per line; blank
// lines and lines starting with "#" are ignored.
package manifest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"docbatch/internal/blobstore"
	"docbatch/internal/services"
)

// WorkItem is one unit of partitioning, leasing, and output.
type WorkItem struct {
	// ID is the base name of SourcePath. It names the output blob and the
	// lease key.
	ID         string
	SourcePath string
}

// NewWorkItem derives a work item from its source location.
func NewWorkItem(source string) WorkItem {
	source = strings.TrimSpace(source)
	return WorkItem{ID: blobstore.Base(source), SourcePath: source}
}

// Reader is the read side of blobstore.Store.
type Reader interface {
	Read(ctx context.Context, location string) ([]byte, error)
}

// Load enumerates the work items named by location, preserving order.
// Repeated sources are listed once; two different sources with the same base
// name are rejected because they would share an output file.
func Load(ctx context.Context, reader Reader, location string) ([]WorkItem, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, services.Wrap(services.ErrConfiguration, "manifest", "load", "no manifest location", nil)
	}
	if !strings.Contains(location, "://") {
		if info, err := os.Stat(location); err == nil && info.IsDir() {
			return nil, services.Wrap(services.ErrConfiguration, "manifest", "load", fmt.Sprintf("%s is a directory; pass a list file or a .jsonl source", location), nil)
		}
	}
	if strings.HasSuffix(strings.ToLower(location), ".jsonl") {
		return []WorkItem{NewWorkItem(location)}, nil
	}

	data, err := reader.Read(ctx, location)
	if err != nil {
		return nil, services.Wrap(services.ErrTransientIO, "manifest", "read", location, err)
	}
	return Parse(data)
}

// Parse reads a newline separated list of sources.
func Parse(data []byte) ([]WorkItem, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var items []WorkItem
	sources := make(map[string]struct{})
	owners := make(map[string]string)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if _, ok := sources[text]; ok {
			continue
		}
		sources[text] = struct{}{}
		item := NewWorkItem(text)
		if prev, ok := owners[item.ID]; ok {
			return nil, services.Wrap(services.ErrConfiguration, "manifest", "parse",
				fmt.Sprintf("line %d: %s and %s share output name %s", line, prev, text, item.ID), nil)
		}
		owners[item.ID] = text
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransientIO, "manifest", "parse", fmt.Sprintf("line %d", line+1), err)
	}
	return items, nil
}
