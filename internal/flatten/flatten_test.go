package flatten_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"docbatch/internal/flatten"
	"docbatch/internal/layout"
)

func buildDocs(t *testing.T) []layout.Document {
	t.Helper()
	src := strings.Join([]string{
		`{"path":"opendata:s3://b/a.pdf","doc_layout_result":[{"page_id":0,"layout_dets":[{"category_id":13,"poly":[1,1]},{"category_id":2,"poly":[9,9]},{"category_id":14,"poly":[2,2]}]},{"page_id":1,"layout_dets":[{"category_id":13,"poly":[3,3]}]}]}`,
		`{"path":"s3://b/text-only.pdf","doc_layout_result":[{"page_id":0,"layout_dets":[{"category_id":1,"poly":[0,0]}]}]}`,
		`{"path":"s3://b/c.pdf","doc_layout_result":[{"page_id":5,"layout_dets":[{"category_id":14,"poly":[4,4]},{"category_id":14,"poly":[4,4]}]}]}`,
	}, "\n")
	docs, bad, err := layout.DecodeDocuments([]byte(src))
	if err != nil || len(bad) != 0 {
		t.Fatalf("decode fixture: %v", err)
	}
	return docs
}

func TestFlattenAssignsStreamIndices(t *testing.T) {
	set := flatten.Flatten(buildDocs(t), flatten.NewCategories())
	if set.Len() != 5 {
		t.Fatalf("expected 5 units, got %d", set.Len())
	}
	units := set.Units()
	for i, u := range units {
		if u.Index != i {
			t.Fatalf("unit %d has index %d", i, u.Index)
		}
	}
	if len(set.Groups) != 2 || set.Groups[0].DocID != "s3://b/a.pdf" || len(set.Groups[0].Units) != 3 {
		t.Fatalf("unexpected groups: %+v", set.Groups)
	}
	if len(set.Empty) != 1 || set.Empty[0] != "s3://b/text-only.pdf" {
		t.Fatalf("unexpected empty docs: %v", set.Empty)
	}
	last := units[4].Location
	if last.RegionID != "4,4#1" || last.PageID != 5 {
		t.Fatalf("expected ordinal suffix on duplicate poly, got %+v", last)
	}
	if !strings.Contains(string(units[0].Payload), `"poly":[1,1]`) {
		t.Fatalf("expected raw region payload, got %s", units[0].Payload)
	}
}

func TestFlattenCustomCategories(t *testing.T) {
	set := flatten.Flatten(buildDocs(t), flatten.NewCategories(2))
	if set.Len() != 1 || len(set.Empty) != 2 {
		t.Fatalf("unexpected set for category 2: len=%d empty=%v", set.Len(), set.Empty)
	}
}

func TestFlattenRepeatedDocumentSharesLocations(t *testing.T) {
	docs := buildDocs(t)
	docs = append(docs, docs[0])
	set := flatten.Flatten(docs, flatten.NewCategories())
	if set.Len() != 5 || set.Duplicates != 3 {
		t.Fatalf("expected repeated document to add no units, got len=%d dup=%d", set.Len(), set.Duplicates)
	}
	results := map[flatten.Location]string{}
	for _, u := range set.Units() {
		results[u.Location] = "v"
	}
	out, report := flatten.Reassemble(context.Background(), docs, results, flatten.NewCategories(), nil)
	if report.Missing != 0 || report.Regions != 8 || len(out) != 4 {
		t.Fatalf("unexpected reassembly: %+v (%d results)", report, len(out))
	}
}

func TestReassembleRoundTripPreservesOrder(t *testing.T) {
	docs := buildDocs(t)
	cats := flatten.NewCategories()
	set := flatten.Flatten(docs, cats)
	results := make(map[flatten.Location]string, set.Len())
	for _, u := range set.Units() {
		results[u.Location] = fmt.Sprintf("v%d", u.Index)
	}

	out, report := flatten.Reassemble(context.Background(), docs, results, cats, nil)
	if report.Regions != set.Len() || report.Missing != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(out) != 3 {
		t.Fatalf("expected one result per document, got %d", len(out))
	}
	var values []string
	for _, r := range out {
		for _, p := range r.Pages {
			for _, region := range p.Regions {
				values = append(values, region.Value)
			}
		}
	}
	if strings.Join(values, ",") != "v0,v1,v2,v3,v4" {
		t.Fatalf("values out of order: %v", values)
	}
	if out[0].Path != "s3://b/a.pdf" {
		t.Fatalf("expected cleaned path, got %q", out[0].Path)
	}
	empty := out[1]
	if len(empty.Pages) != 1 || empty.Pages[0].Regions != nil {
		t.Fatalf("expected present-but-empty page for text-only document, got %+v", empty.Pages)
	}
	if out[0].Pages[0].Regions[1].CategoryID != 14 {
		t.Fatalf("category not carried into result: %+v", out[0].Pages[0].Regions)
	}
}

func TestReassembleMissingLocationIsLoggedAndOmitted(t *testing.T) {
	docs := buildDocs(t)
	cats := flatten.NewCategories()
	set := flatten.Flatten(docs, cats)
	results := make(map[flatten.Location]string, set.Len())
	for _, u := range set.Units() {
		results[u.Location] = "x"
	}
	dropped := set.Units()[2].Location
	delete(results, dropped)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	_, report := flatten.Reassemble(context.Background(), docs, results, cats, logger)
	if report.Regions != set.Len()-1 || report.Missing != 1 {
		t.Fatalf("expected exactly one region dropped, got %+v", report)
	}
	logs := buf.String()
	if strings.Count(logs, `"event_type":"missing_location"`) != 1 {
		t.Fatalf("expected one missing_location warning, got %s", logs)
	}
	if !strings.Contains(logs, dropped.String()) {
		t.Fatalf("warning does not name %s: %s", dropped, logs)
	}
}

func TestCategoriesIDs(t *testing.T) {
	ids := flatten.NewCategories(14, 13, 14).IDs()
	if len(ids) != 2 || ids[0] != 13 || ids[1] != 14 {
		t.Fatalf("IDs = %v", ids)
	}
}
