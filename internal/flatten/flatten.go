// Package flatten turns nested documents into a flat stream of recognition
// units and maps per-unit results back onto the original document shape.
package flatten

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"docbatch/internal/layout"
	"docbatch/internal/logging"
)

// Location identifies one region within a run.
type Location struct {
	DocID    string
	PageID   int
	RegionID string
}

func (l Location) String() string {
	return fmt.Sprintf("%s#p%d/%s", l.DocID, l.PageID, l.RegionID)
}

// Unit is one region queued for recognition.
type Unit struct {
	Location   Location
	Index      int
	CategoryID int
	// Payload is the inference input. It starts as the region's raw JSON and
	// may be replaced by the loader.
	Payload    []byte
	PayloadRef string
	// Prepared reports that Payload already holds the inference wire form.
	Prepared bool
}

// Group holds the units of one document, in page and region order.
type Group struct {
	DocID string
	Units []Unit
}

// Set is the flattened form of a work item.
type Set struct {
	Groups []Group
	// Empty lists documents without any recognizable region.
	Empty []string
	// Duplicates counts regions whose location was already emitted.
	Duplicates int
}

// Len returns the number of units across all groups.
func (s Set) Len() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Units)
	}
	return n
}

// Units returns all units in stream order.
func (s Set) Units() []Unit {
	out := make([]Unit, 0, s.Len())
	for _, g := range s.Groups {
		out = append(out, g.Units...)
	}
	return out
}

// Categories is the set of layout categories sent to recognition.
type Categories map[int]struct{}

// DefaultCategoryIDs are the inline and displayed formula categories.
var DefaultCategoryIDs = []int{13, 14}

// NewCategories builds a category set; with no ids the defaults are used.
func NewCategories(ids ...int) Categories {
	if len(ids) == 0 {
		ids = DefaultCategoryIDs
	}
	c := make(Categories, len(ids))
	for _, id := range ids {
		c[id] = struct{}{}
	}
	return c
}

// Has reports whether id is recognizable.
func (c Categories) Has(id int) bool {
	_, ok := c[id]
	return ok
}

// IDs returns the sorted category ids.
func (c Categories) IDs() []int {
	ids := make([]int, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Flatten walks every document, page, and region and emits one unit per
// recognizable region. Unit indices are assigned in stream order starting at
// zero. Documents repeated within one item share locations, so only their
// first occurrence produces units.
func Flatten(docs []layout.Document, cats Categories) Set {
	var set Set
	next := 0
	seen := make(map[Location]struct{})
	for _, doc := range docs {
		docID := doc.ID()
		group := Group{DocID: docID}
		recognizable := false
		for _, page := range doc.Pages {
			ids := page.RegionIDs()
			for i, region := range page.Regions {
				if !cats.Has(region.CategoryID) {
					continue
				}
				recognizable = true
				loc := Location{DocID: docID, PageID: page.PageID, RegionID: ids[i]}
				if _, dup := seen[loc]; dup {
					set.Duplicates++
					continue
				}
				seen[loc] = struct{}{}
				group.Units = append(group.Units, Unit{
					Location:   loc,
					Index:      next,
					CategoryID: region.CategoryID,
					Payload:    region.Raw,
					PayloadRef: region.PayloadRef,
				})
				next++
			}
		}
		if !recognizable {
			set.Empty = append(set.Empty, docID)
		}
		if len(group.Units) > 0 {
			set.Groups = append(set.Groups, group)
		}
	}
	return set
}

// Report summarizes a reassembly.
type Report struct {
	Regions int
	Missing int
}

// Reassemble rebuilds one result per document, keeping page and region order.
// Recognizable regions without a result are logged and omitted; documents and
// pages without recognizable regions are still present with empty lists.
func Reassemble(ctx context.Context, docs []layout.Document, results map[Location]string, cats Categories, logger *slog.Logger) ([]layout.Result, Report) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "flatten"))
	var report Report
	out := make([]layout.Result, 0, len(docs))
	for _, doc := range docs {
		docID := doc.ID()
		result := layout.Result{Path: docID, Extra: doc.Extra, Pages: make([]layout.ResultPage, 0, len(doc.Pages))}
		for _, page := range doc.Pages {
			resultPage := layout.ResultPage{PageID: page.PageID, Extra: page.Extra}
			ids := page.RegionIDs()
			for i, region := range page.Regions {
				if !cats.Has(region.CategoryID) {
					continue
				}
				loc := Location{DocID: docID, PageID: page.PageID, RegionID: ids[i]}
				value, ok := results[loc]
				if !ok {
					report.Missing++
					logging.WarnWithContext(logger, "region has no recognition result", "missing_location",
						logging.String("location", loc.String()),
						logging.String(logging.FieldErrorHint, "usually the document payload failed to load"),
						logging.String(logging.FieldImpact, "region omitted from the result"),
					)
					continue
				}
				resultPage.Regions = append(resultPage.Regions, layout.ResultRegion{
					RegionID:   loc.RegionID,
					CategoryID: region.CategoryID,
					Value:      value,
				})
				report.Regions++
			}
			result.Pages = append(result.Pages, resultPage)
		}
		out = append(out, result)
	}
	return out, report
}
