package layout

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SchemaVersion identifies the source schema understood by this package.
const SchemaVersion = 1

const (
	keyPath     = "path"
	keyPages    = "doc_layout_result"
	keyPageID   = "page_id"
	keyRegions  = "layout_dets"
	keyCategory = "category_id"

	keyDecodeError = "decode_error"
	keySourceLine  = "source_line"
)

// Document is one line of a work item source.
type Document struct {
	Path  string
	Pages []Page
	// Extra holds unknown top-level fields, re-emitted in the result.
	Extra map[string]json.RawMessage
}

// Page is one page of a document.
type Page struct {
	PageID  int
	Regions []Region
	Extra   map[string]json.RawMessage
}

// Region is one detected layout region.
type Region struct {
	CategoryID int
	Poly       []float64
	// RegionID is the explicit region_id field, empty when absent.
	RegionID string
	// PayloadRef optionally names a blob holding the region's inference input.
	PayloadRef string
	// Raw is the complete JSON object of the region.
	Raw json.RawMessage
}

// ID returns the document identity: the path with any "<profile>:" client
// prefix removed, e.g. "opendata:s3://bucket/a.pdf" becomes "s3://bucket/a.pdf".
func (d Document) ID() string {
	return CleanPath(d.Path)
}

// CleanPath strips a leading "<profile>:" in front of a URL scheme.
func CleanPath(path string) string {
	path = strings.TrimSpace(path)
	schemeIdx := strings.Index(path, "://")
	colonIdx := strings.Index(path, ":")
	if schemeIdx < 0 || colonIdx < 0 || colonIdx >= schemeIdx {
		return path
	}
	if strings.Contains(path[:colonIdx], "/") {
		return path
	}
	return path[colonIdx+1:]
}

// Key returns the region identity before de-duplication: the explicit region
// id when present, otherwise the polygon coordinates joined with commas.
func (r Region) Key() string {
	if r.RegionID != "" {
		return r.RegionID
	}
	parts := make([]string, len(r.Poly))
	for i, v := range r.Poly {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

// RegionIDs returns one identity per region of p. Regions sharing a key get
// an ordinal suffix ("#1", "#2", ...) after the first occurrence so every
// identity is unique within the page.
func (p Page) RegionIDs() []string {
	ids := make([]string, len(p.Regions))
	seen := make(map[string]int, len(p.Regions))
	for i, region := range p.Regions {
		key := region.Key()
		n := seen[key]
		seen[key] = n + 1
		if n > 0 {
			key = key + "#" + strconv.Itoa(n)
		}
		ids[i] = key
	}
	return ids
}

func (d *Document) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields[keyPath]; ok {
		if err := json.Unmarshal(raw, &d.Path); err != nil {
			return fmt.Errorf("%s: %w", keyPath, err)
		}
		delete(fields, keyPath)
	}
	if raw, ok := fields[keyPages]; ok {
		if err := json.Unmarshal(raw, &d.Pages); err != nil {
			return fmt.Errorf("%s: %w", keyPages, err)
		}
		delete(fields, keyPages)
	}
	d.Extra = nilIfEmpty(fields)
	return nil
}

func (p *Page) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields[keyPageID]; ok {
		if err := json.Unmarshal(raw, &p.PageID); err != nil {
			return fmt.Errorf("%s: %w", keyPageID, err)
		}
		delete(fields, keyPageID)
	}
	if raw, ok := fields[keyRegions]; ok {
		if err := json.Unmarshal(raw, &p.Regions); err != nil {
			return fmt.Errorf("page %d: %s: %w", p.PageID, keyRegions, err)
		}
		delete(fields, keyRegions)
	}
	p.Extra = nilIfEmpty(fields)
	return nil
}

func (r *Region) UnmarshalJSON(data []byte) error {
	var typed struct {
		CategoryID *int            `json:"category_id"`
		Poly       []float64       `json:"poly"`
		RegionID   json.RawMessage `json:"region_id"`
		PayloadRef string          `json:"payload_ref"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	if typed.CategoryID == nil {
		return fmt.Errorf("region missing %s", keyCategory)
	}
	r.CategoryID = *typed.CategoryID
	r.Poly = typed.Poly
	r.PayloadRef = typed.PayloadRef
	r.RegionID = rawScalar(typed.RegionID)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// rawScalar renders a JSON string or number as plain text.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func nilIfEmpty(m map[string]json.RawMessage) map[string]json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	return m
}

func (d Document) MarshalJSON() ([]byte, error) {
	pages := d.Pages
	if pages == nil {
		pages = []Page{}
	}
	return marshalWithExtra(d.Extra, map[string]any{keyPath: d.Path, keyPages: pages})
}

func (p Page) MarshalJSON() ([]byte, error) {
	regions := p.Regions
	if regions == nil {
		regions = []Region{}
	}
	return marshalWithExtra(p.Extra, map[string]any{keyPageID: p.PageID, keyRegions: regions})
}

// MarshalJSON re-emits Raw when present so unknown region fields survive.
func (r Region) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	out := map[string]any{keyCategory: r.CategoryID, "poly": r.Poly}
	if r.RegionID != "" {
		out["region_id"] = r.RegionID
	}
	if r.PayloadRef != "" {
		out["payload_ref"] = r.PayloadRef
	}
	return json.Marshal(out)
}
