package layout

import "encoding/json"

// Result is the record written for one document.
type Result struct {
	Path  string
	Pages []ResultPage
	Extra map[string]json.RawMessage
}

// ResultPage lists the recognized regions of one page.
type ResultPage struct {
	PageID  int
	Regions []ResultRegion
	Extra   map[string]json.RawMessage
}

// ResultRegion is one recognized region.
type ResultRegion struct {
	RegionID   string `json:"region_id"`
	CategoryID int    `json:"category_id"`
	Value      string `json:"value"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	pages := r.Pages
	if pages == nil {
		pages = []ResultPage{}
	}
	return marshalWithExtra(r.Extra, map[string]any{
		keyPath:  r.Path,
		keyPages: pages,
	})
}

func (p ResultPage) MarshalJSON() ([]byte, error) {
	regions := p.Regions
	if regions == nil {
		regions = []ResultRegion{}
	}
	return marshalWithExtra(p.Extra, map[string]any{
		keyPageID:  p.PageID,
		keyRegions: regions,
	})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields[keyPath]; ok {
		if err := json.Unmarshal(raw, &r.Path); err != nil {
			return err
		}
		delete(fields, keyPath)
	}
	if raw, ok := fields[keyPages]; ok {
		if err := json.Unmarshal(raw, &r.Pages); err != nil {
			return err
		}
		delete(fields, keyPages)
	}
	r.Extra = nilIfEmpty(fields)
	return nil
}

func (p *ResultPage) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields[keyPageID]; ok {
		if err := json.Unmarshal(raw, &p.PageID); err != nil {
			return err
		}
		delete(fields, keyPageID)
	}
	if raw, ok := fields[keyRegions]; ok {
		if err := json.Unmarshal(raw, &p.Regions); err != nil {
			return err
		}
		delete(fields, keyRegions)
	}
	p.Extra = nilIfEmpty(fields)
	return nil
}

// marshalWithExtra merges known fields over pass-through fields.
func marshalWithExtra(extra map[string]json.RawMessage, known map[string]any) ([]byte, error) {
	merged := make(map[string]any, len(extra)+len(known))
	for key, value := range extra {
		merged[key] = value
	}
	for key, value := range known {
		merged[key] = value
	}
	return json.Marshal(merged)
}
