package workflow

import (
	"context"
	"path"
	"strings"

	"docbatch/internal/blobstore"
	"docbatch/internal/flatten"
	"docbatch/internal/services"
)

// payloadLoader fetches region payloads stored outside the layout document.
// Units without a payload_ref keep their inline region JSON.
type payloadLoader struct {
	reader blobstore.Store
	// base is the directory of the item's source, used for relative refs.
	base string
}

func newPayloadLoader(reader blobstore.Store, source string) payloadLoader {
	base := ""
	if idx := strings.LastIndex(source, "/"); idx >= 0 {
		base = source[:idx]
	}
	return payloadLoader{reader: reader, base: base}
}

func (l payloadLoader) Load(ctx context.Context, group flatten.Group) ([]flatten.Unit, error) {
	units := make([]flatten.Unit, len(group.Units))
	copy(units, group.Units)
	for i := range units {
		ref := strings.TrimSpace(units[i].PayloadRef)
		if ref == "" {
			continue
		}
		data, err := l.reader.Read(ctx, l.resolve(ref))
		if err != nil {
			return nil, services.Wrap(services.ErrDecodeFailure, "workflow", "load payload", units[i].Location.String(), err)
		}
		units[i].Payload = data
		units[i].Prepared = false
	}
	return units, nil
}

func (l payloadLoader) resolve(ref string) string {
	if strings.Contains(ref, "://") || path.IsAbs(ref) || l.base == "" {
		return ref
	}
	return blobstore.Join(l.base, ref)
}
