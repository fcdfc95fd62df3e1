package workflow

import (
	"strings"

	"docbatch/internal/blobstore"
	"docbatch/internal/manifest"
)

// itemTarget is where one item is read from and written to.
type itemTarget struct {
	item       manifest.WorkItem
	outputRoot string
	inPlace    bool
}

// target routes an item. Entries naming an earlier result are read from the
// in-place source root and rewritten next to the listed file; everything else
// reads the listed source and writes under the job's output root.
func (d *Driver) target(item manifest.WorkItem) itemTarget {
	job := d.cfg.Job
	if job.InPlaceSourceRoot == "" || job.InPlaceMarker == "" || !strings.Contains(item.SourcePath, job.InPlaceMarker) {
		return itemTarget{item: item, outputRoot: d.cfg.OutputRoot()}
	}
	rerouted := item
	rerouted.SourcePath = blobstore.Join(job.InPlaceSourceRoot, item.ID)
	return itemTarget{item: rerouted, outputRoot: blobstore.Dir(item.SourcePath), inPlace: true}
}
