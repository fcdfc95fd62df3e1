package workflow

import (
	"fmt"

	"docbatch/internal/ledger"
	"docbatch/internal/manifest"
	"docbatch/internal/partition"
)

// Summary counts item outcomes for one Run.
type Summary struct {
	RunID        string
	Total        int
	Skipped      int
	LockRejected int
	Written      int
	Failed       int
	// Stopped reports that the loop ended early on the stop sentinel or
	// cancellation.
	Stopped bool
}

// Processed returns the number of items that reached a terminal state.
func (s Summary) Processed() int {
	return s.Skipped + s.LockRejected + s.Written + s.Failed
}

func (s Summary) String() string {
	return fmt.Sprintf("total=%d written=%d skipped=%d lock_rejected=%d failed=%d stopped=%t",
		s.Total, s.Written, s.Skipped, s.LockRejected, s.Failed, s.Stopped)
}

func (s *Summary) count(status ledger.Status) {
	switch status {
	case ledger.StatusSkipped:
		s.Skipped++
	case ledger.StatusLockRejected:
		s.LockRejected++
	case ledger.StatusWritten:
		s.Written++
	case ledger.StatusFailed:
		s.Failed++
	}
}

// Assignment is the slice of the manifest owned by one partition.
type Assignment struct {
	// Total is the number of work items in the whole manifest.
	Total     int
	NumParts  int
	PartIndex int
	Range     partition.Range
	Items     []manifest.WorkItem
	Shuffled  bool
}
