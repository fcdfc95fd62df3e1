package ledger

import "time"

// Status is the recorded state of a work item within one run.
type Status string

const (
	StatusEnumerated   Status = "enumerated"
	StatusSkipped      Status = "skipped"
	StatusLockRejected Status = "lock_rejected"
	StatusProcessing   Status = "processing"
	StatusWritten      Status = "written"
	StatusFailed       Status = "failed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusEnumerated,
	StatusSkipped,
	StatusLockRejected,
	StatusProcessing,
	StatusWritten,
	StatusFailed,
}

// Terminal reports whether no further transition is expected within a run.
func (s Status) Terminal() bool {
	switch s {
	case StatusSkipped, StatusLockRejected, StatusWritten, StatusFailed:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, candidate := range AllStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// RunSpec identifies the partition a new run processes.
type RunSpec struct {
	TaskName  string
	NumParts  int
	PartIndex int
	Total     int
}

// Run is one invocation of the driver for a partition.
type Run struct {
	ID         string
	TaskName   string
	NumParts   int
	PartIndex  int
	Total      int
	StartedAt  time.Time
	FinishedAt *time.Time
	Stopped    bool
}

// Finished reports whether the run recorded its end.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}

// Item is the latest recorded state of a work item within a run.
type Item struct {
	RunID      string
	ItemID     string
	SourcePath string
	Status     Status
	Reason     string
	UpdatedAt  time.Time
}

// RunReport pairs a run with its per-status item counts.
type RunReport struct {
	Run    Run
	Counts map[Status]int
}

// Done returns the number of items that reached a terminal state.
func (r RunReport) Done() int {
	done := 0
	for status, n := range r.Counts {
		if status.Terminal() {
			done += n
		}
	}
	return done
}
