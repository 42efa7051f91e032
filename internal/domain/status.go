package domain

// TaskStatus is the orchestrator's closed status model for a submitted
// generation task. The vendor's status vocabulary is mapped onto these
// values in exactly one place (runway.MapStatus); nothing else in the
// codebase interprets vendor strings.
type TaskStatus string

const (
	StatusPending      TaskStatus = "PENDING"
	StatusRunning      TaskStatus = "RUNNING"
	StatusSucceeded    TaskStatus = "SUCCEEDED"
	StatusFailed       TaskStatus = "FAILED"
	StatusCancelled    TaskStatus = "CANCELLED"
	StatusSubmitFailed TaskStatus = "SUBMIT_FAILED"
)

// AllStatuses lists every status the report counts over, so absent
// statuses still show up as explicit zero counts.
var AllStatuses = []TaskStatus{
	StatusPending,
	StatusRunning,
	StatusSucceeded,
	StatusFailed,
	StatusCancelled,
	StatusSubmitFailed,
}

// IsTerminal reports whether no further transition can occur from s.
// Terminal entries are never re-polled.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled, StatusSubmitFailed:
		return true
	}
	return false
}
