package runway

import "github.com/timmy/vidbatch/internal/domain"

// MapStatus translates the vendor's status vocabulary onto the
// orchestrator's closed status model. This is the only place vendor
// strings are interpreted; vocabulary drift stays contained here.
//
// THROTTLED means the task is queued behind the account's concurrency
// limit. It has not started, so it maps to PENDING.
func MapStatus(vendor string) domain.TaskStatus {
	switch vendor {
	case "PENDING", "THROTTLED":
		return domain.StatusPending
	case "RUNNING":
		return domain.StatusRunning
	case "SUCCEEDED":
		return domain.StatusSucceeded
	case "FAILED":
		return domain.StatusFailed
	case "CANCELLED":
		return domain.StatusCancelled
	default:
		// Unknown vendor statuses are treated as still in flight so the
		// poller keeps watching the task instead of inventing an outcome.
		return domain.StatusRunning
	}
}
