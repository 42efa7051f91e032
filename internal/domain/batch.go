package domain

import "time"

// QueueEntry tracks one submitted generation task from submission to
// terminal state. InputPath, Directive, and Stub are set once at
// submission time and never change; Status moves only through the
// poller after that.
type QueueEntry struct {
	TaskID      string     `json:"task_id,omitempty"`
	InputPath   string     `json:"input_path"`
	Directive   string     `json:"directive"`
	Stub        string     `json:"stub"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ArtifactURL string     `json:"artifact_url,omitempty"`
	Error       string     `json:"error,omitempty"`

	// Input probe metadata captured at submission time.
	InputWidth  int    `json:"input_width,omitempty"`
	InputHeight int    `json:"input_height,omitempty"`
	InputFormat string `json:"input_format,omitempty"`
}

// Batch is one invocation's full set of submitted tasks and their
// tracked state. It is the unit of persistence between pipeline stages:
// serialized after submission and after every polling sweep, so a crash
// mid-batch resumes from the last sweep instead of resubmitting.
type Batch struct {
	ID             string       `json:"batch_id"`
	StartedAt      time.Time    `json:"started_at"`
	PollCount      int          `json:"poll_count"`
	TimeoutSeconds int          `json:"timeout_seconds"`
	Entries        []QueueEntry `json:"entries"`
}

// NonTerminal returns the indices of entries still eligible for polling,
// in batch order.
func (b *Batch) NonTerminal() []int {
	var idx []int
	for i := range b.Entries {
		if !b.Entries[i].Status.IsTerminal() {
			idx = append(idx, i)
		}
	}
	return idx
}

// CountByStatus tallies entries per status, including zero counts for
// statuses absent from the batch.
func (b *Batch) CountByStatus() map[TaskStatus]int {
	counts := make(map[TaskStatus]int, len(AllStatuses))
	for _, s := range AllStatuses {
		counts[s] = 0
	}
	for i := range b.Entries {
		counts[b.Entries[i].Status]++
	}
	return counts
}

// Succeeded returns the entries in the SUCCEEDED terminal state, in
// batch order.
func (b *Batch) Succeeded() []QueueEntry {
	var out []QueueEntry
	for i := range b.Entries {
		if b.Entries[i].Status == StatusSucceeded {
			out = append(out, b.Entries[i])
		}
	}
	return out
}

// LastCompletedAt returns the latest completion timestamp among entries,
// or the zero time if no entry has completed.
func (b *Batch) LastCompletedAt() time.Time {
	var last time.Time
	for i := range b.Entries {
		if c := b.Entries[i].CompletedAt; c != nil && c.After(last) {
			last = *c
		}
	}
	return last
}
