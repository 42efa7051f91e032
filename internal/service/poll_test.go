package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timmy/vidbatch/internal/domain"
	"github.com/timmy/vidbatch/internal/runway"
)

// fakeStatusClient replays a scripted sequence of states per task ID,
// holding the last state once the script runs out.
type fakeStatusClient struct {
	script map[string][]*runway.TaskState
	errs   map[string]error
	calls  map[string]int
}

func (f *fakeStatusClient) RetrieveTask(_ context.Context, taskID string) (*runway.TaskState, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	n := f.calls[taskID]
	f.calls[taskID] = n + 1

	if err, ok := f.errs[taskID]; ok {
		return nil, err
	}
	states := f.script[taskID]
	if n >= len(states) {
		n = len(states) - 1
	}
	return states[n], nil
}

func pollBatch(entries ...domain.QueueEntry) *domain.Batch {
	return &domain.Batch{
		ID:      "20260830_120000",
		Entries: entries,
	}
}

func pendingEntry(taskID, stub string) domain.QueueEntry {
	return domain.QueueEntry{TaskID: taskID, Stub: stub, Status: domain.StatusPending}
}

func TestPollerDrivesBatchToCompletion(t *testing.T) {
	client := &fakeStatusClient{script: map[string][]*runway.TaskState{
		"t1": {
			{TaskID: "t1", Status: "RUNNING"},
			{TaskID: "t1", Status: "SUCCEEDED", ArtifactURL: "https://cdn.example/t1.mp4"},
		},
		"t2": {
			{TaskID: "t2", Status: "THROTTLED"},
			{TaskID: "t2", Status: "RUNNING"},
			{TaskID: "t2", Status: "FAILED", FailureReason: "content policy"},
		},
	}}
	store := newTestStore(t)
	batch := pollBatch(pendingEntry("t1", "alpha_video"), pendingEntry("t2", "beta_video"))
	batch.TimeoutSeconds = 600

	poller := NewPoller(client, store, testLogger(), PollerConfig{})
	done, err := poller.Poll(context.Background(), batch)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !done {
		t.Fatal("Poll reported incomplete batch")
	}

	if batch.Entries[0].Status != domain.StatusSucceeded {
		t.Errorf("t1 status = %s, want SUCCEEDED", batch.Entries[0].Status)
	}
	if batch.Entries[0].ArtifactURL != "https://cdn.example/t1.mp4" {
		t.Errorf("t1 artifact URL = %q", batch.Entries[0].ArtifactURL)
	}
	if batch.Entries[0].CompletedAt == nil {
		t.Error("t1 missing completion timestamp")
	}

	if batch.Entries[1].Status != domain.StatusFailed {
		t.Errorf("t2 status = %s, want FAILED", batch.Entries[1].Status)
	}
	if batch.Entries[1].Error != "content policy" {
		t.Errorf("t2 error = %q, want content policy", batch.Entries[1].Error)
	}

	if batch.PollCount < 3 {
		t.Errorf("PollCount = %d, want at least 3 sweeps", batch.PollCount)
	}

	// Every sweep checkpoints the queue file.
	loaded, err := store.Load(batch.ID)
	if err != nil {
		t.Fatalf("Load checkpoint: %v", err)
	}
	if loaded.PollCount != batch.PollCount {
		t.Errorf("checkpoint PollCount = %d, want %d", loaded.PollCount, batch.PollCount)
	}
}

func TestPollerTimeoutLeavesEntriesInFlight(t *testing.T) {
	client := &fakeStatusClient{script: map[string][]*runway.TaskState{
		"t1": {{TaskID: "t1", Status: "RUNNING"}},
	}}
	batch := pollBatch(pendingEntry("t1", "alpha_video"))

	// A timeout this short expires after the first sweep.
	poller := NewPoller(client, newTestStore(t), testLogger(), PollerConfig{Timeout: time.Nanosecond})
	done, err := poller.Poll(context.Background(), batch)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if done {
		t.Error("Poll reported completion despite in-flight task")
	}
	if batch.Entries[0].Status != domain.StatusRunning {
		t.Errorf("status = %s, want RUNNING preserved for resume", batch.Entries[0].Status)
	}
	if batch.Entries[0].CompletedAt != nil {
		t.Error("in-flight entry must not carry a completion timestamp")
	}
}

func TestPollerMutesEntryAfterRepeatedErrors(t *testing.T) {
	client := &fakeStatusClient{
		script: map[string][]*runway.TaskState{
			"ok": {{TaskID: "ok", Status: "SUCCEEDED", ArtifactURL: "https://cdn.example/ok.mp4"}},
		},
		errs: map[string]error{"bad": errors.New("HTTP 500")},
	}
	batch := pollBatch(pendingEntry("ok", "ok_video"), pendingEntry("bad", "bad_video"))
	batch.TimeoutSeconds = 600

	poller := NewPoller(client, newTestStore(t), testLogger(), PollerConfig{MaxEntryErrors: 3})
	done, err := poller.Poll(context.Background(), batch)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if done {
		t.Error("batch with a muted entry is not complete")
	}
	if got := client.calls["bad"]; got != 3 {
		t.Errorf("failing entry queried %d times, want 3", got)
	}
	if batch.Entries[1].Status != domain.StatusPending {
		t.Errorf("muted entry status = %s, want PENDING preserved", batch.Entries[1].Status)
	}
	if batch.Entries[0].Status != domain.StatusSucceeded {
		t.Errorf("healthy entry status = %s, want SUCCEEDED", batch.Entries[0].Status)
	}
}

func TestPollerSuccessWithoutArtifactIsFailure(t *testing.T) {
	client := &fakeStatusClient{script: map[string][]*runway.TaskState{
		"t1": {{TaskID: "t1", Status: "SUCCEEDED"}},
	}}
	batch := pollBatch(pendingEntry("t1", "alpha_video"))
	batch.TimeoutSeconds = 600

	poller := NewPoller(client, newTestStore(t), testLogger(), PollerConfig{})
	done, err := poller.Poll(context.Background(), batch)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !done {
		t.Error("batch should be terminal")
	}
	if batch.Entries[0].Status != domain.StatusFailed {
		t.Errorf("status = %s, want FAILED", batch.Entries[0].Status)
	}
	if batch.Entries[0].ArtifactURL != "" {
		t.Error("failed entry must not carry an artifact URL")
	}
}

func TestPollerSkipsTerminalEntries(t *testing.T) {
	client := &fakeStatusClient{}
	completed := domain.QueueEntry{TaskID: "t1", Stub: "done_video", Status: domain.StatusSucceeded, ArtifactURL: "https://cdn.example/t1.mp4"}
	submitFailed := domain.QueueEntry{Stub: "never_video", Status: domain.StatusSubmitFailed, Error: "rejected"}
	batch := pollBatch(completed, submitFailed)
	batch.TimeoutSeconds = 600

	poller := NewPoller(client, newTestStore(t), testLogger(), PollerConfig{})
	done, err := poller.Poll(context.Background(), batch)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !done {
		t.Error("all-terminal batch should complete immediately")
	}
	if len(client.calls) != 0 {
		t.Errorf("status endpoint queried %d times for terminal entries, want 0", len(client.calls))
	}
}
