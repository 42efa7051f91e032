package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/timmy/vidbatch/internal/batchstore"
	"github.com/timmy/vidbatch/internal/domain"
	"github.com/timmy/vidbatch/internal/logger"
	"github.com/timmy/vidbatch/internal/runway"
)

type fakeSubmitClient struct {
	requests []*runway.SubmitRequest
	failOn   map[int]error // request index -> error
	nextID   int
}

func (f *fakeSubmitClient) Submit(_ context.Context, req *runway.SubmitRequest) (string, error) {
	idx := len(f.requests)
	f.requests = append(f.requests, req)
	if err, ok := f.failOn[idx]; ok {
		return "", err
	}
	f.nextID++
	return "task-" + string(rune('a'+f.nextID-1)), nil
}

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "text", Output: os.Stderr})
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not a real image"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func newTestStore(t *testing.T) *batchstore.Store {
	t.Helper()
	store, err := batchstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("batchstore.New: %v", err)
	}
	return store
}

func TestSubmitterMixedOutcomes(t *testing.T) {
	dir := t.TempDir()
	inputs := []BatchInput{
		{InputPath: writeInput(t, dir, "sunset_mountains_watermarked.png"), Directive: "slow pan"},
		{InputPath: filepath.Join(dir, "missing.png"), Directive: "zoom in"},
		{InputPath: writeInput(t, dir, "city_night.png"), Directive: "gentle drift"},
	}
	client := &fakeSubmitClient{failOn: map[int]error{}}
	store := newTestStore(t)

	sub := NewSubmitter(client, store, NewNamer(nil, ""), testLogger(), SubmitterConfig{
		Ratio:    "16:9",
		Duration: 4,
	})

	batch, err := sub.Submit(context.Background(), inputs, 0, 600)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(batch.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(batch.Entries))
	}

	// Entries keep input order even across failures.
	if got := batch.Entries[0].Stub; got != "sunset_mountains_video" {
		t.Errorf("entry 0 stub = %q, want sunset_mountains_video", got)
	}
	if batch.Entries[0].Status != domain.StatusPending {
		t.Errorf("entry 0 status = %s, want PENDING", batch.Entries[0].Status)
	}
	if batch.Entries[0].TaskID == "" {
		t.Error("entry 0 missing task ID")
	}

	if batch.Entries[1].Status != domain.StatusSubmitFailed {
		t.Errorf("entry 1 status = %s, want SUBMIT_FAILED", batch.Entries[1].Status)
	}
	if batch.Entries[1].Error == "" {
		t.Error("entry 1 should record a submission error")
	}
	if batch.Entries[1].TaskID != "" {
		t.Errorf("entry 1 has task ID %q, want none", batch.Entries[1].TaskID)
	}

	if batch.Entries[2].Status != domain.StatusPending {
		t.Errorf("entry 2 status = %s, want PENDING", batch.Entries[2].Status)
	}

	// Only readable inputs reach the client.
	if len(client.requests) != 2 {
		t.Fatalf("client saw %d requests, want 2", len(client.requests))
	}
	if client.requests[0].Directive != "slow pan" || client.requests[1].Directive != "gentle drift" {
		t.Errorf("directives out of order: %q, %q",
			client.requests[0].Directive, client.requests[1].Directive)
	}

	// The queue file must survive a round trip.
	loaded, err := store.Load(batch.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Entries) != 3 || loaded.Entries[0].TaskID != batch.Entries[0].TaskID {
		t.Error("persisted batch does not match submitted batch")
	}
	if loaded.TimeoutSeconds != 600 {
		t.Errorf("TimeoutSeconds = %d, want 600", loaded.TimeoutSeconds)
	}
}

func TestSubmitterRejectedTask(t *testing.T) {
	dir := t.TempDir()
	inputs := []BatchInput{
		{InputPath: writeInput(t, dir, "ocean_waves.png"), Directive: "swell"},
	}
	client := &fakeSubmitClient{failOn: map[int]error{0: errors.New("submission rejected: HTTP 429")}}

	sub := NewSubmitter(client, newTestStore(t), NewNamer(nil, ""), testLogger(), SubmitterConfig{
		Ratio:    "16:9",
		Duration: 4,
	})

	batch, err := sub.Submit(context.Background(), inputs, 0, 600)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if batch.Entries[0].Status != domain.StatusSubmitFailed {
		t.Errorf("status = %s, want SUBMIT_FAILED", batch.Entries[0].Status)
	}
	if batch.Entries[0].Error != "submission rejected: HTTP 429" {
		t.Errorf("error = %q", batch.Entries[0].Error)
	}
}

func TestSubmitterMaxItems(t *testing.T) {
	dir := t.TempDir()
	var inputs []BatchInput
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png"} {
		inputs = append(inputs, BatchInput{InputPath: writeInput(t, dir, name), Directive: "move"})
	}
	client := &fakeSubmitClient{}

	sub := NewSubmitter(client, newTestStore(t), NewNamer(nil, ""), testLogger(), SubmitterConfig{
		Ratio:    "16:9",
		Duration: 4,
	})

	batch, err := sub.Submit(context.Background(), inputs, 2, 600)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(batch.Entries) != 2 {
		t.Errorf("got %d entries, want 2", len(batch.Entries))
	}
	if len(client.requests) != 2 {
		t.Errorf("client saw %d requests, want 2", len(client.requests))
	}
}

func TestSubmitterDryRun(t *testing.T) {
	dir := t.TempDir()
	inputs := []BatchInput{
		{InputPath: writeInput(t, dir, "forest.png"), Directive: "sway"},
	}
	client := &fakeSubmitClient{}
	store := newTestStore(t)

	sub := NewSubmitter(client, store, NewNamer(nil, ""), testLogger(), SubmitterConfig{
		Ratio:    "16:9",
		Duration: 4,
		DryRun:   true,
	})

	batch, err := sub.Submit(context.Background(), inputs, 0, 600)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(client.requests) != 0 {
		t.Errorf("dry run submitted %d tasks, want 0", len(client.requests))
	}
	if batch.Entries[0].Stub != "forest_video" {
		t.Errorf("stub = %q, want forest_video", batch.Entries[0].Stub)
	}

	// A dry run must leave nothing behind that a resumed run would
	// try to poll: no queue file, no latest batch.
	if _, err := store.Latest(); err == nil {
		t.Error("dry run persisted a queue file; resume would pick it up")
	}
}
