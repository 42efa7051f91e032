package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/timmy/vidbatch/internal/batchstore"
	"github.com/timmy/vidbatch/internal/domain"
	"github.com/timmy/vidbatch/internal/runway"
)

func TestPipelineEndToEnd(t *testing.T) {
	queueDir := t.TempDir()
	outDir := t.TempDir()
	reportDir := t.TempDir()
	writeInput(t, queueDir, "sunset_mountains.png")
	writeInput(t, queueDir, "city_night.png")

	store, err := batchstore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	submitClient := &fakeSubmitClient{}
	statusClient := &fakeStatusClient{script: map[string][]*runway.TaskState{
		// Sorted input order: city_night first.
		"task-a": {
			{TaskID: "task-a", Status: "RUNNING"},
			{TaskID: "task-a", Status: "SUCCEEDED", ArtifactURL: "https://cdn.example/a.mp4"},
		},
		"task-b": {
			{TaskID: "task-b", Status: "FAILED", FailureReason: "content policy"},
		},
	}}
	fetcher := &fakeFetcher{payloads: map[string]string{
		"https://cdn.example/a.mp4": "video-a",
	}}

	log := testLogger()
	pipeline := NewPipeline(
		store, queueDir,
		NewSubmitter(submitClient, store, NewNamer(nil, ""), log, SubmitterConfig{Ratio: "16:9", Duration: 4}),
		NewPoller(statusClient, store, log, PollerConfig{}),
		NewDownloader(fetcher, outDir, log),
		NewReporter(reportDir, nil, log),
		nil,
		log,
	)

	report, err := pipeline.Run(context.Background(), PipelineOptions{Platform: "ig"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report == nil {
		t.Fatal("expected a report")
	}
	if report.Summary.Total != 2 || report.Summary.Succeeded != 1 || report.Summary.Failed != 1 {
		t.Errorf("summary = %+v", report.Summary)
	}

	if _, err := os.Stat(filepath.Join(outDir, "city_night_video.mp4")); err != nil {
		t.Errorf("succeeded artifact missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(reportDir, "video_generation_results_"+report.BatchID+".json")); err != nil {
		t.Errorf("report file missing: %v", err)
	}
}

func TestPipelineDryRunLeavesNoQueueFile(t *testing.T) {
	queueDir := t.TempDir()
	writeInput(t, queueDir, "forest.png")

	store, err := batchstore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	submitClient := &fakeSubmitClient{}
	log := testLogger()
	pipeline := NewPipeline(
		store, queueDir,
		NewSubmitter(submitClient, store, NewNamer(nil, ""), log, SubmitterConfig{Ratio: "16:9", Duration: 4, DryRun: true}),
		nil, nil, nil, nil,
		log,
	)

	report, err := pipeline.Run(context.Background(), PipelineOptions{Platform: "ig", DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report != nil {
		t.Errorf("dry run produced a report: %+v", report)
	}
	if len(submitClient.requests) != 0 {
		t.Errorf("dry run submitted %d tasks", len(submitClient.requests))
	}

	// A later resume must fail rather than pick up a dry-run batch of
	// pending entries with no task IDs.
	if _, err := store.Latest(); err == nil {
		t.Error("dry run left a queue file for resume to find")
	}
	if _, err := pipeline.Run(context.Background(), PipelineOptions{Resume: true}); err == nil {
		t.Error("resume after dry run should fail with no saved batch")
	}
}

func TestPipelineRejectsUnknownPlatform(t *testing.T) {
	store, err := batchstore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	log := testLogger()
	pipeline := NewPipeline(store, t.TempDir(), nil, nil, nil, nil, nil, log)

	if _, err := pipeline.Run(context.Background(), PipelineOptions{Platform: "yt"}); err == nil {
		t.Fatal("expected platform validation error")
	}
}

func TestPipelineResumeContinuesLatestBatch(t *testing.T) {
	store, err := batchstore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	saved := &domain.Batch{
		ID:             "20260830_090000",
		TimeoutSeconds: 600,
		Entries: []domain.QueueEntry{
			{TaskID: "t1", Stub: "clip_video", Status: domain.StatusRunning},
		},
	}
	if err := store.Save(saved); err != nil {
		t.Fatal(err)
	}

	statusClient := &fakeStatusClient{script: map[string][]*runway.TaskState{
		"t1": {{TaskID: "t1", Status: "SUCCEEDED", ArtifactURL: "https://cdn.example/t1.mp4"}},
	}}
	fetcher := &fakeFetcher{payloads: map[string]string{
		"https://cdn.example/t1.mp4": "video-t1",
	}}

	log := testLogger()
	pipeline := NewPipeline(
		store, t.TempDir(),
		nil, // resume never submits
		NewPoller(statusClient, store, log, PollerConfig{}),
		NewDownloader(fetcher, t.TempDir(), log),
		NewReporter(t.TempDir(), nil, log),
		nil,
		log,
	)

	report, err := pipeline.Run(context.Background(), PipelineOptions{Resume: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.BatchID != "20260830_090000" {
		t.Errorf("resumed batch ID = %q", report.BatchID)
	}
	if report.Summary.Succeeded != 1 {
		t.Errorf("summary = %+v", report.Summary)
	}
}
