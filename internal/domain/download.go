package domain

import "time"

// DownloadRecord is the per-artifact metadata written as a sibling JSON
// file next to the downloaded artifact. Created once by the downloader
// and never mutated; the record and the artifact are written together
// or not at all.
type DownloadRecord struct {
	Stub              string    `json:"stub"`
	ArtifactFile      string    `json:"artifact_file"`
	FileSizeBytes     int64     `json:"file_size_bytes"`
	DownloadTimestamp time.Time `json:"download_timestamp"`

	// Traceability back to the originating queue entry.
	TaskID      string     `json:"task_id"`
	InputPath   string     `json:"input_path"`
	Directive   string     `json:"directive"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
