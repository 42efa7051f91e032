package domain

import "time"

// BatchSummary holds the headline counts for a completed batch.
type BatchSummary struct {
	Total          int     `json:"total"`
	Succeeded      int     `json:"succeeded"`
	Failed         int     `json:"failed"`
	Cancelled      int     `json:"cancelled"`
	Pending        int     `json:"pending"`
	SubmitFailed   int     `json:"submit_failed"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// PerformanceMetrics holds derived throughput and latency figures.
type PerformanceMetrics struct {
	SuccessRatePercent  float64 `json:"success_rate_percent"`
	AvgTaskDurationSecs float64 `json:"average_task_duration_seconds"`
	TotalPollCount      int     `json:"total_poll_count"`
	TasksPerSecond      float64 `json:"tasks_per_second"`
}

// DownloadMetrics aggregates the downloader's results.
type DownloadMetrics struct {
	ArtifactsDownloaded int     `json:"artifacts_downloaded"`
	TotalBytes          int64   `json:"total_bytes"`
	TotalStorageMB      float64 `json:"total_storage_mb"`
	AvgArtifactSizeMB   float64 `json:"average_artifact_size_mb"`
}

// BatchReport is the derived, read-only aggregate over a batch and its
// download records. Computed fresh on every reporting invocation;
// reports for the same batch accumulate in a list-valued report file
// and are never overwritten.
type BatchReport struct {
	BatchID      string             `json:"batch_id"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Summary      BatchSummary       `json:"batch_summary"`
	Performance  PerformanceMetrics `json:"performance_metrics"`
	Downloads    DownloadMetrics    `json:"download_metrics"`
	StatusCounts map[TaskStatus]int `json:"detailed_status_counts"`
	Downloaded   []DownloadRecord   `json:"downloaded_artifacts,omitempty"`
}
