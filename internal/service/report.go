package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/timmy/vidbatch/internal/domain"
	"github.com/timmy/vidbatch/internal/logger"
)

// ReportLedger records finished reports in durable storage, in addition
// to the JSON report file. Implemented by the repository package.
type ReportLedger interface {
	SaveReport(ctx context.Context, report *domain.BatchReport) error
}

// Reporter derives success and performance aggregates from a batch and
// its download results. Reports are derived data: every invocation
// computes a fresh report and appends it to the batch's report file, so
// re-running the reporting phase never loses an earlier snapshot.
type Reporter struct {
	reportDir string
	ledger    ReportLedger // optional
	logger    *logger.Logger
}

// NewReporter creates a reporter writing into reportDir. ledger may be
// nil when no database ledger is configured.
func NewReporter(reportDir string, ledger ReportLedger, log *logger.Logger) *Reporter {
	return &Reporter{
		reportDir: reportDir,
		ledger:    ledger,
		logger:    log,
	}
}

// Build computes a report for the batch. dl may be nil when the
// download phase did not run.
func (r *Reporter) Build(batch *domain.Batch, dl *DownloadResult) *domain.BatchReport {
	counts := batch.CountByStatus()
	total := len(batch.Entries)

	report := &domain.BatchReport{
		BatchID:      batch.ID,
		GeneratedAt:  time.Now().UTC(),
		StatusCounts: counts,
		Summary: domain.BatchSummary{
			Total:        total,
			Succeeded:    counts[domain.StatusSucceeded],
			Failed:       counts[domain.StatusFailed],
			Cancelled:    counts[domain.StatusCancelled],
			SubmitFailed: counts[domain.StatusSubmitFailed],
			// Anything still in flight counts as pending for the
			// headline numbers; StatusCounts keeps the distinction.
			Pending: counts[domain.StatusPending] + counts[domain.StatusRunning],
		},
	}

	report.Summary.ElapsedSeconds = round2(elapsed(batch).Seconds())
	report.Performance = performance(batch, report.Summary)

	if dl != nil {
		report.Downloaded = dl.Records
		report.Downloads = downloadMetrics(dl)
	}

	return report
}

// elapsed is wall time from batch start to the last task completion, or
// to now when tasks are still in flight.
func elapsed(batch *domain.Batch) time.Duration {
	if len(batch.NonTerminal()) == 0 {
		if last := batch.LastCompletedAt(); !last.IsZero() {
			return last.Sub(batch.StartedAt)
		}
	}
	return time.Since(batch.StartedAt)
}

func performance(batch *domain.Batch, summary domain.BatchSummary) domain.PerformanceMetrics {
	perf := domain.PerformanceMetrics{
		TotalPollCount: batch.PollCount,
	}
	if summary.Total > 0 {
		perf.SuccessRatePercent = round2(float64(summary.Succeeded) / float64(summary.Total) * 100)
	}
	if summary.ElapsedSeconds > 0 {
		perf.TasksPerSecond = round2(float64(summary.Total) / summary.ElapsedSeconds)
	}

	var totalDur time.Duration
	var completed int
	for _, entry := range batch.Entries {
		if entry.CompletedAt == nil {
			continue
		}
		totalDur += entry.CompletedAt.Sub(entry.CreatedAt)
		completed++
	}
	if completed > 0 {
		perf.AvgTaskDurationSecs = round2(totalDur.Seconds() / float64(completed))
	}
	return perf
}

func downloadMetrics(dl *DownloadResult) domain.DownloadMetrics {
	metrics := domain.DownloadMetrics{
		ArtifactsDownloaded: len(dl.Records),
		TotalBytes:          dl.TotalBytes(),
	}
	metrics.TotalStorageMB = round2(float64(metrics.TotalBytes) / (1024 * 1024))
	if metrics.ArtifactsDownloaded > 0 {
		metrics.AvgArtifactSizeMB = round2(metrics.TotalStorageMB / float64(metrics.ArtifactsDownloaded))
	}
	return metrics
}

// Persist appends the report to the batch's report file, creating it on
// first use. An older single-object file is wrapped into a list so the
// append semantics hold across format generations.
func (r *Reporter) Persist(ctx context.Context, report *domain.BatchReport) (string, error) {
	if err := os.MkdirAll(r.reportDir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory %s: %w", r.reportDir, err)
	}
	path := filepath.Join(r.reportDir, fmt.Sprintf("video_generation_results_%s.json", report.BatchID))

	var reports []*domain.BatchReport
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &reports); err != nil {
			var single domain.BatchReport
			if err := json.Unmarshal(data, &single); err != nil {
				return "", fmt.Errorf("parse existing report file %s: %w", path, err)
			}
			reports = []*domain.BatchReport{&single}
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read report file %s: %w", path, err)
	}
	reports = append(reports, report)

	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal reports for batch %s: %w", report.BatchID, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(r.reportDir, ".report-tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp report file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write temp report file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("chmod temp report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp report file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("finalize report file: %w", err)
	}

	if r.ledger != nil {
		if err := r.ledger.SaveReport(ctx, report); err != nil {
			// The JSON file is the primary record; a ledger failure is
			// logged, not fatal.
			r.logger.WithField(logger.FieldBatchID, report.BatchID).WithError(err).Warn("Failed to record report in ledger")
		}
	}

	return path, nil
}

// Render formats the report for terminal output.
func (r *Reporter) Render(report *domain.BatchReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "BATCH SUMMARY (%s)\n", report.BatchID)
	fmt.Fprintf(&b, "  Total tasks:       %d\n", report.Summary.Total)
	fmt.Fprintf(&b, "  Succeeded:         %d\n", report.Summary.Succeeded)
	fmt.Fprintf(&b, "  Failed:            %d\n", report.Summary.Failed)
	fmt.Fprintf(&b, "  Cancelled:         %d\n", report.Summary.Cancelled)
	fmt.Fprintf(&b, "  Submit failures:   %d\n", report.Summary.SubmitFailed)
	fmt.Fprintf(&b, "  Still in flight:   %d\n", report.Summary.Pending)
	fmt.Fprintf(&b, "  Elapsed:           %.2fs\n", report.Summary.ElapsedSeconds)

	b.WriteString("\nPERFORMANCE METRICS\n")
	fmt.Fprintf(&b, "  Success rate:      %.2f%%\n", report.Performance.SuccessRatePercent)
	fmt.Fprintf(&b, "  Avg task duration: %.2fs\n", report.Performance.AvgTaskDurationSecs)
	fmt.Fprintf(&b, "  Status sweeps:     %d\n", report.Performance.TotalPollCount)
	fmt.Fprintf(&b, "  Tasks per second:  %.2f\n", report.Performance.TasksPerSecond)

	b.WriteString("\nDOWNLOAD METRICS\n")
	fmt.Fprintf(&b, "  Artifacts:         %d\n", report.Downloads.ArtifactsDownloaded)
	fmt.Fprintf(&b, "  Total storage:     %.2f MB\n", report.Downloads.TotalStorageMB)
	fmt.Fprintf(&b, "  Avg artifact size: %.2f MB\n", report.Downloads.AvgArtifactSizeMB)

	b.WriteString("\nSTATUS BREAKDOWN\n")
	statuses := make([]string, 0, len(report.StatusCounts))
	for status := range report.StatusCounts {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Fprintf(&b, "  %-14s %d\n", status, report.StatusCounts[domain.TaskStatus(status)])
	}

	return b.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
