package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/timmy/vidbatch/internal/domain"
	"github.com/timmy/vidbatch/internal/logger"
)

// ArtifactFetcher is the artifact-transfer surface of the generation API.
type ArtifactFetcher interface {
	StreamArtifact(ctx context.Context, url string) (io.ReadCloser, error)
}

// DownloadFailure records one artifact that could not be transferred.
type DownloadFailure struct {
	Stub  string
	Error string
}

// DownloadResult summarizes one download pass over a batch.
type DownloadResult struct {
	Records  []domain.DownloadRecord
	Failures []DownloadFailure
	Skipped  int // artifacts already present on disk
}

// TotalBytes returns the combined size of all recorded artifacts.
func (r *DownloadResult) TotalBytes() int64 {
	var total int64
	for _, rec := range r.Records {
		total += rec.FileSizeBytes
	}
	return total
}

// Downloader transfers succeeded artifacts to the output directory and
// writes a metadata sibling next to each. Transfers go through a temp
// file and a rename, so a partial download never occupies the final
// path, and a re-run skips artifacts that are already complete.
type Downloader struct {
	fetcher   ArtifactFetcher
	outputDir string
	logger    *logger.Logger
}

// NewDownloader creates a downloader writing into outputDir.
func NewDownloader(fetcher ArtifactFetcher, outputDir string, log *logger.Logger) *Downloader {
	return &Downloader{
		fetcher:   fetcher,
		outputDir: outputDir,
		logger:    log,
	}
}

func (d *Downloader) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx)
}

// Download fetches the artifact of every succeeded entry in the batch.
// Individual failures are collected, not fatal; the error return covers
// only environment problems such as an uncreatable output directory.
func (d *Downloader) Download(ctx context.Context, batch *domain.Batch) (*DownloadResult, error) {
	if err := os.MkdirAll(d.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", d.outputDir, err)
	}

	ctx = d.logger.WithField(logger.FieldBatchID, batch.ID).WithContext(ctx)
	result := &DownloadResult{}

	for i := range batch.Entries {
		entry := &batch.Entries[i]
		if entry.Status != domain.StatusSucceeded {
			continue
		}

		rec, skipped, err := d.downloadOne(ctx, entry)
		if err != nil {
			result.Failures = append(result.Failures, DownloadFailure{
				Stub:  entry.Stub,
				Error: err.Error(),
			})
			d.log(ctx).WithFields(logger.Fields{
				logger.FieldStub:   entry.Stub,
				logger.FieldTaskID: entry.TaskID,
			}).WithError(err).Error("Artifact download failed")
			continue
		}
		if skipped {
			result.Skipped++
		}
		result.Records = append(result.Records, *rec)
	}

	d.log(ctx).WithFields(logger.Fields{
		"downloaded": len(result.Records) - result.Skipped,
		"skipped":    result.Skipped,
		"failed":     len(result.Failures),
		"bytes":      result.TotalBytes(),
	}).Info("Download pass completed")

	return result, nil
}

func (d *Downloader) downloadOne(ctx context.Context, entry *domain.QueueEntry) (*domain.DownloadRecord, bool, error) {
	artifactName := entry.Stub + ".mp4"
	artifactPath := filepath.Join(d.outputDir, artifactName)
	metaPath := filepath.Join(d.outputDir, entry.Stub+".json")

	if info, err := os.Stat(artifactPath); err == nil {
		// Already transferred on a previous run. The metadata sibling
		// may still be missing if that run died between the two writes.
		d.log(ctx).WithField(logger.FieldStub, entry.Stub).Info("Artifact already present, skipping transfer")
		rec := d.record(entry, artifactName, info.Size())
		if _, err := os.Stat(metaPath); os.IsNotExist(err) {
			if err := writeMetadata(metaPath, rec); err != nil {
				return nil, false, err
			}
		}
		return rec, true, nil
	}

	size, err := d.transfer(ctx, entry.ArtifactURL, artifactPath)
	if err != nil {
		return nil, false, err
	}

	rec := d.record(entry, artifactName, size)
	if err := writeMetadata(metaPath, rec); err != nil {
		return nil, false, err
	}

	d.log(ctx).WithFields(logger.Fields{
		logger.FieldStub: entry.Stub,
		logger.FieldSize: size,
	}).Info("Artifact downloaded")

	return rec, false, nil
}

// transfer streams the artifact into a temp file in the output
// directory and renames it into place once the stream completes.
func (d *Downloader) transfer(ctx context.Context, url, artifactPath string) (int64, error) {
	body, err := d.fetcher.StreamArtifact(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(d.outputDir, ".download-tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	size, err := io.Copy(tmp, body)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("stream artifact: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, artifactPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("finalize artifact: %w", err)
	}
	return size, nil
}

func (d *Downloader) record(entry *domain.QueueEntry, artifactName string, size int64) *domain.DownloadRecord {
	return &domain.DownloadRecord{
		Stub:              entry.Stub,
		ArtifactFile:      artifactName,
		FileSizeBytes:     size,
		DownloadTimestamp: time.Now().UTC(),
		TaskID:            entry.TaskID,
		InputPath:         entry.InputPath,
		Directive:         entry.Directive,
		CompletedAt:       entry.CompletedAt,
	}
}

func writeMetadata(path string, rec *domain.DownloadRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", rec.Stub, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata for %s: %w", rec.Stub, err)
	}
	return nil
}
