package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/timmy/vidbatch/internal/domain"
	"github.com/timmy/vidbatch/internal/logger"
	"github.com/timmy/vidbatch/internal/storage"
)

// Archiver copies downloaded artifacts, their metadata siblings, and
// the batch report file to object storage. Keys are namespaced by batch
// ID, and already-stored objects are skipped so re-runs stay cheap.
type Archiver struct {
	store     storage.ArtifactStore
	outputDir string
	logger    *logger.Logger
}

// NewArchiver creates an archiver reading from outputDir.
func NewArchiver(store storage.ArtifactStore, outputDir string, log *logger.Logger) *Archiver {
	return &Archiver{
		store:     store,
		outputDir: outputDir,
		logger:    log,
	}
}

// Archive uploads every recorded artifact plus its metadata sibling,
// and reportPath when non-empty. Returns the number of objects
// uploaded.
func (a *Archiver) Archive(ctx context.Context, batch *domain.Batch, records []domain.DownloadRecord, reportPath string) (int, error) {
	log := a.logger.WithField(logger.FieldBatchID, batch.ID)
	ctx = log.WithContext(ctx)

	uploaded := 0
	for _, rec := range records {
		for _, name := range []string{rec.ArtifactFile, rec.Stub + ".json"} {
			ok, err := a.archiveFile(ctx, batch.ID, name)
			if err != nil {
				return uploaded, fmt.Errorf("archive %s: %w", name, err)
			}
			if ok {
				uploaded++
			}
		}
	}

	if reportPath != "" {
		key := archiveKey(batch.ID, filepath.Base(reportPath))
		// The report accumulates across invocations, so it is always
		// re-uploaded.
		if err := a.store.UploadFile(ctx, key, reportPath); err != nil {
			return uploaded, fmt.Errorf("archive report: %w", err)
		}
		uploaded++
	}

	log.WithField(logger.FieldCount, uploaded).Info("Archive pass completed")
	return uploaded, nil
}

func (a *Archiver) archiveFile(ctx context.Context, batchID, name string) (bool, error) {
	path := filepath.Join(a.outputDir, name)
	if _, err := os.Stat(path); err != nil {
		return false, err
	}

	key := archiveKey(batchID, name)
	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := a.store.UploadFile(ctx, key, path); err != nil {
		return false, err
	}
	logger.FromContext(ctx).WithFields(logger.Fields{
		"key": key,
		"url": a.store.GetURL(key),
	}).Debug("Object archived")
	return true, nil
}

func archiveKey(batchID, name string) string {
	return fmt.Sprintf("batches/%s/%s", batchID, name)
}
