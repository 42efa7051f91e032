package batchstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/timmy/vidbatch/internal/domain"
)

// Store persists batches as JSON queue files in a directory. Every
// mutation is a read-entire/mutate/atomic-write-back cycle: the file is
// written to a temp path and renamed into place, so a crashed writer
// can never leave a truncated queue behind.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create queue directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the queue file path for a batch.
func (s *Store) Path(batchID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("task_queue_%s.json", batchID))
}

// Save writes the batch to its queue file atomically.
func (s *Store) Save(batch *domain.Batch) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch %s: %w", batch.ID, err)
	}
	data = append(data, '\n')
	return writeAtomic(s.Path(batch.ID), data)
}

// Load reads a batch back from its queue file.
func (s *Store) Load(batchID string) (*domain.Batch, error) {
	return LoadFile(s.Path(batchID))
}

// LoadFile reads a batch from an explicit queue file path.
func LoadFile(path string) (*domain.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queue file %s: %w", path, err)
	}
	var batch domain.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parse queue file %s: %w", path, err)
	}
	return &batch, nil
}

// Latest returns the most recent queue file in the store's directory,
// for resuming an interrupted batch. Batch IDs embed a sortable
// timestamp, so lexical order is creation order.
func (s *Store) Latest() (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "task_queue_*.json"))
	if err != nil {
		return "", fmt.Errorf("scan queue directory %s: %w", s.dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no queue files found in %s", s.dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// NewBatchID returns a timestamped batch identifier in the queue-file
// naming scheme.
func NewBatchID(now time.Time) string {
	return now.Format("20060102_150405")
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".queue-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}
