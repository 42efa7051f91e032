package service

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/timmy/vidbatch/internal/batchstore"
	"github.com/timmy/vidbatch/internal/domain"
	"github.com/timmy/vidbatch/internal/logger"
	"github.com/timmy/vidbatch/internal/runway"
	_ "golang.org/x/image/webp"
)

// SubmitClient is the submission surface of the generation API.
type SubmitClient interface {
	Submit(ctx context.Context, req *runway.SubmitRequest) (string, error)
}

// BatchInput is one (input artifact, directive) pair to submit.
type BatchInput struct {
	InputPath string
	Directive string
}

// SubmitterConfig holds the submission-side knobs.
type SubmitterConfig struct {
	Ratio       string        // output aspect ratio sent with every task
	Duration    int           // output duration in seconds
	SubmitDelay time.Duration // minimum pause between consecutive submissions
	DryRun      bool          // build the batch but submit nothing
}

// Submitter creates remote generation tasks for a batch of inputs and
// records one queue entry per input, in input order, regardless of
// individual submission outcomes.
type Submitter struct {
	client SubmitClient
	store  *batchstore.Store
	namer  *Namer
	logger *logger.Logger
	cfg    SubmitterConfig
}

// NewSubmitter creates a new submitter.
func NewSubmitter(client SubmitClient, store *batchstore.Store, namer *Namer, log *logger.Logger, cfg SubmitterConfig) *Submitter {
	return &Submitter{
		client: client,
		store:  store,
		namer:  namer,
		logger: log,
		cfg:    cfg,
	}
}

func (s *Submitter) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx)
}

// Submit creates one generation task per input, truncated to maxItems
// when positive. A failing submission marks its entry SUBMIT_FAILED and
// never aborts the batch. The resulting batch is persisted before
// returning so a crash right after submission cannot lose task IDs.
func (s *Submitter) Submit(ctx context.Context, inputs []BatchInput, maxItems int, timeoutSeconds int) (*domain.Batch, error) {
	if maxItems > 0 && len(inputs) > maxItems {
		inputs = inputs[:maxItems]
	}

	now := time.Now()
	batch := &domain.Batch{
		ID:             batchstore.NewBatchID(now),
		StartedAt:      now,
		TimeoutSeconds: timeoutSeconds,
		Entries:        make([]domain.QueueEntry, 0, len(inputs)),
	}

	ctx = s.logger.WithField(logger.FieldBatchID, batch.ID).WithContext(ctx)
	s.log(ctx).WithFields(logger.Fields{
		"count":   len(inputs),
		"dry_run": s.cfg.DryRun,
	}).Info("Starting task submission")

	taken := make(map[string]bool)

	for i, input := range inputs {
		if i > 0 && s.cfg.SubmitDelay > 0 && !s.cfg.DryRun {
			if err := sleepCtx(ctx, s.cfg.SubmitDelay); err != nil {
				// Shutdown between submissions: record the remaining
				// inputs as never submitted and persist what we have.
				for _, rest := range inputs[i:] {
					batch.Entries = append(batch.Entries, domain.QueueEntry{
						InputPath: rest.InputPath,
						Directive: rest.Directive,
						Stub:      s.namer.Unique(rest.InputPath, taken),
						Status:    domain.StatusSubmitFailed,
						CreatedAt: time.Now(),
						Error:     "submission interrupted: " + err.Error(),
					})
				}
				break
			}
		}

		batch.Entries = append(batch.Entries, s.submitOne(ctx, input, taken))
	}

	// A dry-run batch holds no task IDs, so persisting it would only
	// leave a queue file a later resume cannot poll.
	if !s.cfg.DryRun {
		if err := s.store.Save(batch); err != nil {
			// Without a persisted queue no later stage can account for
			// the batch, so this is one of the few aborting failures.
			return batch, err
		}
	}

	s.log(ctx).WithFields(logger.Fields{
		"total":     len(batch.Entries),
		"submitted": batch.CountByStatus()[domain.StatusPending],
		"failed":    batch.CountByStatus()[domain.StatusSubmitFailed],
	}).Info("Submission completed")

	return batch, nil
}

func (s *Submitter) submitOne(ctx context.Context, input BatchInput, taken map[string]bool) domain.QueueEntry {
	entry := domain.QueueEntry{
		InputPath: input.InputPath,
		Directive: input.Directive,
		Stub:      s.namer.Unique(input.InputPath, taken),
		Status:    domain.StatusPending,
		CreatedAt: time.Now(),
	}

	if s.cfg.DryRun {
		s.log(ctx).WithFields(logger.Fields{
			logger.FieldStub: entry.Stub,
			"input":          input.InputPath,
		}).Info("Dry run: would submit task")
		return entry
	}

	imageData, err := os.ReadFile(input.InputPath)
	if err != nil {
		entry.Status = domain.StatusSubmitFailed
		entry.Error = "failed to read input artifact: " + err.Error()
		s.log(ctx).WithField("input", input.InputPath).WithError(err).Error("Skipping input, cannot read artifact")
		return entry
	}

	format := probeImage(&entry, imageData)

	taskID, err := s.client.Submit(ctx, &runway.SubmitRequest{
		ImageData: imageData,
		Format:    format,
		Directive: input.Directive,
		Ratio:     s.cfg.Ratio,
		Duration:  s.cfg.Duration,
	})
	if err != nil {
		entry.Status = domain.StatusSubmitFailed
		entry.Error = err.Error()
		s.log(ctx).WithFields(logger.Fields{
			logger.FieldStub: entry.Stub,
			"input":          input.InputPath,
		}).WithError(err).Error("Task submission failed")
		return entry
	}

	entry.TaskID = taskID
	s.log(ctx).WithFields(logger.Fields{
		logger.FieldTaskID: taskID,
		logger.FieldStub:   entry.Stub,
	}).Info("Task created")

	return entry
}

// probeImage records the input's dimensions and format on the entry and
// returns the format used for the submission payload. A failed decode
// is not a submission error; the extension decides the format then.
func probeImage(entry *domain.QueueEntry, data []byte) string {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(entry.InputPath)), ".")
		if ext == "" {
			ext = "png"
		}
		return ext
	}
	entry.InputWidth = cfg.Width
	entry.InputHeight = cfg.Height
	entry.InputFormat = format
	return format
}

// sleepCtx pauses for d or until the context is cancelled. All of the
// orchestrator's intentional blocking waits go through here so process
// shutdown interrupts them.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
