package service

import (
	"context"
	"time"

	"github.com/timmy/vidbatch/internal/batchstore"
	"github.com/timmy/vidbatch/internal/domain"
	"github.com/timmy/vidbatch/internal/logger"
	"github.com/timmy/vidbatch/internal/runway"
)

// StatusClient is the status-retrieval surface of the generation API.
type StatusClient interface {
	RetrieveTask(ctx context.Context, taskID string) (*runway.TaskState, error)
}

// PollerConfig holds the polling-side knobs.
type PollerConfig struct {
	Interval       time.Duration // pause between status sweeps
	Timeout        time.Duration // default batch timeout; overridden by the batch's own value
	MaxEntryErrors int           // consecutive status failures before an entry is muted
}

// Poller drives in-flight queue entries to a terminal status by sweeping
// the remote status endpoint. The batch file is checkpointed after every
// sweep so an interrupted run can resume from the last observed state.
type Poller struct {
	client StatusClient
	store  *batchstore.Store
	logger *logger.Logger
	cfg    PollerConfig
}

// NewPoller creates a new poller.
func NewPoller(client StatusClient, store *batchstore.Store, log *logger.Logger, cfg PollerConfig) *Poller {
	if cfg.MaxEntryErrors <= 0 {
		cfg.MaxEntryErrors = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Poller{
		client: client,
		store:  store,
		logger: log,
		cfg:    cfg,
	}
}

func (p *Poller) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx)
}

// Poll sweeps the batch's non-terminal entries until all have reached a
// terminal status or the batch timeout elapses. It returns true when
// every entry is terminal. Entries still in flight at timeout keep
// their last observed status so a later invocation can resume them.
func (p *Poller) Poll(ctx context.Context, batch *domain.Batch) (bool, error) {
	timeout := p.cfg.Timeout
	if batch.TimeoutSeconds > 0 {
		timeout = time.Duration(batch.TimeoutSeconds) * time.Second
	}
	deadline := time.Now().Add(timeout)

	ctx = p.logger.WithField(logger.FieldBatchID, batch.ID).WithContext(ctx)
	p.log(ctx).WithFields(logger.Fields{
		"in_flight": len(batch.NonTerminal()),
		"timeout":   timeout.String(),
	}).Info("Starting status polling")

	// Consecutive status-retrieval failures per entry index. An entry
	// that keeps failing is muted for the rest of this invocation but
	// stays non-terminal in the queue file.
	errCounts := make(map[int]int)
	muted := make(map[int]bool)

	for {
		remaining := p.sweep(ctx, batch, errCounts, muted)

		batch.PollCount++
		if err := p.store.Save(batch); err != nil {
			return false, err
		}

		if remaining == 0 {
			done := len(batch.NonTerminal()) == 0
			p.log(ctx).WithFields(logger.Fields{
				"sweeps": batch.PollCount,
				"muted":  len(muted),
			}).Info("Polling finished, no entries left to sweep")
			return done, nil
		}

		if time.Now().After(deadline) {
			p.log(ctx).WithFields(logger.Fields{
				"in_flight": remaining,
				"sweeps":    batch.PollCount,
			}).Warn("Polling timeout reached with tasks still in flight")
			return false, nil
		}

		if err := sleepCtx(ctx, p.cfg.Interval); err != nil {
			return false, err
		}
	}
}

// sweep queries every pollable entry once and returns how many entries
// remain pollable for the next round.
func (p *Poller) sweep(ctx context.Context, batch *domain.Batch, errCounts map[int]int, muted map[int]bool) int {
	remaining := 0

	for _, i := range batch.NonTerminal() {
		if muted[i] {
			continue
		}
		entry := &batch.Entries[i]

		state, err := p.client.RetrieveTask(ctx, entry.TaskID)
		if err != nil {
			errCounts[i]++
			log := p.log(ctx).WithFields(logger.Fields{
				logger.FieldTaskID: entry.TaskID,
				logger.FieldStub:   entry.Stub,
				"attempt":          errCounts[i],
			}).WithError(err)
			if errCounts[i] >= p.cfg.MaxEntryErrors {
				muted[i] = true
				log.Error("Status checks keep failing, giving up on entry for this run")
			} else {
				log.Warn("Status check failed")
				remaining++
			}
			continue
		}
		errCounts[i] = 0

		p.apply(ctx, entry, state)
		if !entry.Status.IsTerminal() {
			remaining++
		}
	}

	return remaining
}

// apply folds one observed task state into the queue entry.
func (p *Poller) apply(ctx context.Context, entry *domain.QueueEntry, state *runway.TaskState) {
	status := runway.MapStatus(state.Status)
	if status == entry.Status && !status.IsTerminal() {
		return
	}

	log := p.log(ctx).WithFields(logger.Fields{
		logger.FieldTaskID: entry.TaskID,
		logger.FieldStub:   entry.Stub,
		logger.FieldStatus: string(status),
	})

	switch status {
	case domain.StatusSucceeded:
		if state.ArtifactURL == "" {
			// A success without an artifact cannot be downloaded, so
			// it is a failure as far as the batch is concerned.
			entry.Status = domain.StatusFailed
			entry.Error = "task succeeded without an artifact URL"
			log.Error("Task reported success but returned no artifact")
		} else {
			entry.Status = domain.StatusSucceeded
			entry.ArtifactURL = state.ArtifactURL
			log.Info("Task succeeded")
		}
	case domain.StatusFailed:
		entry.Status = domain.StatusFailed
		entry.Error = state.FailureReason
		if entry.Error == "" {
			entry.Error = "task failed without a reason"
		}
		log.WithField("reason", entry.Error).Warn("Task failed")
	case domain.StatusCancelled:
		entry.Status = domain.StatusCancelled
		log.Warn("Task cancelled")
	default:
		entry.Status = status
		log.Debug("Task still in flight")
	}

	if entry.Status.IsTerminal() {
		now := time.Now()
		entry.CompletedAt = &now
	}
}
