package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/timmy/vidbatch/internal/batchstore"
	"github.com/timmy/vidbatch/internal/domain"
	"github.com/timmy/vidbatch/internal/logger"
	"github.com/timmy/vidbatch/internal/prompts"
)

var validPlatforms = map[string]bool{"ig": true, "tt": true, "tw": true}

// PipelineOptions are the per-invocation knobs of a pipeline run.
type PipelineOptions struct {
	MaxVideos int    // 0 means all queued inputs
	Platform  string // target platform tag, validated against the known set
	Resume    bool   // skip submission, continue the latest saved batch
	Upload    bool   // archive results to object storage after reporting
	DryRun    bool   // stop after planning the batch
}

// Pipeline runs the generation phases in order: input curation and
// submission, status polling, artifact download, reporting, and
// optional archival. Each phase hands a persisted batch to the next, so
// an interrupted run can resume from the queue file.
type Pipeline struct {
	store      *batchstore.Store
	queueDir   string
	submitter  *Submitter
	poller     *Poller
	downloader *Downloader
	reporter   *Reporter
	archiver   *Archiver // nil when object storage is not configured
	logger     *logger.Logger
}

// NewPipeline wires the phase runners together. archiver may be nil.
func NewPipeline(store *batchstore.Store, queueDir string, submitter *Submitter, poller *Poller, downloader *Downloader, reporter *Reporter, archiver *Archiver, log *logger.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		queueDir:   queueDir,
		submitter:  submitter,
		poller:     poller,
		downloader: downloader,
		reporter:   reporter,
		archiver:   archiver,
		logger:     log,
	}
}

// CollectInputs gathers the queued PNG images and pairs each with a
// generated motion directive, in sorted filename order.
func CollectInputs(queueDir string) ([]BatchInput, error) {
	matches, err := filepath.Glob(filepath.Join(queueDir, "*.png"))
	if err != nil {
		return nil, fmt.Errorf("scan queue directory %s: %w", queueDir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no PNG images found in %s", queueDir)
	}
	sort.Strings(matches)

	inputs := make([]BatchInput, 0, len(matches))
	for _, path := range matches {
		inputs = append(inputs, BatchInput{
			InputPath: path,
			Directive: prompts.BuildDirective(path),
		})
	}
	return inputs, nil
}

// Run executes the pipeline and returns the final report, which is nil
// for dry runs.
func (p *Pipeline) Run(ctx context.Context, opts PipelineOptions) (*domain.BatchReport, error) {
	if opts.Platform != "" && !validPlatforms[opts.Platform] {
		return nil, fmt.Errorf("invalid platform %q, valid options: ig, tt, tw", opts.Platform)
	}
	log := p.logger.WithField(logger.FieldComponent, "pipeline")
	if opts.Platform != "" {
		log = log.WithField("platform", opts.Platform)
	}
	ctx = log.WithContext(ctx)

	var batch *domain.Batch
	var err error

	if opts.Resume {
		batch, err = p.resume(log)
	} else {
		batch, err = p.submitPhase(ctx, log, opts)
	}
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		log.WithField(logger.FieldBatchID, batch.ID).Info("Dry run complete, batch planned but not submitted")
		return nil, nil
	}

	log.Info("Phase: status polling")
	done, err := p.poller.Poll(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("polling phase: %w", err)
	}
	if !done {
		log.Warn("Batch incomplete, continuing with partial results")
	}

	log.Info("Phase: artifact download")
	dl, err := p.downloader.Download(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("download phase: %w", err)
	}

	log.Info("Phase: reporting")
	report := p.reporter.Build(batch, dl)
	reportPath, err := p.reporter.Persist(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("reporting phase: %w", err)
	}
	log.WithField("report", reportPath).Info("Report written")

	if opts.Upload {
		if p.archiver == nil {
			log.Warn("Upload requested but object storage is not configured, skipping")
		} else {
			log.Info("Phase: archival upload")
			uploaded, err := p.archiver.Archive(ctx, batch, dl.Records, reportPath)
			if err != nil {
				return report, fmt.Errorf("archival phase: %w", err)
			}
			log.WithField(logger.FieldCount, uploaded).Info("Results archived")
		}
	}

	return report, nil
}

func (p *Pipeline) submitPhase(ctx context.Context, log *logger.Logger, opts PipelineOptions) (*domain.Batch, error) {
	log.Info("Phase: input curation")
	inputs, err := CollectInputs(p.queueDir)
	if err != nil {
		return nil, fmt.Errorf("curation phase: %w", err)
	}

	log.Info("Phase: task submission")
	batch, err := p.submitter.Submit(ctx, inputs, opts.MaxVideos, batchTimeoutSeconds(p.poller))
	if err != nil {
		return nil, fmt.Errorf("submission phase: %w", err)
	}
	return batch, nil
}

func (p *Pipeline) resume(log *logger.Logger) (*domain.Batch, error) {
	path, err := p.store.Latest()
	if err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	batch, err := batchstore.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	log.WithFields(logger.Fields{
		logger.FieldBatchID: batch.ID,
		"in_flight":         len(batch.NonTerminal()),
	}).Info("Resuming saved batch")
	return batch, nil
}

func batchTimeoutSeconds(p *Poller) int {
	return int(p.cfg.Timeout.Seconds())
}
