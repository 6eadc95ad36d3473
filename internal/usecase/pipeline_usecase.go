package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/invoiceagent/internal/domain"
)

// RunInput names the directories and ledger a run works on.
type RunInput struct {
	InputDir   string
	OutputDir  string
	LedgerPath string
}

// PipelineOptions tunes the pipeline.
type PipelineOptions struct {
	PreserveExtension bool
	LockTTL           time.Duration
}

// PipelineUseCase runs the intake pipeline: enumerate, extract, archive,
// and append to the ledger.
type PipelineUseCase struct {
	files     FileRepository
	extractor Extractor
	ledger    LedgerRepository
	mirror    RecordMirror
	lock      RunLock
	recorder  RunRecorder
	idGen     IDGenerator
	opts      PipelineOptions
	logger    zerolog.Logger
}

// PipelineDeps groups the collaborators of PipelineUseCase. Mirror, Lock and
// Recorder are optional.
type PipelineDeps struct {
	Files     FileRepository
	Extractor Extractor
	Ledger    LedgerRepository
	Mirror    RecordMirror
	Lock      RunLock
	Recorder  RunRecorder
	IDGen     IDGenerator
	Logger    zerolog.Logger
}

// NewPipelineUseCase creates a new PipelineUseCase.
func NewPipelineUseCase(deps PipelineDeps, opts PipelineOptions) *PipelineUseCase {
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultRunLockTTL
	}

	return &PipelineUseCase{
		files:     deps.Files,
		extractor: deps.Extractor,
		ledger:    deps.Ledger,
		mirror:    deps.Mirror,
		lock:      deps.Lock,
		recorder:  deps.Recorder,
		idGen:     deps.IDGen,
		opts:      opts,
		logger:    deps.Logger,
	}
}

// Run processes every pending file of input.InputDir once, sequentially.
// Per-file failures are recorded in the summary; only enumeration, locking
// and ledger persistence errors are returned.
func (uc *PipelineUseCase) Run(ctx context.Context, input RunInput, reporter ProgressReporter) (*domain.RunSummary, error) {
	if reporter == nil {
		reporter = noopReporter{}
	}

	summary := &domain.RunSummary{
		RunID:     uc.idGen.Generate(),
		StartedAt: time.Now().UTC(),
	}
	log := uc.logger.With().Str("run_id", summary.RunID).Logger()

	if uc.lock != nil {
		release, err := uc.lock.Acquire(ctx, lockKey(input.InputDir), uc.opts.LockTTL)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	files, err := uc.files.List(ctx, input.InputDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", input.InputDir, err)
	}

	summary.Total = len(files)
	if len(files) == 0 {
		summary.Status = domain.RunStatusNothingToProcess
		summary.FinishedAt = time.Now().UTC()
		log.Info().Str("input_dir", input.InputDir).Msg("no pending invoices")
		return summary, nil
	}

	log.Info().Int("pending", len(files)).Str("input_dir", input.InputDir).Msg("run started")

	interrupted := false
	for i, file := range files {
		if ctx.Err() != nil {
			log.Warn().Int("remaining", len(files)-i).Msg("run interrupted")
			interrupted = true
			break
		}

		reporter.FileStarted(ctx, i+1, len(files), file)
		// A file already started is finished even if the run is interrupted.
		result := uc.processFile(context.WithoutCancel(ctx), input, file)
		result.Index = i + 1
		summary.Add(result)
		reporter.FileFinished(ctx, result)

		if uc.recorder != nil {
			uc.recorder.ObserveFile(result.Outcome, result.Duration)
		}
	}

	// Files already moved must reach the ledger even when interrupted.
	if len(summary.Records) > 0 {
		if err := uc.ledger.Append(context.WithoutCancel(ctx), input.LedgerPath, summary.Records); err != nil {
			summary.FinishedAt = time.Now().UTC()
			log.Error().Err(err).Str("ledger", input.LedgerPath).Msg("ledger persist failed")
			if !errors.Is(err, domain.ErrPersist) {
				err = fmt.Errorf("%w: %w", domain.ErrPersist, err)
			}
			return summary, err
		}
		uc.mirrorRecords(ctx, summary, log)
	}

	switch {
	case interrupted:
		summary.Status = domain.RunStatusInterrupted
	case len(summary.Records) == 0:
		summary.Status = domain.RunStatusNothingSucceeded
	default:
		summary.Status = domain.RunStatusCompleted
	}
	summary.FinishedAt = time.Now().UTC()

	if uc.recorder != nil {
		uc.recorder.ObserveRun(summary)
	}

	log.Info().
		Str("status", string(summary.Status)).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("run finished")

	return summary, nil
}

// processFile handles one pending file: read, extract, name, archive.
func (uc *PipelineUseCase) processFile(ctx context.Context, input RunInput, file domain.PendingFile) domain.FileResult {
	start := time.Now()
	result := domain.FileResult{File: file.Name}
	log := uc.logger.With().Str("file", file.Name).Logger()

	fields, err := uc.extract(ctx, file)
	if err != nil {
		log.Warn().Err(err).Msg("extraction failed, leaving file in place")
		result.Outcome = domain.OutcomeSkipped
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	name := domain.SynthesizeFilename(*fields, domain.ArchiveExtension(file, uc.opts.PreserveExtension))

	finalName, err := uc.files.Archive(ctx, file.Path, input.OutputDir, name)
	if err != nil {
		log.Error().Err(err).Str("destination", name).Msg("archive failed")
		if !errors.Is(err, domain.ErrArchive) {
			err = fmt.Errorf("%w: %w", domain.ErrArchive, err)
		}
		result.Outcome = domain.OutcomeFailed
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	log.Info().Str("destination", finalName).Msg("invoice archived")

	result.Outcome = domain.OutcomeProcessed
	result.Record = domain.NewInvoiceRecord(*fields, file.Name, finalName)
	result.Duration = time.Since(start)
	return result
}

func (uc *PipelineUseCase) extract(ctx context.Context, file domain.PendingFile) (*domain.InvoiceFields, error) {
	data, err := uc.files.Read(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	image, err := domain.NewImage(file.Name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	start := time.Now()
	fields, err := uc.extractor.Extract(ctx, image)
	if uc.recorder != nil {
		uc.recorder.ObserveExtraction(time.Since(start), err)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrExtraction) {
			err = fmt.Errorf("%w: %w", domain.ErrExtraction, err)
		}
		return nil, err
	}

	return fields, nil
}

func (uc *PipelineUseCase) mirrorRecords(ctx context.Context, summary *domain.RunSummary, log zerolog.Logger) {
	if uc.mirror == nil {
		return
	}

	if err := uc.mirror.Save(context.WithoutCancel(ctx), summary.RunID, summary.Records); err != nil {
		log.Error().Err(err).Int("records", len(summary.Records)).Msg("ledger mirror failed")
	}
}

func lockKey(inputDir string) string {
	if abs, err := filepath.Abs(inputDir); err == nil {
		return "run:" + abs
	}
	return "run:" + inputDir
}

type noopReporter struct{}

func (noopReporter) FileStarted(context.Context, int, int, domain.PendingFile) {}
func (noopReporter) FileFinished(context.Context, domain.FileResult)           {}
