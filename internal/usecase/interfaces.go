package usecase

import (
	"context"
	"time"

	"github.com/iho/invoiceagent/internal/domain"
)

// FileRepository defines access to the input and output directories.
type FileRepository interface {
	// List returns the supported images directly inside dir, sorted by name.
	List(ctx context.Context, dir string) ([]domain.PendingFile, error)
	Read(ctx context.Context, path string) ([]byte, error)
	// Archive moves srcPath into outputDir under name and returns the name
	// actually used, which differs from name when a collision was resolved.
	Archive(ctx context.Context, srcPath, outputDir, name string) (string, error)
}

// Extractor reads invoice fields from an image.
type Extractor interface {
	Extract(ctx context.Context, image domain.Image) (*domain.InvoiceFields, error)
}

// LedgerRepository defines persistence for the CSV ledger.
type LedgerRepository interface {
	// Append merges records after the existing rows of the ledger at path.
	Append(ctx context.Context, path string, records []*domain.InvoiceRecord) error
	Read(ctx context.Context, path string) (*domain.LedgerSnapshot, error)
}

// RecordMirror copies ledger records to a secondary store.
type RecordMirror interface {
	Save(ctx context.Context, runID string, records []*domain.InvoiceRecord) error
}

// RunLock serializes runs over the same input directory.
type RunLock interface {
	// Acquire returns domain.ErrRunInProgress when the key is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// ProgressReporter receives per-file progress of a run.
type ProgressReporter interface {
	FileStarted(ctx context.Context, index, total int, file domain.PendingFile)
	FileFinished(ctx context.Context, result domain.FileResult)
}

// RunRecorder observes pipeline activity for metrics.
type RunRecorder interface {
	ObserveFile(outcome domain.FileOutcome, duration time.Duration)
	ObserveExtraction(duration time.Duration, err error)
	ObserveRun(summary *domain.RunSummary)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}
