package usecase

import (
	"context"

	"github.com/iho/invoiceagent/internal/domain"
)

// Overview is the dashboard's view of the directories and the ledger.
type Overview struct {
	Pending       []domain.PendingFile
	PendingCount  int
	ArchivedCount int
	LedgerTail    *domain.LedgerSnapshot
}

// OverviewUseCase builds the dashboard overview.
type OverviewUseCase struct {
	files    FileRepository
	ledgerUC *LedgerUseCase
}

// NewOverviewUseCase creates a new OverviewUseCase.
func NewOverviewUseCase(files FileRepository, ledgerUC *LedgerUseCase) *OverviewUseCase {
	return &OverviewUseCase{
		files:    files,
		ledgerUC: ledgerUC,
	}
}

// Overview lists pending files (the first PreviewCount for preview), counts
// archived images and returns the ledger tail.
func (uc *OverviewUseCase) Overview(ctx context.Context, input RunInput) (*Overview, error) {
	pending, err := uc.files.List(ctx, input.InputDir)
	if err != nil {
		return nil, err
	}

	archived, err := uc.files.List(ctx, input.OutputDir)
	if err != nil {
		return nil, err
	}

	tail, err := uc.ledgerUC.Tail(ctx, input.LedgerPath, DefaultTailSize)
	if err != nil {
		return nil, err
	}

	preview := pending
	if len(preview) > PreviewCount {
		preview = preview[:PreviewCount]
	}

	return &Overview{
		Pending:       preview,
		PendingCount:  len(pending),
		ArchivedCount: len(archived),
		LedgerTail:    tail,
	}, nil
}

// FindPending returns the pending image of inputDir called name.
func (uc *OverviewUseCase) FindPending(ctx context.Context, inputDir, name string) (domain.PendingFile, error) {
	pending, err := uc.files.List(ctx, inputDir)
	if err != nil {
		return domain.PendingFile{}, err
	}

	for _, f := range pending {
		if f.Name == name {
			return f, nil
		}
	}

	return domain.PendingFile{}, domain.ErrFileNotPending
}

// ReadPending returns the pending image called name and its content. Names
// that are not listed in inputDir, including any path, are rejected.
func (uc *OverviewUseCase) ReadPending(ctx context.Context, inputDir, name string) (domain.PendingFile, []byte, error) {
	file, err := uc.FindPending(ctx, inputDir, name)
	if err != nil {
		return domain.PendingFile{}, nil, err
	}

	data, err := uc.files.Read(ctx, file.Path)
	if err != nil {
		return domain.PendingFile{}, nil, err
	}

	return file, data, nil
}
