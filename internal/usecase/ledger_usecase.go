package usecase

import (
	"context"

	"github.com/patrickmn/go-cache"

	"github.com/iho/invoiceagent/internal/domain"
)

// LedgerUseCase handles ledger reads for the dashboard and the CLI.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
	cache      *cache.Cache
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
		cache:      cache.New(LedgerCacheTTL, 2*LedgerCacheTTL),
	}
}

// Tail returns the last n rows of the ledger at path. A missing ledger is
// an empty snapshot.
func (uc *LedgerUseCase) Tail(ctx context.Context, path string, n int) (*domain.LedgerSnapshot, error) {
	if n <= 0 {
		n = DefaultTailSize
	}

	snapshot, err := uc.read(ctx, path)
	if err != nil {
		return nil, err
	}

	return snapshot.Tail(n), nil
}

// Invalidate drops the cached ledger for path. Call it after a run.
func (uc *LedgerUseCase) Invalidate(path string) {
	uc.cache.Delete(path)
}

func (uc *LedgerUseCase) read(ctx context.Context, path string) (*domain.LedgerSnapshot, error) {
	if cached, ok := uc.cache.Get(path); ok {
		return cached.(*domain.LedgerSnapshot), nil
	}

	snapshot, err := uc.ledgerRepo.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	uc.cache.SetDefault(path, snapshot)
	return snapshot, nil
}
