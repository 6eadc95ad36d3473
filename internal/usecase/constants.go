package usecase

import "time"

const (
	// DefaultRunLockTTL bounds how long a crashed run can keep others out.
	DefaultRunLockTTL = 30 * time.Minute

	// DefaultTailSize is how many ledger rows the overview shows.
	DefaultTailSize = 5

	// PreviewCount is how many pending images the overview lists for preview.
	PreviewCount = 3

	// LedgerCacheTTL is how long a ledger tail stays cached.
	LedgerCacheTTL = 10 * time.Second
)
