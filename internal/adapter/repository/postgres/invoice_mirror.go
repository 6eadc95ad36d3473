package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/invoiceagent/internal/domain"
	"github.com/iho/invoiceagent/internal/usecase"
)

const insertInvoiceSQL = `INSERT INTO invoices (
	id, run_id, invoice_date, vendor, total, currency,
	source_filename, destination_filename, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

type pgxPool interface {
	Begin(context.Context) (pgx.Tx, error)
}

// InvoiceMirror implements usecase.RecordMirror by copying ledger rows into
// the invoices table. The CSV ledger stays the source of truth.
type InvoiceMirror struct {
	pool    pgxPool
	retrier *Retrier
	idGen   usecase.IDGenerator
	now     func() time.Time
}

// NewInvoiceMirror creates a new InvoiceMirror.
func NewInvoiceMirror(pool *pgxpool.Pool, retrier *Retrier, idGen usecase.IDGenerator) *InvoiceMirror {
	return newInvoiceMirrorWithPool(pool, retrier, idGen)
}

func newInvoiceMirrorWithPool(pool pgxPool, retrier *Retrier, idGen usecase.IDGenerator) *InvoiceMirror {
	return &InvoiceMirror{
		pool:    pool,
		retrier: retrier,
		idGen:   idGen,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Save inserts all records of a run in one transaction.
func (m *InvoiceMirror) Save(ctx context.Context, runID string, records []*domain.InvoiceRecord) error {
	if len(records) == 0 {
		return nil
	}

	return m.retrier.Retry(ctx, func() error {
		return m.save(ctx, runID, records)
	})
}

func (m *InvoiceMirror) save(ctx context.Context, runID string, records []*domain.InvoiceRecord) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	createdAt := m.now()
	for _, r := range records {
		_, err := tx.Exec(ctx, insertInvoiceSQL,
			m.idGen.Generate(),
			runID,
			r.Date,
			r.Vendor,
			r.Total,
			r.Currency,
			r.SourceFilename,
			r.DestinationFilename,
			createdAt,
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("insert %s: %w", r.DestinationFilename, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}
