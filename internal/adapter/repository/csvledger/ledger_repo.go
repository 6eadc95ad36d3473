package csvledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iho/invoiceagent/internal/domain"
)

// legacyColumns maps headers written by the earlier tool to canonical names.
var legacyColumns = map[string]string{
	"vendeur":          domain.ColumnVendor,
	"devise":           domain.ColumnCurrency,
	"fichier_original": domain.ColumnSourceFilename,
	"origina_file":     domain.ColumnSourceFilename,
	"fichier_final":    domain.ColumnDestinationFilename,
	"final_file":       domain.ColumnDestinationFilename,
}

// LedgerRepository implements usecase.LedgerRepository with a CSV file.
type LedgerRepository struct{}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

// Read loads the ledger at path. A missing file is an empty ledger with the
// canonical columns.
func (r *LedgerRepository) Read(ctx context.Context, path string) (*domain.LedgerSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &domain.LedgerSnapshot{Columns: append([]string(nil), domain.LedgerColumns...)}, nil
		}
		return nil, err
	}
	defer f.Close()

	return decode(f)
}

// Append writes the existing rows followed by records. The file is
// replaced atomically, so a failure leaves the previous ledger intact.
func (r *LedgerRepository) Append(ctx context.Context, path string, records []*domain.InvoiceRecord) error {
	if len(records) == 0 {
		return nil
	}

	snapshot, err := r.Read(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", domain.ErrPersist, path, err)
	}

	columns := mergeColumns(snapshot.Columns)
	rows := make([][]string, 0, len(snapshot.Rows)+len(records))
	for _, row := range snapshot.Rows {
		rows = append(rows, widen(row, len(columns)))
	}
	for _, record := range records {
		values := record.Values()
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = values[col]
		}
		rows = append(rows, row)
	}

	if err := writeAtomic(path, columns, rows); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrPersist, path, err)
	}

	return nil
}

func decode(rd io.Reader) (*domain.LedgerSnapshot, error) {
	reader := csv.NewReader(rd)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &domain.LedgerSnapshot{Columns: append([]string(nil), domain.LedgerColumns...)}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	// target maps each header position to its column. A legacy header and
	// its canonical name share one column.
	var columns []string
	target := make([]int, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if canonical, ok := legacyColumns[h]; ok {
			h = canonical
		}
		if j, ok := index[h]; ok {
			target[i] = j
			continue
		}
		index[h] = len(columns)
		target[i] = len(columns)
		columns = append(columns, h)
	}
	merged := len(columns) < len(header)

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if merged {
			row = mergeCells(row, target, len(columns))
		}
		rows = append(rows, widen(row, len(columns)))
	}

	return &domain.LedgerSnapshot{Columns: columns, Rows: rows}, nil
}

// mergeColumns keeps existing columns in order and appends the canonical
// ones they lack.
func mergeColumns(existing []string) []string {
	columns := append([]string(nil), existing...)
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		seen[c] = true
	}
	for _, c := range domain.LedgerColumns {
		if !seen[c] {
			columns = append(columns, c)
		}
	}
	return columns
}

// mergeCells folds row into n columns following target, keeping the first
// non-empty cell of each column.
func mergeCells(row []string, target []int, n int) []string {
	out := make([]string, n)
	for i, cell := range row {
		if i >= len(target) {
			break
		}
		if j := target[i]; out[j] == "" {
			out[j] = cell
		}
	}
	return out
}

// widen pads row with empty cells up to n columns.
func widen(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}

func writeAtomic(path string, columns []string, rows [][]string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(columns); err != nil {
		return err
	}
	if err = w.WriteAll(rows); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
