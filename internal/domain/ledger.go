package domain

// LedgerSnapshot is the content of a ledger file.
type LedgerSnapshot struct {
	Columns []string
	Rows    [][]string
}

// Tail returns a snapshot holding at most the last n rows.
func (s *LedgerSnapshot) Tail(n int) *LedgerSnapshot {
	if n < 0 {
		n = 0
	}

	rows := s.Rows
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}

	return &LedgerSnapshot{
		Columns: s.Columns,
		Rows:    rows,
	}
}

// Maps returns each row keyed by column name.
func (s *LedgerSnapshot) Maps() []map[string]string {
	out := make([]map[string]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		m := make(map[string]string, len(s.Columns))
		for i, col := range s.Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}
