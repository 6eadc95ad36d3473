package dto

import (
	"time"

	"github.com/iho/invoiceagent/internal/domain"
	"github.com/iho/invoiceagent/internal/usecase"
)

// PendingFileResponse represents an image waiting in the input directory.
type PendingFileResponse struct {
	Name       string `json:"name"`
	PreviewURL string `json:"preview_url"`
}

// LedgerResponse represents the last rows of the ledger.
type LedgerResponse struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// OverviewResponse represents the dashboard overview.
type OverviewResponse struct {
	PendingCount  int                    `json:"pending_count"`
	Pending       []*PendingFileResponse `json:"pending"`
	ArchivedCount int                    `json:"archived_count"`
	Ledger        *LedgerResponse        `json:"ledger"`
}

// ProgressEvent is sent before a file is processed.
type ProgressEvent struct {
	Index int    `json:"index"`
	Total int    `json:"total"`
	File  string `json:"file"`
}

// FileResultResponse represents the outcome of one file.
type FileResultResponse struct {
	Index       int               `json:"index"`
	File        string            `json:"file"`
	Outcome     string            `json:"outcome"`
	Destination string            `json:"destination,omitempty"`
	Record      map[string]string `json:"record,omitempty"`
	Error       string            `json:"error,omitempty"`
	DurationMS  int64             `json:"duration_ms"`
}

// RunSummaryResponse represents a finished run.
type RunSummaryResponse struct {
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// LedgerFromDomain converts a ledger snapshot to a response.
func LedgerFromDomain(s *domain.LedgerSnapshot) *LedgerResponse {
	if s == nil {
		return &LedgerResponse{Columns: domain.LedgerColumns, Rows: []map[string]string{}}
	}

	return &LedgerResponse{
		Columns: s.Columns,
		Rows:    s.Maps(),
	}
}

// OverviewFromDomain converts an overview to a response. previewURL builds
// the preview link of a pending file.
func OverviewFromDomain(o *usecase.Overview, previewURL func(name string) string) *OverviewResponse {
	pending := make([]*PendingFileResponse, len(o.Pending))
	for i, f := range o.Pending {
		pending[i] = &PendingFileResponse{
			Name:       f.Name,
			PreviewURL: previewURL(f.Name),
		}
	}

	return &OverviewResponse{
		PendingCount:  o.PendingCount,
		Pending:       pending,
		ArchivedCount: o.ArchivedCount,
		Ledger:        LedgerFromDomain(o.LedgerTail),
	}
}

// FileResultFromDomain converts a file result to a response.
func FileResultFromDomain(r domain.FileResult) *FileResultResponse {
	resp := &FileResultResponse{
		Index:      r.Index,
		File:       r.File,
		Outcome:    string(r.Outcome),
		DurationMS: r.Duration.Milliseconds(),
	}

	if r.Record != nil {
		resp.Destination = r.Record.DestinationFilename
		resp.Record = r.Record.Values()
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}

	return resp
}

// RunSummaryFromDomain converts a run summary to a response.
func RunSummaryFromDomain(s *domain.RunSummary, runErr error) *RunSummaryResponse {
	resp := &RunSummaryResponse{
		RunID:      s.RunID,
		Status:     string(s.Status),
		Total:      s.Total,
		Processed:  s.Processed,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}

	if runErr != nil {
		resp.Error = runErr.Error()
	}

	return resp
}
