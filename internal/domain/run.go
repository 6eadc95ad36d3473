package domain

import "time"

// FileOutcome is what happened to one pending file during a run.
type FileOutcome string

const (
	// OutcomeProcessed: extracted, archived and queued for the ledger.
	OutcomeProcessed FileOutcome = "processed"
	// OutcomeSkipped: extraction failed, file left in the input directory.
	OutcomeSkipped FileOutcome = "skipped"
	// OutcomeFailed: extraction succeeded but the file could not be archived.
	OutcomeFailed FileOutcome = "failed"
)

// FileResult reports the outcome for a single file.
type FileResult struct {
	Index    int
	File     string
	Outcome  FileOutcome
	Record   *InvoiceRecord
	Err      error
	Duration time.Duration
}

// RunStatus summarizes how a run ended.
type RunStatus string

const (
	RunStatusCompleted        RunStatus = "completed"
	RunStatusNothingToProcess RunStatus = "nothing_to_process"
	RunStatusNothingSucceeded RunStatus = "nothing_succeeded"
	RunStatusInterrupted      RunStatus = "interrupted"
)

// RunSummary is the result of one pass over the pending files.
type RunSummary struct {
	RunID      string
	Status     RunStatus
	Total      int
	Processed  int
	Skipped    int
	Failed     int
	Records    []*InvoiceRecord
	Results    []FileResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Add records a file result and updates the counters.
func (s *RunSummary) Add(result FileResult) {
	s.Results = append(s.Results, result)

	switch result.Outcome {
	case OutcomeProcessed:
		s.Processed++
		s.Records = append(s.Records, result.Record)
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}
