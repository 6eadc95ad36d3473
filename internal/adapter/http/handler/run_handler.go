package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/invoiceagent/internal/adapter/http/dto"
	"github.com/iho/invoiceagent/internal/domain"
	"github.com/iho/invoiceagent/internal/usecase"
)

// PipelineRunner defines the behavior needed by RunHandler.
type PipelineRunner interface {
	Run(ctx context.Context, input usecase.RunInput, reporter usecase.ProgressReporter) (*domain.RunSummary, error)
}

// LedgerInvalidator drops cached ledger reads after a run.
type LedgerInvalidator interface {
	Invalidate(path string)
}

// RunHandler starts pipeline runs from the dashboard and streams progress
// as server-sent events.
type RunHandler struct {
	runner PipelineRunner
	ledger LedgerInvalidator
	input  usecase.RunInput
	logger zerolog.Logger
}

// NewRunHandler creates a new RunHandler. A nil runner means the model
// credential is missing; runs are then refused with 503.
func NewRunHandler(runner PipelineRunner, ledger LedgerInvalidator, input usecase.RunInput, logger zerolog.Logger) *RunHandler {
	return &RunHandler{
		runner: runner,
		ledger: ledger,
		input:  input,
		logger: logger,
	}
}

// Start runs the pipeline over the pending files. Events:
//
//	progress  before each file
//	result    after each file
//	summary   once, at the end
//
// Errors raised before the first event (run already in progress, unreadable
// input folder) are plain JSON errors with a matching status.
func (h *RunHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, mapDomainError(domain.ErrMissingCredential), "extraction unavailable", domain.ErrMissingCredential.Error())
		return
	}

	stream := newEventStream(w)
	summary, err := h.runner.Run(r.Context(), h.input, stream)

	if h.ledger != nil {
		h.ledger.Invalidate(h.input.LedgerPath)
	}

	if summary == nil {
		h.logger.Warn().Err(err).Msg("run not started")
		if !stream.started {
			writeError(w, mapDomainError(err), "failed to start run", err.Error())
			return
		}
		stream.send("error", dto.ErrorResponse{Error: "run failed", Message: err.Error()})
		return
	}

	if err != nil {
		h.logger.Error().Err(err).Str("run_id", summary.RunID).Msg("run failed")
	}

	stream.send("summary", dto.RunSummaryFromDomain(summary, err))
}

// eventStream implements usecase.ProgressReporter over text/event-stream.
// Headers are sent with the first event.
type eventStream struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	err     error
}

func newEventStream(w http.ResponseWriter) *eventStream {
	return &eventStream{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

func (s *eventStream) FileStarted(_ context.Context, index, total int, file domain.PendingFile) {
	s.send("progress", dto.ProgressEvent{Index: index, Total: total, File: file.Name})
}

func (s *eventStream) FileFinished(_ context.Context, result domain.FileResult) {
	s.send("result", dto.FileResultFromDomain(result))
}

func (s *eventStream) start() {
	s.started = true

	// A run may outlast the server write timeout.
	_ = s.rc.SetWriteDeadline(time.Time{})

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
}

// send writes one event. After a write error (client gone) events are
// dropped; the run itself goes on until the context is cancelled.
func (s *eventStream) send(event string, data any) {
	if !s.started {
		s.start()
	}
	if s.err != nil {
		return
	}

	payload, err := json.Marshal(data)
	if err != nil {
		s.err = err
		return
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		s.err = err
		return
	}

	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.err = err
	}
}
