package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/invoiceagent/internal/adapter/http/dto"
	"github.com/iho/invoiceagent/internal/domain"
	"github.com/iho/invoiceagent/internal/usecase"
)

// OverviewService defines the behavior needed by OverviewHandler.
type OverviewService interface {
	Overview(ctx context.Context, input usecase.RunInput) (*usecase.Overview, error)
	ReadPending(ctx context.Context, inputDir, name string) (domain.PendingFile, []byte, error)
}

// LedgerService defines the ledger reads needed by OverviewHandler.
type LedgerService interface {
	Tail(ctx context.Context, path string, n int) (*domain.LedgerSnapshot, error)
}

// OverviewHandler serves the dashboard state: pending images, archive
// count and the ledger.
type OverviewHandler struct {
	overviewUC OverviewService
	ledgerUC   LedgerService
	input      usecase.RunInput
}

// NewOverviewHandler creates a new OverviewHandler.
func NewOverviewHandler(overviewUC OverviewService, ledgerUC LedgerService, input usecase.RunInput) *OverviewHandler {
	return &OverviewHandler{
		overviewUC: overviewUC,
		ledgerUC:   ledgerUC,
		input:      input,
	}
}

// Overview returns pending and archived counts with the ledger tail.
func (h *OverviewHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.overviewUC.Overview(r.Context(), h.input)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to load overview", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.OverviewFromDomain(overview, previewURL))
}

// Ledger returns the last n rows of the ledger.
func (h *OverviewHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	n := parseIntQuery(r, "n", usecase.DefaultTailSize)

	snapshot, err := h.ledgerUC.Tail(r.Context(), h.input.LedgerPath, n)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to read ledger", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LedgerFromDomain(snapshot))
}

// Preview serves a pending image.
func (h *OverviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing file name", "")
		return
	}

	file, data, err := h.overviewUC.ReadPending(r.Context(), h.input.InputDir, name)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to read pending file", err.Error())
		return
	}

	image, err := domain.NewImage(file.Name, data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "unreadable image", err.Error())
		return
	}

	w.Header().Set("Content-Type", image.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, file.Name, time.Time{}, bytes.NewReader(data))
}

func previewURL(name string) string {
	return "/api/v1/pending/" + url.PathEscape(name)
}
