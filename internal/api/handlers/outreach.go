// Package handlers contains the operator HTTP handlers for the outreach
// sequencer.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"outreach/internal/core"
	"outreach/internal/notifications/email"
	"outreach/internal/sequencer"
	"outreach/internal/types"
)

// OutreachRunner is the subset of sequencer.Runner the handlers call.
type OutreachRunner interface {
	Run(ctx context.Context) (*sequencer.RunSummary, error)
	SendTest(ctx context.Context, req sequencer.TestRequest) (sequencer.DispatchResult, error)
}

// SequenceReader mirrors db.SequenceRepository.GetByID.
type SequenceReader interface {
	GetByID(ctx context.Context, id string) (*types.Sequence, error)
}

// OutreachHandler serves /v1/outreach.
type OutreachHandler struct {
	runner    OutreachRunner
	sequences SequenceReader
	logger    *slog.Logger
}

func NewOutreachHandler(runner OutreachRunner, sequences SequenceReader, l *slog.Logger) *OutreachHandler {
	if l == nil {
		l = slog.Default()
	}
	return &OutreachHandler{runner: runner, sequences: sequences, logger: l}
}

// RegisterRoutes mounts the outreach routes under /outreach.
func (h *OutreachHandler) RegisterRoutes(r chi.Router) {
	r.Route("/outreach", func(r chi.Router) {
		r.Post("/run", h.Run)
		r.Post("/test", h.SendTest)
		r.Get("/sequences/{id}", h.GetSequence)
	})
}

// Run handles POST /v1/outreach/run. A run skipped because another holds
// the lock answers 409 with the summary body.
func (h *OutreachHandler) Run(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.Run(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "outreach run failed", "error", err)
		core.Error(w, r, err)
		return
	}

	status := http.StatusOK
	if summary.SkippedReason == sequencer.SkippedReasonLocked {
		status = http.StatusConflict
	}
	core.JSON(w, r, status, summary)
}

// SendTest handles POST /v1/outreach/test.
func (h *OutreachHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	var req sequencer.TestRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.runner.SendTest(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "test message dispatched",
		"to", email.RedactEmail(req.Email),
		"variant", req.Variant,
		"stage", req.Stage,
		"success", result.Success,
	)
	core.JSON(w, r, http.StatusOK, result)
}

// GetSequence handles GET /v1/outreach/sequences/{id}.
func (h *OutreachHandler) GetSequence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationPayload,
			"sequence id must be a UUID", err, map[string]any{"field": "id"}))
		return
	}

	seq, err := h.sequences.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, seq)
}
