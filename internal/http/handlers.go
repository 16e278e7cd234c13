package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"omnigest/internal/export"
	"omnigest/internal/gateway"
	"omnigest/internal/pipeline"
	"omnigest/internal/records"
	"omnigest/internal/schema"
	audit "omnigest/pkg/platform/audit"
	"omnigest/pkg/platform/sentinel"
	"omnigest/pkg/requestcontext"
)

// Sharer pushes an exported bundle to the ABDM gateway. Nil when no
// gateway is configured.
type Sharer interface {
	ProfileShare(ctx context.Context, bundle export.Bundle) (gateway.ShareResult, error)
}

type Handler struct {
	pipe            *pipeline.Pipeline
	store           records.Store
	auditLog        audit.Store
	sharer          Sharer
	workers         int
	pseudonymSecret []byte
	log             *slog.Logger
}

func NewHandler(pipe *pipeline.Pipeline, store records.Store, auditLog audit.Store, sharer Sharer, workers int, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		pipe:     pipe,
		store:    store,
		auditLog: auditLog,
		sharer:   sharer,
		workers:  workers,
		log:      log,
	}
}

// WithPseudonymSecret keys research-export tokens.
func (h *Handler) WithPseudonymSecret(secret []byte) *Handler {
	h.pseudonymSecret = secret
	return h
}

type ingestRequest struct {
	Rows []schema.RawRecord `json:"rows"`
}

type ingestResponse struct {
	BatchID string `json:"batch_id"`
	pipeline.Summary
}

// handleIngest runs one batch through the pipeline. The whole batch shares
// one reference time and one correlation ID.
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch")
		return
	}

	batchID := uuid.NewString()
	ctx := requestcontext.WithBatchID(r.Context(), batchID)
	ctx = requestcontext.WithTime(ctx, time.Now().UTC())

	summary := h.pipe.Batch(ctx, req.Rows, h.workers)
	writeJSON(w, http.StatusOK, ingestResponse{BatchID: batchID, Summary: summary})
}

type auditEntryResponse struct {
	RequestID               string `json:"request_id"`
	Timestamp               string `json:"timestamp"`
	Action                  string `json:"action"`
	SubjectReference        string `json:"subject_reference"`
	Reason                  string `json:"reason,omitempty"`
	StatutoryRetentionUntil string `json:"statutory_retention_until"`
}

func (h *Handler) handleAuditList(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.auditLog.List(r.Context(), limit)
	if err != nil {
		h.serviceError(w, r, err, "list audit entries")
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			RequestID:               e.RequestID.String(),
			Timestamp:               e.Timestamp.UTC().Format(time.RFC3339Nano),
			Action:                  string(e.Action),
			SubjectReference:        e.SubjectReference,
			Reason:                  e.Reason,
			StatutoryRetentionUntil: e.StatutoryRetentionUntil.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *Handler) handleExportFHIR(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.buildBundle(r)
	if err != nil {
		h.serviceError(w, r, err, "build export bundle")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (h *Handler) handleExportShare(w http.ResponseWriter, r *http.Request) {
	if h.sharer == nil {
		writeError(w, http.StatusServiceUnavailable, "gateway not configured")
		return
	}
	bundle, err := h.buildBundle(r)
	if err != nil {
		h.serviceError(w, r, err, "build export bundle")
		return
	}
	res, err := h.sharer.ProfileShare(r.Context(), bundle)
	if err != nil {
		h.serviceError(w, r, err, "profile share")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"request_id": res.RequestID,
		"entries":    len(bundle.Entry),
	})
}

func (h *Handler) buildBundle(r *http.Request) (export.Bundle, error) {
	recs, err := h.store.List(r.Context())
	if err != nil {
		return export.Bundle{}, err
	}
	builder := export.Builder{
		Pseudonymize:    r.URL.Query().Get("pseudonymize") == "true",
		PseudonymSecret: h.pseudonymSecret,
	}
	return builder.BuildBundle(recs)
}

func (h *Handler) handleHardDeletePurged(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.HardDeletePurged(r.Context())
	if err != nil {
		h.serviceError(w, r, err, "hard delete purged")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	h.log.ErrorContext(r.Context(), op+" failed", slog.Any("error", err))
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "upstream unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
