// Package httpapi exposes the review service over HTTP: submitting
// documents (inline or by URL), reading session transcripts, and reading
// verdicts.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/c360studio/tribunal/ingest"
	"github.com/c360studio/tribunal/orchestrator"
	"github.com/c360studio/tribunal/review"
)

// maxSubmitBodySize limits submission request bodies to prevent DoS.
const maxSubmitBodySize = 1 << 20 // 1 MB

// Handler provides HTTP endpoints for review operations.
type Handler struct {
	service  *orchestrator.Service
	ingester *ingest.Ingester
	logger   *slog.Logger
}

// NewHandler creates an HTTP handler over the review service. The ingester
// is optional; without it, URL submissions are rejected.
func NewHandler(service *orchestrator.Service, ingester *ingest.Ingester, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:  service,
		ingester: ingester,
		logger:   logger,
	}
}

// RegisterHTTPHandlers registers the review API endpoints.
// The prefix should be "/reviews" (without trailing slash).
func (h *Handler) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	prefix = strings.TrimSuffix(prefix, "/")

	// POST /reviews - Submit a document for review
	mux.HandleFunc("POST "+prefix, h.handleSubmit)

	// GET /reviews/{id} - Get session state and transcript
	mux.HandleFunc("GET "+prefix+"/{id}", h.handleGet)

	// GET /reviews/{id}/verdict - Get the final verdict
	mux.HandleFunc("GET "+prefix+"/{id}/verdict", h.handleVerdict)
}

// SubmitReviewRequest is the request body for POST /reviews. Exactly one of
// Document and URL must be set.
type SubmitReviewRequest struct {
	Document string `json:"document,omitempty"`
	URL      string `json:"url,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Domain   string `json:"domain,omitempty"`
}

// SubmitReviewResponse is the response for POST /reviews.
type SubmitReviewResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Mode      string `json:"mode"`
}

// SessionResponse is the response for GET /reviews/{id}: the session snapshot
// plus a human-oriented rendering of its transcript.
type SessionResponse struct {
	*review.Session
	TranscriptText string `json:"transcript_text"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubmitReviewRequest
	body := http.MaxBytesReader(w, r.Body, maxSubmitBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if (req.Document == "") == (req.URL == "") {
		h.writeError(w, http.StatusBadRequest, "exactly one of document or url is required")
		return
	}

	var mode review.Mode
	switch req.Mode {
	case "", "full":
		mode = review.ModeFull
	case "short":
		mode = review.ModeShort
	default:
		h.writeError(w, http.StatusBadRequest, "invalid mode: must be full or short")
		return
	}

	document := req.Document
	var sources []review.Source
	if req.URL != "" {
		if h.ingester == nil {
			h.writeError(w, http.StatusBadRequest, "url submissions are not enabled")
			return
		}
		doc, err := h.ingester.Ingest(ctx, req.URL)
		if err != nil {
			h.logger.Warn("URL ingestion failed", "url", req.URL, "error", err)
			h.writeError(w, http.StatusUnprocessableEntity, "could not ingest url: "+err.Error())
			return
		}
		document = doc.Markdown
		sources = []review.Source{{Title: doc.Title, URL: doc.URL}}
	}

	session, err := h.service.Submit(ctx, orchestrator.SubmitRequest{
		Document: document,
		Mode:     mode,
		Domain:   req.Domain,
		Sources:  sources,
	})
	if err != nil {
		h.logger.Error("Submission failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.writeJSON(w, http.StatusAccepted, SubmitReviewResponse{
		SessionID: session.ID,
		Status:    string(session.Status),
		Mode:      string(session.Mode),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "session ID required")
		return
	}

	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, review.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("Session lookup failed", "session_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	h.writeJSON(w, http.StatusOK, SessionResponse{
		Session:        session,
		TranscriptText: session.RenderTranscript(),
	})
}

func (h *Handler) handleVerdict(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "session ID required")
		return
	}

	verdict, err := h.service.GetVerdict(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, review.ErrNotFound):
			h.writeError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, orchestrator.ErrNoVerdict):
			h.writeError(w, http.StatusConflict, "session has not completed")
		default:
			h.writeError(w, http.StatusConflict, err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, verdict)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
