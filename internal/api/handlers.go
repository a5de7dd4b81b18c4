// Package api exposes statement ingestion over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"gitlab.com/yelinaung/expense-importer/internal/ingest"
	"gitlab.com/yelinaung/expense-importer/internal/models"
)

// multipartOverhead is the slack allowed on top of the file size for the
// other form fields and part headers.
const multipartOverhead = 64 << 10

// Ingester is the part of ingest.Service the handlers use.
type Ingester interface {
	Upload(ctx context.Context, req ingest.UploadRequest) (*models.Statement, error)
	Status(ctx context.Context, id string) (*models.Statement, error)
	Recent(ctx context.Context, limit int) ([]models.Statement, error)
	Expenses(ctx context.Context, id string) ([]models.Expense, error)
	Cancel(ctx context.Context, id string) (*models.Statement, error)
	MaxUploadBytes() int64
}

var _ Ingester = (*ingest.Service)(nil)

// StatementsHandler serves the statement endpoints.
type StatementsHandler struct {
	svc Ingester
	log zerolog.Logger
}

// NewStatementsHandler creates a StatementsHandler.
func NewStatementsHandler(svc Ingester, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{svc: svc, log: log}
}

type uploadResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Upload handles POST /api/statements.
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.svc.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		WriteError(w, http.StatusBadRequest, "A statement file is required in the 'file' field")
		return
	}
	defer file.Close()

	if header.Size > limit {
		WriteError(w, http.StatusRequestEntityTooLarge, "File is too large")
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read uploaded statement")
		WriteError(w, http.StatusBadRequest, "Could not read the uploaded file")
		return
	}

	req := ingest.UploadRequest{
		FileName: header.Filename,
		Source:   r.FormValue("source"),
		Content:  content,
	}
	if raw := strings.TrimSpace(r.FormValue("partner_id")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			WriteError(w, http.StatusBadRequest, "partner_id must be a positive integer")
			return
		}
		req.PartnerID = &id
	}

	stmt, err := h.svc.Upload(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "Failed to accept statement")
		return
	}

	WriteJSON(w, http.StatusAccepted, uploadResponse{
		ID:      stmt.ID,
		Message: "Statement accepted for processing",
	})
}

// List handles GET /api/statements.
func (h *StatementsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	statements, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list statements")
		return
	}
	if statements == nil {
		statements = []models.Statement{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"statements": statements,
		"count":      len(statements),
	})
}

// Get handles GET /api/statements/{id}.
func (h *StatementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stmt, err := h.svc.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to load statement")
		return
	}
	WriteJSON(w, http.StatusOK, stmt)
}

type expenseResponse struct {
	ID                 int     `json:"id"`
	Date               string  `json:"date"`
	Description        string  `json:"description"`
	Amount             string  `json:"amount"`
	OriginalAmount     string  `json:"original_amount"`
	CategoryID         int     `json:"category_id"`
	PartnerID          int     `json:"partner_id"`
	Confidence         float64 `json:"confidence"`
	ClassifiedBy       string  `json:"classified_by"`
	VerificationStatus string  `json:"verification_status"`
}

// Expenses handles GET /api/statements/{id}/expenses.
func (h *StatementsHandler) Expenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.svc.Expenses(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to load expenses")
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, expenseResponse{
			ID:                 e.ID,
			Date:               e.Date.Format("2006-01-02"),
			Description:        e.Description,
			Amount:             e.Amount.StringFixed(2),
			OriginalAmount:     e.OriginalAmount,
			CategoryID:         e.CategoryID,
			PartnerID:          e.PartnerID,
			Confidence:         e.Confidence,
			ClassifiedBy:       e.ClassifiedBy,
			VerificationStatus: e.VerificationStatus,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"expenses": out,
		"count":    len(out),
	})
}

// Cancel handles POST /api/statements/{id}/cancel.
func (h *StatementsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	stmt, err := h.svc.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to cancel statement")
		return
	}
	WriteJSON(w, http.StatusAccepted, stmt)
}

// Health handles GET /api/health.
func Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *StatementsHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ingest.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Statement not found")
	case errors.Is(err, ingest.ErrTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ingest.ErrInvalidUpload):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ingest.ErrNotCancellable):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ingest.ErrQueueFull), errors.Is(err, ingest.ErrQueueClosed):
		w.Header().Set("Retry-After", "30")
		WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error().Err(err).Msg(fallback)
		WriteError(w, http.StatusInternalServerError, fallback)
	}
}
