package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"spendsheet/internal/expense"
	"spendsheet/internal/llm"
	"spendsheet/internal/sheetstore"
)

// Service is the slice of the expense service the handlers depend on.
type Service interface {
	Extract(ctx context.Context, text string, images []llm.Image) ([]expense.LineItem, error)
	Append(ctx context.Context, spreadsheetID string, items []expense.LineItem) (expense.AppendResult, error)
	ReadTransactions(ctx context.Context, spreadsheetID string) ([]expense.Transaction, error)
	Ask(ctx context.Context, spreadsheetID, question string, history []expense.ChatEntry) (expense.Insight, error)
	AppendChatEntry(ctx context.Context, spreadsheetID, role, message string) error
	ReadChatHistory(ctx context.Context, spreadsheetID string) ([]expense.ChatEntry, error)
}

// Initializer brings a spreadsheet to its canonical shape.
type Initializer interface {
	Initialize(ctx context.Context, spreadsheetID string) error
}

// Handler serves the expense API.
type Handler struct {
	svc  Service
	init Initializer
	log  zerolog.Logger
}

// NewHandler creates the API handler.
func NewHandler(svc Service, init Initializer, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, init: init, log: log}
}

// Initialize handles POST /api/initialize.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpreadsheetURL string `json:"spreadsheet_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, ok := sheetstore.ResolveSpreadsheetID(req.SpreadsheetURL)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Not a valid Google Sheets URL")
		return
	}

	if err := h.init.Initialize(r.Context(), id); err != nil {
		h.log.Error().Err(err).Str("spreadsheet_id", id).Msg("Initialization failed")
		h.writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "initialized", "spreadsheet_id": id})
}

// Extract handles POST /api/extract.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text   string `json:"text"`
		Images []struct {
			MIMEType string `json:"mime_type"`
			Data     string `json:"data"`
		} `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	images := make([]llm.Image, 0, len(req.Images))
	for _, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			h.log.Warn().Err(err).Msg("Rejecting undecodable image payload")
			WriteError(w, http.StatusBadRequest, expense.ErrImageUpload.Error())
			return
		}
		mime := img.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		images = append(images, llm.Image{MIMEType: mime, Data: data})
	}

	items, err := h.svc.Extract(r.Context(), req.Text, images)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// AppendTransactions handles POST /api/transactions.
func (h *Handler) AppendTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpreadsheetURL string             `json:"spreadsheet_url"`
		Items          []expense.LineItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, ok := sheetstore.ResolveSpreadsheetID(req.SpreadsheetURL)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Not a valid Google Sheets URL")
		return
	}
	if len(req.Items) == 0 {
		WriteError(w, http.StatusBadRequest, "No items to append")
		return
	}

	result, err := h.svc.Append(r.Context(), id, req.Items)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// ListTransactions handles GET /api/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := sheetstore.ResolveSpreadsheetID(r.URL.Query().Get("spreadsheet_url"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Not a valid Google Sheets URL")
		return
	}

	txs, err := h.svc.ReadTransactions(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Ask handles POST /api/chat/ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpreadsheetURL string              `json:"spreadsheet_url"`
		Question       string              `json:"question"`
		History        []expense.ChatEntry `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, ok := sheetstore.ResolveSpreadsheetID(req.SpreadsheetURL)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Not a valid Google Sheets URL")
		return
	}
	if req.Question == "" {
		WriteError(w, http.StatusBadRequest, "Question is required")
		return
	}

	insight, err := h.svc.Ask(r.Context(), id, req.Question, req.History)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, insight)
}

// AppendChatEntry handles POST /api/chat/history.
func (h *Handler) AppendChatEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpreadsheetURL string `json:"spreadsheet_url"`
		Role           string `json:"role"`
		Message        string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, ok := sheetstore.ResolveSpreadsheetID(req.SpreadsheetURL)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Not a valid Google Sheets URL")
		return
	}
	if req.Role != "user" && req.Role != "assistant" {
		WriteError(w, http.StatusBadRequest, "Role must be \"user\" or \"assistant\"")
		return
	}
	if req.Message == "" {
		WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}

	if err := h.svc.AppendChatEntry(r.Context(), id, req.Role, req.Message); err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// ListChatHistory handles GET /api/chat/history.
func (h *Handler) ListChatHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := sheetstore.ResolveSpreadsheetID(r.URL.Query().Get("spreadsheet_url"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "Not a valid Google Sheets URL")
		return
	}

	entries, err := h.svc.ReadChatHistory(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses
// with stable, user-presentable messages.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, expense.ErrNoInput):
		WriteError(w, http.StatusBadRequest, expense.ErrNoInput.Error())
	case errors.Is(err, expense.ErrImageUpload):
		WriteError(w, http.StatusBadRequest, expense.ErrImageUpload.Error())
	case errors.Is(err, expense.ErrNoReceipt):
		WriteError(w, http.StatusUnprocessableEntity, expense.ErrNoReceipt.Error())
	case errors.Is(err, expense.ErrDuplicate):
		WriteError(w, http.StatusConflict, expense.ErrDuplicate.Error())
	case errors.Is(err, expense.ErrExtraction):
		WriteError(w, http.StatusBadGateway, expense.ErrExtraction.Error())
	case errors.Is(err, expense.ErrProviderUnavailable):
		WriteError(w, http.StatusBadGateway, expense.ErrProviderUnavailable.Error())
	case errors.Is(err, sheetstore.ErrSheetNotFound):
		WriteError(w, http.StatusNotFound, "Sheet not found, initialize the spreadsheet first")
	case errors.Is(err, sheetstore.ErrInitializeFailed):
		WriteError(w, http.StatusInternalServerError, "Failed to initialize spreadsheet")
	default:
		h.log.Error().Err(err).Msg("Unhandled service error")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
