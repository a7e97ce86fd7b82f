package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"goldledger/internal/middleware"
	"goldledger/internal/models"

	"github.com/go-chi/chi/v5"
)

type transactionRequest struct {
	Type      string `json:"type"`
	Weight    string `json:"weight"`
	Purity    string `json:"purity"`
	Reduction string `json:"reduction"`
	Rate      string `json:"rate"`
	Cash      string `json:"cash"`
}

func (req transactionRequest) form() models.FormData {
	return models.FormData{
		Weight:    req.Weight,
		Purity:    req.Purity,
		Reduction: req.Reduction,
		Rate:      req.Rate,
		Cash:      req.Cash,
	}
}

func (req transactionRequest) txType() models.TransactionType {
	return models.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type)))
}

func decodeTransactionRequest(w http.ResponseWriter, r *http.Request) (transactionRequest, bool) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return req, false
	}
	return req, true
}

func (h *Handler) PreviewTransaction(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransactionRequest(w, r)
	if !ok {
		return
	}
	result, fields := h.service.Preview(req.txType(), req.form())
	respondJSON(w, http.StatusOK, map[string]any{
		"valid":       len(fields) == 0,
		"fields":      fields,
		"calculation": toCalculationResponse(result),
	})
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	req, ok := decodeTransactionRequest(w, r)
	if !ok {
		return
	}
	tx, outcome, err := h.service.Create(r.Context(), userID, req.txType(), req.form())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionResponse(tx),
		"stored":      outcome.Stored,
	})
}

// UpdateTransaction ignores any type in the body; a transaction keeps its type.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	req, ok := decodeTransactionRequest(w, r)
	if !ok {
		return
	}
	tx, outcome, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.form())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transaction": toTransactionResponse(tx),
		"stored":      outcome.Stored,
	})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	txs, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transactions": toTransactionResponses(txs)})
}

func (h *Handler) PendingTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	pending := h.service.Pending(r.Context(), userID)
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": toTransactionResponses(pending),
		"count":        len(pending),
	})
}

// SyncTransactions reports counts only; records that failed stay queued.
func (h *Handler) SyncTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	report := h.service.Sync(r.Context(), userID)
	respondJSON(w, http.StatusOK, map[string]int{
		"synced":    report.Synced,
		"remaining": report.Remaining,
	})
}

// ClearTransactions answers success even when one side of the delete failed.
func (h *Handler) ClearTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.service.Clear(r.Context(), userID)
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// DeleteTransaction answers success like ClearTransactions, whichever side failed.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	outcome := h.service.Delete(r.Context(), userID, id)
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "deleted",
		"id":     id,
		"stored": outcome.Stored,
	})
}
