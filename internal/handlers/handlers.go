package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"goldledger/internal/models"
	"goldledger/internal/money"
	"goldledger/internal/repository"
	"goldledger/internal/services"

	"go.uber.org/zap"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondValidation(w http.ResponseWriter, fields map[string]string) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation_failed",
		"fields": fields,
	})
}

// respondServiceError is the single place service errors become statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondValidation(w, validationErr.Fields)
	case errors.Is(err, services.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, "transaction_not_found")
	case errors.Is(err, repository.ErrMissingUserID):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	default:
		h.logger.Error("ledger operation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "ledger_unavailable")
	}
}

type transactionResponse struct {
	ID                string    `json:"id"`
	Type              string    `json:"type"`
	Weight            string    `json:"weight"`
	Purity            string    `json:"purity"`
	Reduction         *string   `json:"reduction,omitempty"`
	Rate              string    `json:"rate"`
	FineGold          string    `json:"fine_gold"`
	Amount            string    `json:"amount"`
	RemainingFineGold *string   `json:"remaining_fine_gold,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	PendingSync       bool      `json:"pending_sync"`
}

func toTransactionResponse(tx models.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Weight:      tx.Weight.String(),
		Purity:      tx.Purity.String(),
		Rate:        tx.Rate.String(),
		FineGold:    money.FormatGrams(tx.FineGold),
		Amount:      money.FormatAmount(tx.Amount),
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
		PendingSync: tx.PendingSync,
	}
	if tx.Reduction != nil {
		reduction := tx.Reduction.String()
		resp.Reduction = &reduction
	}
	if tx.RemainingFineGold != nil {
		remaining := money.FormatGrams(*tx.RemainingFineGold)
		resp.RemainingFineGold = &remaining
	}
	return resp
}

func toTransactionResponses(txs []models.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return out
}

func toCalculationResponse(result *models.CalculationResult) map[string]any {
	if result == nil {
		return nil
	}
	resp := map[string]any{
		"fine_gold": money.FormatGrams(result.FineGold),
		"amount":    money.FormatAmount(result.Amount),
	}
	if result.RemainingFineGold != nil {
		resp["remaining_fine_gold"] = money.FormatGrams(*result.RemainingFineGold)
	}
	return resp
}
