package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"goldledger/internal/auth"
	"goldledger/internal/middleware"
	"goldledger/internal/store"
	"goldledger/internal/validator"

	"go.uber.org/zap"
)

type loginRequest struct {
	UserID string `json:"user_id"`
	PIN    string `json:"pin"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	fields := map[string]string{}
	if err := validator.ValidateUserID(req.UserID); err != nil {
		fields["user_id"] = "User ID must be 4 digits"
	}
	if err := validator.ValidatePIN(req.PIN); err != nil {
		fields["pin"] = "PIN must be 4 to 6 digits"
	}
	if len(fields) > 0 {
		respondValidation(w, fields)
		return
	}

	hash, err := h.pins.GetPinHash(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Warn("pin lookup failed", zap.String("user_id", req.UserID), zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "login unavailable")
		return
	}
	if !auth.CheckPIN(hash, req.PIN) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, req.UserID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"token":   token,
		"user_id": req.UserID,
	})
}

// Logout removes the user's encrypted local data from this terminal.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.service.SignOut(r.Context(), userID); err != nil {
		h.logger.Error("sign out failed", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "sign_out_failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
