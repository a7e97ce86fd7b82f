package handlers

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"goldledger/internal/auth"
	"goldledger/internal/config"
	"goldledger/internal/models"
	"goldledger/internal/repository"
	"goldledger/internal/websocket"
)

type stubPinStore struct {
	getPinHashFn func(ctx context.Context, userID string) (string, error)
}

func (s stubPinStore) GetPinHash(ctx context.Context, userID string) (string, error) {
	if s.getPinHashFn == nil {
		return "", nil
	}
	return s.getPinHashFn(ctx, userID)
}

type stubService struct {
	previewFn func(txType models.TransactionType, form models.FormData) (*models.CalculationResult, map[string]string)
	createFn  func(ctx context.Context, userID string, txType models.TransactionType, form models.FormData) (models.Transaction, repository.Outcome, error)
	updateFn  func(ctx context.Context, userID, id string, form models.FormData) (models.Transaction, repository.Outcome, error)
	listFn    func(ctx context.Context, userID string) ([]models.Transaction, error)
	pendingFn func(ctx context.Context, userID string) []models.Transaction
	syncFn    func(ctx context.Context, userID string) repository.SyncReport
	clearFn   func(ctx context.Context, userID string) repository.Outcome
	deleteFn  func(ctx context.Context, userID, id string) repository.Outcome
	signOutFn func(ctx context.Context, userID string) error
}

func (s stubService) Preview(txType models.TransactionType, form models.FormData) (*models.CalculationResult, map[string]string) {
	if s.previewFn == nil {
		return nil, map[string]string{}
	}
	return s.previewFn(txType, form)
}

func (s stubService) Create(ctx context.Context, userID string, txType models.TransactionType, form models.FormData) (models.Transaction, repository.Outcome, error) {
	if s.createFn == nil {
		return models.Transaction{}, repository.Outcome{Stored: repository.StoredRemote}, nil
	}
	return s.createFn(ctx, userID, txType, form)
}

func (s stubService) Update(ctx context.Context, userID, id string, form models.FormData) (models.Transaction, repository.Outcome, error) {
	if s.updateFn == nil {
		return models.Transaction{}, repository.Outcome{Stored: repository.StoredRemote}, nil
	}
	return s.updateFn(ctx, userID, id, form)
}

func (s stubService) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID)
}

func (s stubService) Pending(ctx context.Context, userID string) []models.Transaction {
	if s.pendingFn == nil {
		return nil
	}
	return s.pendingFn(ctx, userID)
}

func (s stubService) Sync(ctx context.Context, userID string) repository.SyncReport {
	if s.syncFn == nil {
		return repository.SyncReport{}
	}
	return s.syncFn(ctx, userID)
}

func (s stubService) Clear(ctx context.Context, userID string) repository.Outcome {
	if s.clearFn == nil {
		return repository.Outcome{Stored: repository.StoredRemote}
	}
	return s.clearFn(ctx, userID)
}

func (s stubService) Delete(ctx context.Context, userID, id string) repository.Outcome {
	if s.deleteFn == nil {
		return repository.Outcome{Stored: repository.StoredRemote}
	}
	return s.deleteFn(ctx, userID, id)
}

func (s stubService) SignOut(ctx context.Context, userID string) error {
	if s.signOutFn == nil {
		return nil
	}
	return s.signOutFn(ctx, userID)
}

func newTestHandler(pins PinStore, service TransactionService) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
	}
	return New(cfg, nil, pins, service, websocket.NewHub(nil), nil)
}

// serveAuthed runs the request through the full router with a token for userID.
func serveAuthed(t *testing.T, handler *Handler, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	return rr
}

func serve(handler *Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	return rr
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
}
