package handlers

import (
	"context"

	"goldledger/internal/models"
	"goldledger/internal/repository"
)

type PinStore interface {
	GetPinHash(ctx context.Context, userID string) (string, error)
}

type TransactionService interface {
	Preview(txType models.TransactionType, form models.FormData) (*models.CalculationResult, map[string]string)
	Create(ctx context.Context, userID string, txType models.TransactionType, form models.FormData) (models.Transaction, repository.Outcome, error)
	Update(ctx context.Context, userID, id string, form models.FormData) (models.Transaction, repository.Outcome, error)
	List(ctx context.Context, userID string) ([]models.Transaction, error)
	Pending(ctx context.Context, userID string) []models.Transaction
	Sync(ctx context.Context, userID string) repository.SyncReport
	Clear(ctx context.Context, userID string) repository.Outcome
	Delete(ctx context.Context, userID, id string) repository.Outcome
	SignOut(ctx context.Context, userID string) error
}
