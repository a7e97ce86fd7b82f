package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goldledger/internal/calc"
	"goldledger/internal/models"
	"goldledger/internal/money"
	"goldledger/internal/repository"
	"goldledger/internal/validator"
	"goldledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// ValidationError carries the field messages of a rejected form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

type Repository interface {
	Save(ctx context.Context, tx models.Transaction) (repository.Outcome, error)
	Update(ctx context.Context, tx models.Transaction) (repository.Outcome, error)
	GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	Sync(ctx context.Context, userID string) repository.SyncReport
	ClearTransactions(ctx context.Context, userID string) repository.Outcome
	DeleteTransaction(ctx context.Context, userID, id string) repository.Outcome
	PendingTransactions(ctx context.Context, userID string) []models.Transaction
}

type LocalData interface {
	ClearUserData(ctx context.Context, userID string) error
}

type LedgerHub interface {
	BroadcastLedger(userID string, update websocket.LedgerUpdate)
}

type TransactionService struct {
	repo   Repository
	local  LocalData
	hub    LedgerHub
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewTransactionService(repo Repository, local LocalData, hub LedgerHub, logger *zap.Logger) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{
		repo:   repo,
		local:  local,
		hub:    hub,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Preview validates and, when the form is complete, calculates. Nothing is stored.
func (s *TransactionService) Preview(txType models.TransactionType, form models.FormData) (*models.CalculationResult, map[string]string) {
	if errs := validator.ValidateTransactionForm(form, txType); len(errs) > 0 {
		return nil, errs
	}
	tx, err := buildTransaction(txType, form)
	if err != nil {
		return nil, map[string]string{"form": err.Error()}
	}
	return &models.CalculationResult{
		FineGold:          tx.FineGold,
		Amount:            tx.Amount,
		RemainingFineGold: tx.RemainingFineGold,
	}, map[string]string{}
}

func (s *TransactionService) Create(ctx context.Context, userID string, txType models.TransactionType, form models.FormData) (models.Transaction, repository.Outcome, error) {
	if errs := validator.ValidateTransactionForm(form, txType); len(errs) > 0 {
		return models.Transaction{}, repository.Outcome{}, &ValidationError{Fields: errs}
	}
	tx, err := buildTransaction(txType, form)
	if err != nil {
		return models.Transaction{}, repository.Outcome{}, err
	}
	now := s.now()
	tx.ID = s.newID()
	tx.UserID = userID
	tx.CreatedAt = now
	tx.UpdatedAt = now

	outcome, err := s.repo.Save(ctx, tx)
	if err != nil {
		return models.Transaction{}, repository.Outcome{}, err
	}
	tx.PendingSync = outcome.Stored == repository.StoredLocal
	s.logger.Info("transaction saved",
		zap.String("user_id", userID),
		zap.String("transaction_id", tx.ID),
		zap.String("type", string(tx.Type)),
		zap.String("stored", string(outcome.Stored)),
	)
	s.publish(ctx, userID, websocket.EventCreated, tx.ID, outcome.Stored)
	return tx, outcome, nil
}

// Update recomputes a stored transaction from a new form. The id, type, owner
// and creation time of the original record are kept.
func (s *TransactionService) Update(ctx context.Context, userID, id string, form models.FormData) (models.Transaction, repository.Outcome, error) {
	existing, err := s.find(ctx, userID, id)
	if err != nil {
		return models.Transaction{}, repository.Outcome{}, err
	}
	if errs := validator.ValidateTransactionForm(form, existing.Type); len(errs) > 0 {
		return models.Transaction{}, repository.Outcome{}, &ValidationError{Fields: errs}
	}
	tx, err := buildTransaction(existing.Type, form)
	if err != nil {
		return models.Transaction{}, repository.Outcome{}, err
	}
	tx.ID = existing.ID
	tx.UserID = userID
	tx.CreatedAt = existing.CreatedAt
	tx.UpdatedAt = s.now()

	outcome, err := s.repo.Update(ctx, tx)
	if err != nil {
		return models.Transaction{}, repository.Outcome{}, err
	}
	tx.PendingSync = outcome.Stored == repository.StoredLocal
	s.publish(ctx, userID, websocket.EventUpdated, tx.ID, outcome.Stored)
	return tx, outcome, nil
}

func (s *TransactionService) List(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.repo.GetTransactions(ctx, userID)
}

func (s *TransactionService) Pending(ctx context.Context, userID string) []models.Transaction {
	return s.repo.PendingTransactions(ctx, userID)
}

func (s *TransactionService) Sync(ctx context.Context, userID string) repository.SyncReport {
	report := s.repo.Sync(ctx, userID)
	if report.Synced > 0 {
		s.publish(ctx, userID, websocket.EventSynced, "", repository.StoredRemote)
	}
	return report
}

func (s *TransactionService) Clear(ctx context.Context, userID string) repository.Outcome {
	outcome := s.repo.ClearTransactions(ctx, userID)
	s.publish(ctx, userID, websocket.EventCleared, "", outcome.Stored)
	return outcome
}

// Delete removes one transaction from both stores. Deleting an unknown id is a no-op.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) repository.Outcome {
	outcome := s.repo.DeleteTransaction(ctx, userID, id)
	s.publish(ctx, userID, websocket.EventDeleted, id, outcome.Stored)
	return outcome
}

// SignOut wipes the user's encrypted local data, queued writes and salt included.
func (s *TransactionService) SignOut(ctx context.Context, userID string) error {
	pending := len(s.repo.PendingTransactions(ctx, userID))
	if pending > 0 {
		s.logger.Warn("signing out with unsynced transactions",
			zap.String("user_id", userID),
			zap.Int("pending", pending),
		)
	}
	return s.local.ClearUserData(ctx, userID)
}

func (s *TransactionService) find(ctx context.Context, userID, id string) (models.Transaction, error) {
	listed, err := s.repo.GetTransactions(ctx, userID)
	if err != nil {
		return models.Transaction{}, err
	}
	for _, tx := range listed {
		if tx.ID == id {
			return tx, nil
		}
	}
	for _, tx := range s.repo.PendingTransactions(ctx, userID) {
		if tx.ID == id {
			return tx, nil
		}
	}
	return models.Transaction{}, ErrTransactionNotFound
}

func (s *TransactionService) publish(ctx context.Context, userID string, event websocket.LedgerEvent, id string, stored repository.StoredIn) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastLedger(userID, websocket.LedgerUpdate{
		Event:         event,
		TransactionID: id,
		Stored:        string(stored),
		PendingCount:  len(s.repo.PendingTransactions(ctx, userID)),
		At:            s.now(),
	})
}

// buildTransaction parses a validated form, applies the per-type pins and
// fills the derived fields. Fields the type hides are ignored, not parsed.
func buildTransaction(txType models.TransactionType, form models.FormData) (models.Transaction, error) {
	weight, err := money.ParseDecimal(form.Weight)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("weight: %w", err)
	}
	var (
		purity, rate    decimal.Decimal
		reduction, cash *decimal.Decimal
	)
	if txType != models.TypeSale {
		if purity, err = money.ParseDecimal(form.Purity); err != nil {
			return models.Transaction{}, fmt.Errorf("purity: %w", err)
		}
	}
	if txType == models.TypeExchange {
		if reduction, err = money.ParseOptional(form.Reduction); err != nil {
			return models.Transaction{}, fmt.Errorf("reduction: %w", err)
		}
		if cash, err = money.ParseOptional(form.Cash); err != nil {
			return models.Transaction{}, fmt.Errorf("cash: %w", err)
		}
	} else if rate, err = money.ParseDecimal(form.Rate); err != nil {
		return models.Transaction{}, fmt.Errorf("rate: %w", err)
	}

	purity, rate, reduction = calc.Normalize(txType, purity, rate, reduction)
	result, err := calc.Calculate(txType, weight, purity, rate, reduction, cash)
	if err != nil {
		return models.Transaction{}, err
	}
	return models.Transaction{
		Type:              txType,
		Weight:            weight,
		Purity:            purity,
		Reduction:         reduction,
		Rate:              rate,
		FineGold:          result.FineGold,
		Amount:            result.Amount,
		RemainingFineGold: result.RemainingFineGold,
	}, nil
}
