package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"goldledger/internal/models"
	"goldledger/internal/repository"
	"goldledger/internal/websocket"
)

type stubRepository struct {
	saveFn    func(ctx context.Context, tx models.Transaction) (repository.Outcome, error)
	updateFn  func(ctx context.Context, tx models.Transaction) (repository.Outcome, error)
	listFn    func(ctx context.Context, userID string) ([]models.Transaction, error)
	syncFn    func(ctx context.Context, userID string) repository.SyncReport
	clearFn   func(ctx context.Context, userID string) repository.Outcome
	deleteFn  func(ctx context.Context, userID, id string) repository.Outcome
	pendingFn func(ctx context.Context, userID string) []models.Transaction
}

func (s stubRepository) Save(ctx context.Context, tx models.Transaction) (repository.Outcome, error) {
	if s.saveFn == nil {
		return repository.Outcome{Stored: repository.StoredRemote}, nil
	}
	return s.saveFn(ctx, tx)
}

func (s stubRepository) Update(ctx context.Context, tx models.Transaction) (repository.Outcome, error) {
	if s.updateFn == nil {
		return repository.Outcome{Stored: repository.StoredRemote}, nil
	}
	return s.updateFn(ctx, tx)
}

func (s stubRepository) GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, userID)
}

func (s stubRepository) Sync(ctx context.Context, userID string) repository.SyncReport {
	if s.syncFn == nil {
		return repository.SyncReport{}
	}
	return s.syncFn(ctx, userID)
}

func (s stubRepository) ClearTransactions(ctx context.Context, userID string) repository.Outcome {
	if s.clearFn == nil {
		return repository.Outcome{Stored: repository.StoredRemote}
	}
	return s.clearFn(ctx, userID)
}

func (s stubRepository) DeleteTransaction(ctx context.Context, userID, id string) repository.Outcome {
	if s.deleteFn == nil {
		return repository.Outcome{Stored: repository.StoredRemote}
	}
	return s.deleteFn(ctx, userID, id)
}

func (s stubRepository) PendingTransactions(ctx context.Context, userID string) []models.Transaction {
	if s.pendingFn == nil {
		return nil
	}
	return s.pendingFn(ctx, userID)
}

type stubLocalData struct {
	cleared []string
	err     error
}

func (s *stubLocalData) ClearUserData(_ context.Context, userID string) error {
	s.cleared = append(s.cleared, userID)
	return s.err
}

type stubHub struct {
	calls []websocket.LedgerUpdate
}

func (s *stubHub) BroadcastLedger(_ string, update websocket.LedgerUpdate) {
	s.calls = append(s.calls, update)
}

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newService(repo Repository, local LocalData, hub LedgerHub) *TransactionService {
	service := NewTransactionService(repo, local, hub, nil)
	service.now = func() time.Time { return fixedNow }
	service.newID = func() string { return "tx-1" }
	return service
}

func TestCreateRejectsInvalidForm(t *testing.T) {
	service := newService(stubRepository{
		saveFn: func(context.Context, models.Transaction) (repository.Outcome, error) {
			t.Fatalf("unexpected save")
			return repository.Outcome{}, nil
		},
	}, &stubLocalData{}, &stubHub{})
	_, _, err := service.Create(context.Background(), "1234", models.TypePurchase, models.FormData{Weight: "0", Purity: "91.6"})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Fields["weight"] != "Weight must be greater than 0" || validationErr.Fields["rate"] != "Rate is required" {
		t.Fatalf("unexpected fields %#v", validationErr.Fields)
	}
}

func TestCreateSavesCalculatedTransaction(t *testing.T) {
	var saved models.Transaction
	hub := &stubHub{}
	service := newService(stubRepository{
		saveFn: func(_ context.Context, tx models.Transaction) (repository.Outcome, error) {
			saved = tx
			return repository.Outcome{Stored: repository.StoredRemote}, nil
		},
	}, &stubLocalData{}, hub)

	tx, outcome, err := service.Create(context.Background(), "1234", models.TypePurchase, models.FormData{Weight: "10", Purity: "91.6", Rate: "6000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Stored != repository.StoredRemote || tx.PendingSync {
		t.Fatalf("expected remote outcome, got %+v", outcome)
	}
	if saved.ID != "tx-1" || saved.UserID != "1234" || !saved.CreatedAt.Equal(fixedNow) || !saved.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected saved record %+v", saved)
	}
	if saved.Amount.StringFixed(2) != "54960.00" {
		t.Fatalf("unexpected amount %s", saved.Amount)
	}
	if len(hub.calls) != 1 || hub.calls[0].Event != websocket.EventCreated || hub.calls[0].Stored != "remote" {
		t.Fatalf("unexpected hub calls %+v", hub.calls)
	}
}

func TestCreateReportsLocalFallback(t *testing.T) {
	hub := &stubHub{}
	service := newService(stubRepository{
		saveFn: func(context.Context, models.Transaction) (repository.Outcome, error) {
			return repository.Outcome{Stored: repository.StoredLocal, Recoverable: errors.New("offline")}, nil
		},
		pendingFn: func(context.Context, string) []models.Transaction {
			return []models.Transaction{{ID: "tx-1", PendingSync: true}}
		},
	}, &stubLocalData{}, hub)

	tx, outcome, err := service.Create(context.Background(), "1234", models.TypeSale, models.FormData{Weight: "5", Rate: "6500"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Stored != repository.StoredLocal || !tx.PendingSync {
		t.Fatalf("expected local outcome")
	}
	if hub.calls[0].PendingCount != 1 || hub.calls[0].Stored != "local" {
		t.Fatalf("unexpected hub update %+v", hub.calls[0])
	}
}

func TestUpdateKeepsIdentityFields(t *testing.T) {
	created := fixedNow.Add(-time.Hour)
	var updated models.Transaction
	service := newService(stubRepository{
		listFn: func(context.Context, string) ([]models.Transaction, error) {
			return []models.Transaction{{ID: "tx-9", UserID: "1234", Type: models.TypePurchase, CreatedAt: created}}, nil
		},
		updateFn: func(_ context.Context, tx models.Transaction) (repository.Outcome, error) {
			updated = tx
			return repository.Outcome{Stored: repository.StoredRemote}, nil
		},
	}, &stubLocalData{}, nil)

	_, _, err := service.Update(context.Background(), "1234", "tx-9", models.FormData{Weight: "20", Purity: "91.6", Rate: "6000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ID != "tx-9" || updated.Type != models.TypePurchase || !updated.CreatedAt.Equal(created) || !updated.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected update %+v", updated)
	}
	if updated.FineGold.StringFixed(3) != "18.320" {
		t.Fatalf("unexpected fine gold %s", updated.FineGold)
	}
}

func TestUpdateFindsQueuedTransaction(t *testing.T) {
	service := newService(stubRepository{
		pendingFn: func(context.Context, string) []models.Transaction {
			return []models.Transaction{{ID: "tx-q", UserID: "1234", Type: models.TypeSale, CreatedAt: fixedNow, PendingSync: true}}
		},
	}, &stubLocalData{}, nil)
	tx, _, err := service.Update(context.Background(), "1234", "tx-q", models.FormData{Weight: "2", Rate: "6500"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Amount.StringFixed(2) != "13000.00" {
		t.Fatalf("unexpected amount %s", tx.Amount)
	}
}

func TestUpdateUnknownTransaction(t *testing.T) {
	service := newService(stubRepository{}, &stubLocalData{}, nil)
	_, _, err := service.Update(context.Background(), "1234", "missing", models.FormData{Weight: "1", Rate: "1"})
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestPreview(t *testing.T) {
	service := newService(stubRepository{}, &stubLocalData{}, nil)
	result, errs := service.Preview(models.TypeExchange, models.FormData{Weight: "10", Purity: "50", Reduction: "60"})
	if len(errs) != 0 || result == nil {
		t.Fatalf("unexpected errors %#v", errs)
	}
	if result.FineGold.StringFixed(3) != "-1.000" {
		t.Fatalf("expected unclamped negative fine gold, got %s", result.FineGold)
	}
	result, errs = service.Preview(models.TypeExchange, models.FormData{Weight: "10"})
	if result != nil || errs["purity"] == "" || errs["reduction"] == "" || errs["rate"] != "" {
		t.Fatalf("unexpected preview %v %#v", result, errs)
	}
}

func TestSyncPublishesOnlyWhenRecordsMoved(t *testing.T) {
	hub := &stubHub{}
	synced := 0
	service := newService(stubRepository{
		syncFn: func(context.Context, string) repository.SyncReport {
			return repository.SyncReport{Synced: synced}
		},
	}, &stubLocalData{}, hub)
	service.Sync(context.Background(), "1234")
	if len(hub.calls) != 0 {
		t.Fatalf("unexpected publish")
	}
	synced = 2
	if report := service.Sync(context.Background(), "1234"); report.Synced != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(hub.calls) != 1 || hub.calls[0].Event != websocket.EventSynced {
		t.Fatalf("expected synced event, got %+v", hub.calls)
	}
}

func TestClearAndSignOut(t *testing.T) {
	local := &stubLocalData{}
	hub := &stubHub{}
	service := newService(stubRepository{
		clearFn: func(context.Context, string) repository.Outcome {
			return repository.Outcome{Stored: repository.StoredLocal, Recoverable: errors.New("remote delete: offline")}
		},
	}, local, hub)
	outcome := service.Clear(context.Background(), "1234")
	if outcome.Recoverable == nil || hub.calls[0].Event != websocket.EventCleared {
		t.Fatalf("unexpected clear outcome %+v", outcome)
	}
	if err := service.SignOut(context.Background(), "1234"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(local.cleared) != 1 || local.cleared[0] != "1234" {
		t.Fatalf("expected local data cleared, got %v", local.cleared)
	}
}

func TestDeletePublishesDeletedEvent(t *testing.T) {
	hub := &stubHub{}
	var gotUser, gotID string
	service := newService(stubRepository{
		deleteFn: func(_ context.Context, userID, id string) repository.Outcome {
			gotUser, gotID = userID, id
			return repository.Outcome{Stored: repository.StoredLocal, Recoverable: errors.New("remote delete: offline")}
		},
	}, &stubLocalData{}, hub)

	outcome := service.Delete(context.Background(), "1234", "tx-7")
	if gotUser != "1234" || gotID != "tx-7" {
		t.Fatalf("unexpected delete target %s/%s", gotUser, gotID)
	}
	if outcome.Stored != repository.StoredLocal || outcome.Recoverable == nil {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(hub.calls) != 1 || hub.calls[0].Event != websocket.EventDeleted || hub.calls[0].TransactionID != "tx-7" {
		t.Fatalf("unexpected hub calls %+v", hub.calls)
	}
}
