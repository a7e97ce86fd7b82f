// Package repository decides, per call, whether a transaction lives in the
// remote ledger or in the encrypted offline queue of the terminal.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"goldledger/internal/models"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const offlineQueueKey = "offline_transactions"

var ErrMissingUserID = errors.New("transaction has no user id")

type RemoteStore interface {
	Upsert(ctx context.Context, tx models.Transaction) error
	ListByUser(ctx context.Context, userID string) ([]models.Transaction, error)
	DeleteAllByUser(ctx context.Context, userID string) error
	DeleteByUser(ctx context.Context, userID, id string) error
}

type LocalStore interface {
	SetItem(ctx context.Context, key string, value any, userID string) error
	GetItem(ctx context.Context, key, userID string, dest any) bool
	RemoveItem(ctx context.Context, key, userID string) error
}

type Metrics interface {
	ObserveRemote(operation string, err error)
	IncFallback(operation string)
	AddSynced(n int)
	AddSyncFailed(n int)
}

type StoredIn string

const (
	StoredRemote StoredIn = "remote"
	StoredLocal  StoredIn = "local"
)

// Outcome describes where a write ended up. Recoverable holds the remote
// failure that was absorbed by the local fallback, if any.
type Outcome struct {
	Stored      StoredIn
	Recoverable error
}

type SyncReport struct {
	Synced    int
	Remaining int
	Failures  error
}

type TransactionRepository struct {
	remote  RemoteStore
	local   LocalStore
	logger  *zap.Logger
	metrics Metrics

	queueMu sync.Mutex
}

func New(remote RemoteStore, local LocalStore, logger *zap.Logger, metrics Metrics) *TransactionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &TransactionRepository{remote: remote, local: local, logger: logger, metrics: metrics}
}

func (r *TransactionRepository) Save(ctx context.Context, tx models.Transaction) (Outcome, error) {
	return r.upsert(ctx, "save", tx)
}

// Update shares the upsert path with Save; the remote function is keyed by id.
func (r *TransactionRepository) Update(ctx context.Context, tx models.Transaction) (Outcome, error) {
	return r.upsert(ctx, "update", tx)
}

func (r *TransactionRepository) upsert(ctx context.Context, operation string, tx models.Transaction) (Outcome, error) {
	if tx.UserID == "" {
		return Outcome{}, ErrMissingUserID
	}
	tx.PendingSync = false
	remoteErr := r.remote.Upsert(ctx, tx)
	r.metrics.ObserveRemote("upsert", remoteErr)
	if remoteErr == nil {
		// A queued copy of this record is older than what just landed remotely.
		if err := r.dropQueued(ctx, tx.UserID, tx.ID); err != nil {
			r.logger.Warn("failed to drop superseded offline copy",
				zap.String("user_id", tx.UserID),
				zap.String("transaction_id", tx.ID),
				zap.Error(err),
			)
		}
		return Outcome{Stored: StoredRemote}, nil
	}

	r.logger.Warn("remote write failed, queueing locally",
		zap.String("operation", operation),
		zap.String("user_id", tx.UserID),
		zap.String("transaction_id", tx.ID),
		zap.Error(remoteErr),
	)
	if err := r.enqueue(ctx, tx); err != nil {
		return Outcome{}, fmt.Errorf("queue transaction %s offline: %w", tx.ID, multierr.Append(remoteErr, err))
	}
	r.metrics.IncFallback(operation)
	return Outcome{Stored: StoredLocal, Recoverable: remoteErr}, nil
}

// GetTransactions returns the remote ledger and reconciles the offline queue
// behind it. The queued records are not merged into the returned set. When the
// remote read fails the offline queue is returned instead.
func (r *TransactionRepository) GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	remote, err := r.remote.ListByUser(ctx, userID)
	r.metrics.ObserveRemote("list", err)
	if err != nil {
		r.logger.Warn("remote read failed, serving offline queue", zap.String("user_id", userID), zap.Error(err))
		r.metrics.IncFallback("list")
		return r.PendingTransactions(ctx, userID), nil
	}

	report := r.Sync(ctx, userID)
	if report.Failures != nil {
		r.logger.Warn("reconciliation left records queued",
			zap.String("user_id", userID),
			zap.Int("synced", report.Synced),
			zap.Int("remaining", report.Remaining),
			zap.Error(report.Failures),
		)
	}
	if remote == nil {
		remote = []models.Transaction{}
	}
	return remote, nil
}

// Sync pushes every queued record through the upsert function. Records that
// land remotely leave the queue; the rest stay for the next attempt.
func (r *TransactionRepository) Sync(ctx context.Context, userID string) SyncReport {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()

	queue := r.loadQueue(ctx, userID)
	if len(queue) == 0 {
		return SyncReport{}
	}

	var (
		remaining []models.Transaction
		failures  error
	)
	for _, queued := range queue {
		tx := queued
		tx.PendingSync = false
		err := r.remote.Upsert(ctx, tx)
		r.metrics.ObserveRemote("upsert", err)
		if err != nil {
			failures = multierr.Append(failures, fmt.Errorf("transaction %s: %w", tx.ID, err))
			remaining = append(remaining, queued)
		}
	}

	synced := len(queue) - len(remaining)
	if synced > 0 {
		if err := r.storeQueue(ctx, userID, remaining); err != nil {
			// Already-synced records stay queued and will be replayed; the upsert is idempotent.
			failures = multierr.Append(failures, fmt.Errorf("rewrite offline queue: %w", err))
			r.logger.Warn("offline queue rewrite failed", zap.String("user_id", userID), zap.Error(err))
			r.metrics.AddSyncFailed(len(queue))
			return SyncReport{Remaining: len(queue), Failures: failures}
		}
	}
	r.metrics.AddSynced(synced)
	r.metrics.AddSyncFailed(len(remaining))
	if synced > 0 {
		r.logger.Info("offline transactions synced", zap.String("user_id", userID), zap.Int("synced", synced), zap.Int("remaining", len(remaining)))
	}
	return SyncReport{Synced: synced, Remaining: len(remaining), Failures: failures}
}

// ClearTransactions deletes remotely and purges the offline queue regardless
// of the remote result. Nothing is rolled back when only one side succeeds.
func (r *TransactionRepository) ClearTransactions(ctx context.Context, userID string) Outcome {
	if userID == "" {
		return Outcome{Recoverable: ErrMissingUserID}
	}
	remoteErr := r.remote.DeleteAllByUser(ctx, userID)
	r.metrics.ObserveRemote("delete_all", remoteErr)

	r.queueMu.Lock()
	localErr := r.local.RemoveItem(ctx, offlineQueueKey, userID)
	r.queueMu.Unlock()

	err := multierr.Combine(
		wrapSide("remote delete", remoteErr),
		wrapSide("local purge", localErr),
	)
	if err != nil {
		r.logger.Warn("clear transactions partially failed", zap.String("user_id", userID), zap.Error(err))
	}
	stored := StoredRemote
	if remoteErr != nil {
		stored = StoredLocal
	}
	return Outcome{Stored: stored, Recoverable: err}
}

// DeleteTransaction removes one record remotely and from the offline queue.
// Like ClearTransactions it is best effort on both sides.
func (r *TransactionRepository) DeleteTransaction(ctx context.Context, userID, id string) Outcome {
	if userID == "" {
		return Outcome{Recoverable: ErrMissingUserID}
	}
	remoteErr := r.remote.DeleteByUser(ctx, userID, id)
	r.metrics.ObserveRemote("delete", remoteErr)
	localErr := r.dropQueued(ctx, userID, id)

	err := multierr.Combine(
		wrapSide("remote delete", remoteErr),
		wrapSide("local purge", localErr),
	)
	if err != nil {
		r.logger.Warn("delete transaction partially failed",
			zap.String("user_id", userID),
			zap.String("transaction_id", id),
			zap.Error(err),
		)
	}
	stored := StoredRemote
	if remoteErr != nil {
		stored = StoredLocal
	}
	return Outcome{Stored: stored, Recoverable: err}
}

func (r *TransactionRepository) PendingTransactions(ctx context.Context, userID string) []models.Transaction {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()
	queue := r.loadQueue(ctx, userID)
	if queue == nil {
		return []models.Transaction{}
	}
	return queue
}

func (r *TransactionRepository) enqueue(ctx context.Context, tx models.Transaction) error {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()

	tx.PendingSync = true
	queue := r.loadQueue(ctx, tx.UserID)
	replaced := false
	for i := range queue {
		if queue[i].ID == tx.ID {
			queue[i] = tx
			replaced = true
			break
		}
	}
	if !replaced {
		queue = append(queue, tx)
	}
	return r.storeQueue(ctx, tx.UserID, queue)
}

func (r *TransactionRepository) dropQueued(ctx context.Context, userID, id string) error {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()

	queue := r.loadQueue(ctx, userID)
	kept := queue[:0]
	for _, queued := range queue {
		if queued.ID != id {
			kept = append(kept, queued)
		}
	}
	if len(kept) == len(queue) {
		return nil
	}
	return r.storeQueue(ctx, userID, kept)
}

func (r *TransactionRepository) loadQueue(ctx context.Context, userID string) []models.Transaction {
	var queue []models.Transaction
	if !r.local.GetItem(ctx, offlineQueueKey, userID, &queue) {
		return nil
	}
	for i := range queue {
		queue[i].PendingSync = true
	}
	return queue
}

func (r *TransactionRepository) storeQueue(ctx context.Context, userID string, queue []models.Transaction) error {
	if len(queue) == 0 {
		return r.local.RemoveItem(ctx, offlineQueueKey, userID)
	}
	return r.local.SetItem(ctx, offlineQueueKey, queue, userID)
}

func wrapSide(side string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", side, err)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRemote(string, error) {}
func (noopMetrics) IncFallback(string)          {}
func (noopMetrics) AddSynced(int)               {}
func (noopMetrics) AddSyncFailed(int)           {}
