package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

type LedgerEvent string

const (
	EventCreated LedgerEvent = "created"
	EventUpdated LedgerEvent = "updated"
	EventSynced  LedgerEvent = "synced"
	EventCleared LedgerEvent = "cleared"
	EventDeleted LedgerEvent = "deleted"
)

// LedgerUpdate tells the terminals of one business user that their ledger
// changed. Stored is "remote" or "local".
type LedgerUpdate struct {
	Event         LedgerEvent `json:"event"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Stored        string      `json:"stored,omitempty"`
	PendingCount  int         `json:"pending_count"`
	At            time.Time   `json:"at"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// BroadcastLedger never blocks; a client with a full buffer misses the update.
func (h *Hub) BroadcastLedger(userID string, update LedgerUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("encode ledger update", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			h.logger.Debug("dropping ledger update for slow client", zap.String("user_id", userID))
		}
	}
}
