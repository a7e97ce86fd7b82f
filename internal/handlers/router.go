package handlers

import (
	"net/http"

	"goldledger/internal/config"
	"goldledger/internal/middleware"
	"goldledger/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	cfg      config.Config
	logger   *zap.Logger
	pins     PinStore
	service  TransactionService
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
	metrics  http.Handler
}

func New(cfg config.Config, logger *zap.Logger, pins PinStore, service TransactionService, hub *websocket.Hub, metrics http.Handler) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:      cfg,
		logger:   logger,
		pins:     pins,
		service:  service,
		hub:      hub,
		upgrader: websocket.Upgrader(cfg.Origins()),
		metrics:  metrics,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(middleware.Recoverer(h.logger))
	// go-chi/cors treats an empty list as "allow all", so no origins means no CORS at all.
	if origins := h.cfg.Origins(); len(origins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: !h.cfg.AllowsAnyOrigin(),
			MaxAge:           300,
		}))
	}

	authenticated := middleware.Auth(h.cfg.JWTSecret)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.With(authenticated).Post("/logout", h.Logout)
	})
	router.Route("/transactions", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/preview", h.PreviewTransaction)
		r.Post("/", h.CreateTransaction)
		r.Get("/", h.ListTransactions)
		r.Delete("/", h.ClearTransactions)
		r.Get("/pending", h.PendingTransactions)
		r.Post("/sync", h.SyncTransactions)
		r.Put("/{id}", h.UpdateTransaction)
		r.Delete("/{id}", h.DeleteTransaction)
	})
	router.With(authenticated).Get("/ws/ledger", h.WSLedger)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.metrics)
	}
	return router
}

func (h *Handler) WSLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	websocket.ServeWS(w, r, h.upgrader, h.hub, userID)
}
