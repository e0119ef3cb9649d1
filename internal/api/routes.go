package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomw/ptt/internal/history"
	"github.com/tomw/ptt/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(status StatusFunc, devices DevicesFunc, store *history.Store, hub *Hub, log *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(status, devices, store, hub, log),
		middleware: NewMiddleware(log),
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/health", r.handler.GetHealth)
		router.Get("/status", r.handler.GetStatus)
		router.Get("/devices", r.handler.GetDevices)

		// Transcript history
		router.Get("/history", r.handler.GetHistory)
		router.Delete("/history", r.handler.ClearHistory)

		// Live events (state changes, transcripts, level meter)
		router.Get("/ws", r.handler.HandleWebSocket)
	})

	return router
}
