package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tomw/ptt/internal/audio"
	"github.com/tomw/ptt/internal/history"
	"github.com/tomw/ptt/pkg/logger"
)

const defaultHistoryLimit = 50

// Status is a snapshot of the dictation loop
type Status struct {
	State string  `json:"state"`
	Level float64 `json:"level"`
}

// StatusFunc returns the current dictation status
type StatusFunc func() Status

// DevicesFunc lists the available capture devices
type DevicesFunc func() ([]audio.Device, error)

// Handler handles API requests
type Handler struct {
	status  StatusFunc
	devices DevicesFunc
	store   *history.Store
	hub     *Hub
	logger  *logger.Logger
}

// NewHandler creates a new API handler. store may be nil when history is
// disabled.
func NewHandler(status StatusFunc, devices DevicesFunc, store *history.Store, hub *Hub, log *logger.Logger) *Handler {
	return &Handler{
		status:  status,
		devices: devices,
		store:   store,
		hub:     hub,
		logger:  log.Named("api-handler"),
	}
}

// GetHealth handles health check requests
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStatus returns the current dictation state and input level
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.status())
}

// GetDevices lists available capture devices
func (h *Handler) GetDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to list devices")
		return
	}
	h.respondJSON(w, http.StatusOK, devices)
}

// GetHistory returns recent transcripts, newest first
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusNotFound, "History is disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.respondError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	transcripts, err := h.store.Recent(limit)
	if err != nil {
		h.logger.Error("Failed to query history", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to query history")
		return
	}
	if transcripts == nil {
		transcripts = []*history.Transcript{}
	}
	h.respondJSON(w, http.StatusOK, transcripts)
}

// ClearHistory deletes all stored transcripts
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusNotFound, "History is disabled")
		return
	}
	if err := h.store.Clear(); err != nil {
		h.logger.Error("Failed to clear history", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWebSocket upgrades the connection and subscribes it to live events
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
