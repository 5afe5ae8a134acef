// Package alerts provides HTTP handlers for listing and working alert
// records.
package alerts

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/crowdwatch/internal/api/middleware"
	"github.com/good-yellow-bee/crowdwatch/internal/models"
	"github.com/good-yellow-bee/crowdwatch/internal/storage"
)

// Response helpers
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// AlertResponse is an alert record as returned by the API.
type AlertResponse struct {
	ID             string `json:"id"`
	EventID        string `json:"event_id"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	Resolved       bool   `json:"resolved"`
	AcknowledgedBy string `json:"acknowledged_by,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func toAlertResponse(a *models.Alert) *AlertResponse {
	return &AlertResponse{
		ID:             a.ID,
		EventID:        a.EventID,
		Type:           string(a.Type),
		Message:        a.Message,
		Resolved:       a.Resolved,
		AcknowledgedBy: a.AcknowledgedBy,
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

// Handler handles alert endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new alerts handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// List returns alert records, newest first.
// Query: event_id, resolved (true/false), limit (default 100).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := storage.AlertFilter{
		EventID: r.URL.Query().Get("event_id"),
		Limit:   100,
	}

	if s := r.URL.Query().Get("resolved"); s != "" {
		resolved, err := strconv.ParseBool(s)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "resolved must be true or false")
			return
		}
		filter.Resolved = &resolved
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	alerts, err := h.storage.Alerts().List(r.Context(), filter)
	if err != nil {
		log.Printf("list alerts: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	items := make([]*AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, toAlertResponse(a))
	}
	jsonOK(w, items)
}

// Acknowledge records which operator has seen the alert.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	alert, ok := h.loadAlert(w, r)
	if !ok {
		return
	}

	username := middleware.GetUsername(r.Context())
	if err := h.storage.Alerts().Acknowledge(r.Context(), alert.ID, username); err != nil {
		log.Printf("acknowledge alert %s: %v", alert.ID, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	alert.AcknowledgedBy = username
	log.Printf("alert acknowledged: %s by %s", alert.ID, username)
	jsonOK(w, toAlertResponse(alert))
}

// Resolve marks the alert as no longer active.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	alert, ok := h.loadAlert(w, r)
	if !ok {
		return
	}

	if err := h.storage.Alerts().Resolve(r.Context(), alert.ID); err != nil {
		log.Printf("resolve alert %s: %v", alert.ID, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	alert.Resolved = true
	log.Printf("alert resolved: %s by %s", alert.ID, middleware.GetUsername(r.Context()))
	jsonOK(w, toAlertResponse(alert))
}

func (h *Handler) loadAlert(w http.ResponseWriter, r *http.Request) (*models.Alert, bool) {
	id := chi.URLParam(r, "id")
	alert, err := h.storage.Alerts().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get alert %s: %v", id, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}
	if alert == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "alert not found")
		return nil, false
	}
	return alert, true
}
