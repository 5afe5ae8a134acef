// Package events provides HTTP handlers for event CRUD, headcount
// ingestion, status reports, history, and QR scan endpoints.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/crowdwatch/internal/api/middleware"
	"github.com/good-yellow-bee/crowdwatch/internal/crowd"
	"github.com/good-yellow-bee/crowdwatch/internal/models"
	"github.com/good-yellow-bee/crowdwatch/internal/predictor"
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
	errCodeBadRequest         = "BAD_REQUEST"
	errCodeValidationFailed   = "VALIDATION_FAILED"
	errCodeNotFound           = "NOT_FOUND"
	errCodeInternalError      = "INTERNAL_ERROR"
	errCodeStorageTimeout     = "STORAGE_TIMEOUT"
	errCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
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

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// jsonDomainError maps ingestion pipeline errors to HTTP responses.
func jsonDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		// The client is gone; the response will never be read.
		return
	case errors.Is(err, crowd.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
	case errors.Is(err, crowd.ErrNotFound):
		jsonError(w, http.StatusNotFound, errCodeNotFound, "event not found")
	case errors.Is(err, crowd.ErrStorageTimeout):
		jsonError(w, http.StatusGatewayTimeout, errCodeStorageTimeout, "storage operation timed out")
	case errors.Is(err, crowd.ErrStorageUnavailable):
		jsonError(w, http.StatusServiceUnavailable, errCodeStorageUnavailable, "storage temporarily unavailable")
	default:
		log.Printf("events handler error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
	}
}

// EventResponse is an event as returned by the API.
type EventResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Date             string `json:"date,omitempty"`
	SafeThreshold    int    `json:"safe_threshold"`
	CrowdedThreshold int    `json:"crowded_threshold"`
	LastValidatedAt  string `json:"last_validated_at,omitempty"`
	QRToken          string `json:"qr_token,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func toEventResponse(e *models.Event, includeToken bool) *EventResponse {
	resp := &EventResponse{
		ID:               e.ID,
		Name:             e.Name,
		SafeThreshold:    e.SafeThreshold,
		CrowdedThreshold: e.CrowdedThreshold,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        e.UpdatedAt.Format(time.RFC3339),
	}
	if e.Date != nil {
		resp.Date = e.Date.Format("2006-01-02")
	}
	if e.LastValidatedAt != nil {
		resp.LastValidatedAt = e.LastValidatedAt.Format(time.RFC3339)
	}
	if includeToken {
		resp.QRToken = e.QRToken
	}
	return resp
}

// SnapshotResponse is a headcount observation as returned by the API.
type SnapshotResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	Headcount int    `json:"headcount"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

func toSnapshotResponse(s *models.Snapshot) *SnapshotResponse {
	return &SnapshotResponse{
		ID:        s.ID,
		EventID:   s.EventID,
		Headcount: s.Headcount,
		Source:    string(s.Source),
		Timestamp: s.Timestamp.Format(time.RFC3339Nano),
	}
}

// Handler handles event endpoints.
type Handler struct {
	storage   storage.Storage
	ingester  *crowd.Coordinator
	predictor *predictor.Service
}

// NewHandler creates a new events handler.
func NewHandler(store storage.Storage, coord *crowd.Coordinator, pred *predictor.Service) *Handler {
	return &Handler{
		storage:   store,
		ingester:  coord,
		predictor: pred,
	}
}

// Request types
type CreateRequest struct {
	Name             string `json:"name"`
	Date             string `json:"date,omitempty"`
	SafeThreshold    int    `json:"safe_threshold"`
	CrowdedThreshold int    `json:"crowded_threshold"`
}

type UpdateRequest struct {
	Name             *string `json:"name,omitempty"`
	Date             *string `json:"date,omitempty"`
	SafeThreshold    *int    `json:"safe_threshold,omitempty"`
	CrowdedThreshold *int    `json:"crowded_threshold,omitempty"`
}

// List returns all events.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.storage.Events().List(r.Context())
	if err != nil {
		log.Printf("list events: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	manage := middleware.GetRole(r.Context()) != models.RoleViewer
	items := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, toEventResponse(e, manage))
	}
	jsonOK(w, items)
}

// Create creates a new event. The QR token is minted by storage.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if err := ValidateName(req.Name); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateThresholds(req.SafeThreshold, req.CrowdedThreshold); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	event := models.NewEvent(req.Name, req.SafeThreshold, req.CrowdedThreshold)
	event.ID = uuid.New().String()
	if req.Date != "" {
		date, err := ParseDate(req.Date)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		event.Date = &date
	}

	if err := h.storage.Events().Create(r.Context(), event); err != nil {
		log.Printf("create event: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("event created: %s (%s)", event.Name, event.ID)
	jsonCreated(w, toEventResponse(event, true))
}

// GetByID returns a single event.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	manage := middleware.GetRole(r.Context()) != models.RoleViewer
	jsonOK(w, toEventResponse(event, manage))
}

// Update modifies an event's name, date, or thresholds.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		if err := ValidateName(*req.Name); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		event.Name = *req.Name
	}
	if req.Date != nil {
		if *req.Date == "" {
			event.Date = nil
		} else {
			date, err := ParseDate(*req.Date)
			if err != nil {
				jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
				return
			}
			event.Date = &date
		}
	}
	if req.SafeThreshold != nil {
		event.SafeThreshold = *req.SafeThreshold
	}
	if req.CrowdedThreshold != nil {
		event.CrowdedThreshold = *req.CrowdedThreshold
	}
	if err := ValidateThresholds(event.SafeThreshold, event.CrowdedThreshold); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	event.UpdatedAt = time.Now()
	if err := h.storage.Events().Update(r.Context(), event); err != nil {
		log.Printf("update event: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, toEventResponse(event, true))
}

// Delete removes an event and its snapshots and alerts.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	if err := h.storage.Events().Delete(r.Context(), event.ID); err != nil {
		log.Printf("delete event: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("event deleted: %s (%s)", event.Name, event.ID)
	jsonNoContent(w)
}

// loadEvent resolves the {id} URL parameter. Writes the error response
// itself when the event cannot be loaded.
func (h *Handler) loadEvent(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	id := chi.URLParam(r, "id")
	event, err := h.storage.Events().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get event %s: %v", id, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return nil, false
	}
	if event == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "event not found")
		return nil, false
	}
	return event, true
}
