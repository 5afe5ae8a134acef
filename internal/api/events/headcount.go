package events

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/crowdwatch/internal/api/middleware"
	"github.com/good-yellow-bee/crowdwatch/internal/crowd"
	"github.com/good-yellow-bee/crowdwatch/internal/models"
	"github.com/good-yellow-bee/crowdwatch/internal/predictor"
)

// IngestRequest is a headcount observation submission.
type IngestRequest struct {
	Headcount int    `json:"headcount"`
	Source    string `json:"source"`
	// Timestamp is optional RFC3339; server time is used when absent.
	Timestamp string `json:"timestamp,omitempty"`
}

// IngestResponse is the outcome of recording an observation.
type IngestResponse struct {
	Snapshot *SnapshotResponse `json:"snapshot"`
	Status   string            `json:"status"`
	Alert    *models.Alert     `json:"alert,omitempty"`
	// Degraded is set when the observation was recorded but its alert
	// record could not be persisted.
	Degraded bool `json:"degraded,omitempty"`
}

// Ingest records a headcount observation for an event.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	var ts *time.Time
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "timestamp must be RFC3339")
			return
		}
		ts = &parsed
	}

	result, err := h.ingester.Ingest(r.Context(), chi.URLParam(r, "id"), req.Headcount, models.Source(req.Source), ts)
	if err != nil {
		jsonDomainError(w, err)
		return
	}

	jsonOK(w, &IngestResponse{
		Snapshot: toSnapshotResponse(result.Snapshot),
		Status:   string(result.Status),
		Alert:    result.Alert,
		Degraded: result.Degraded,
	})
}

// ScanRequest optionally overrides the headcount increment, e.g. a
// group entering on one scan.
type ScanRequest struct {
	Increment int `json:"increment,omitempty"`
}

// Scan records a QR self-report: it resolves the event by scan token
// and increments the latest headcount. Token knowledge is the only
// credential.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	increment := 1
	if r.Body != nil && r.ContentLength != 0 {
		var req ScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
			return
		}
		if req.Increment < 0 {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "increment must be non-negative")
			return
		}
		if req.Increment > 0 {
			increment = req.Increment
		}
	}

	token := chi.URLParam(r, "token")
	event, err := h.storage.Events().GetByQRToken(r.Context(), token)
	if err != nil {
		log.Printf("scan: get event by token: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if event == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "unknown scan token")
		return
	}

	result, err := h.ingester.IngestDelta(r.Context(), event.ID, increment, models.SourceQR)
	if err != nil {
		jsonDomainError(w, err)
		return
	}

	jsonOK(w, map[string]any{
		"event_name": event.Name,
		"headcount":  result.Snapshot.Headcount,
		"status":     string(result.Status),
	})
}

// ValidateRequest optionally carries an admin-confirmed headcount.
type ValidateRequest struct {
	Headcount *int `json:"headcount,omitempty"`
}

// Validate marks the event's headcount as admin-confirmed. When the
// request carries a headcount, it is recorded as an admin observation
// first, so the confirmation covers it.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	var req ValidateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
			return
		}
	}

	if req.Headcount != nil {
		if _, err := h.ingester.Ingest(r.Context(), event.ID, *req.Headcount, models.SourceAdmin, nil); err != nil {
			jsonDomainError(w, err)
			return
		}
	}

	now := time.Now()
	if err := h.storage.Events().SetLastValidated(r.Context(), event.ID, now); err != nil {
		log.Printf("validate event %s: %v", event.ID, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	event.LastValidatedAt = &now

	log.Printf("event validated: %s by %s", event.ID, middleware.GetUsername(r.Context()))
	jsonOK(w, toEventResponse(event, true))
}

// StatusResponse reports the current crowd level for an event.
type StatusResponse struct {
	EventID   string `json:"event_id"`
	Headcount int    `json:"headcount"`
	Status    string `json:"status"`
	// Source is "live" for a fresh snapshot, "predicted" when the last
	// snapshot was too old and the estimator answered, "stale" when the
	// estimator was unavailable and an old snapshot had to serve.
	Source string `json:"source"`
	AsOf   string `json:"as_of"`
}

// Status returns the event's current crowd level. Snapshots older than
// the policy's fallback age defer to the predictive estimator.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	latest, err := h.storage.Snapshots().Latest(r.Context(), event.ID)
	if err != nil {
		log.Printf("status: latest snapshot: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	now := time.Now()
	fallbackAge := h.ingester.Policy().Load().StatusFallbackAge

	if latest != nil && now.Sub(latest.Timestamp) <= fallbackAge {
		jsonOK(w, &StatusResponse{
			EventID:   event.ID,
			Headcount: latest.Headcount,
			Status:    string(crowd.ClassifyEvent(event, latest.Headcount)),
			Source:    "live",
			AsOf:      latest.Timestamp.Format(time.RFC3339),
		})
		return
	}

	estimate, err := h.predictor.Estimate(event.ID, now)
	if err != nil {
		if err != predictor.ErrModelNotLoaded {
			log.Printf("status: estimate for %s: %v", event.ID, err)
		}
		if latest == nil {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "no headcount data for event")
			return
		}
		jsonOK(w, &StatusResponse{
			EventID:   event.ID,
			Headcount: latest.Headcount,
			Status:    string(crowd.ClassifyEvent(event, latest.Headcount)),
			Source:    "stale",
			AsOf:      latest.Timestamp.Format(time.RFC3339),
		})
		return
	}

	jsonOK(w, &StatusResponse{
		EventID:   event.ID,
		Headcount: estimate,
		Status:    string(crowd.ClassifyEvent(event, estimate)),
		Source:    "predicted",
		AsOf:      now.Format(time.RFC3339),
	})
}

// History returns recent snapshots ordered by timestamp.
// Query: since (RFC3339, default 24h ago), limit (default 500).
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "since must be RFC3339")
			return
		}
		since = parsed
	}

	limit := 500
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed <= 0 {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	snaps, err := h.storage.Snapshots().Recent(r.Context(), event.ID, since, limit)
	if err != nil {
		log.Printf("history: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	items := make([]*SnapshotResponse, 0, len(snaps))
	for _, s := range snaps {
		items = append(items, toSnapshotResponse(s))
	}
	jsonOK(w, items)
}

// HeatmapBucket is one aggregated time slot.
type HeatmapBucket struct {
	Start        string `json:"start"`
	AvgHeadcount int    `json:"avg_headcount"`
	MaxHeadcount int    `json:"max_headcount"`
	Samples      int    `json:"samples"`
}

// Heatmap aggregates recent snapshots into fixed time buckets.
// Query: window (duration, default 24h), bucket (duration, default 1h).
func (h *Handler) Heatmap(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	window := 24 * time.Hour
	if s := r.URL.Query().Get("window"); s != "" {
		parsed, err := time.ParseDuration(s)
		if err != nil || parsed <= 0 {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "window must be a positive duration")
			return
		}
		window = parsed
	}
	bucket := time.Hour
	if s := r.URL.Query().Get("bucket"); s != "" {
		parsed, err := time.ParseDuration(s)
		if err != nil || parsed <= 0 {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "bucket must be a positive duration")
			return
		}
		bucket = parsed
	}
	if bucket > window {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "bucket must not exceed window")
		return
	}

	since := time.Now().Add(-window)
	snaps, err := h.storage.Snapshots().Recent(r.Context(), event.ID, since, 0)
	if err != nil {
		log.Printf("heatmap: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, buildHeatmap(snaps, since, bucket))
}

// buildHeatmap folds timestamp-ordered snapshots into buckets anchored
// at since. Empty buckets are omitted.
func buildHeatmap(snaps []*models.Snapshot, since time.Time, bucket time.Duration) []*HeatmapBucket {
	buckets := make([]*HeatmapBucket, 0)
	var cur *HeatmapBucket
	var curStart time.Time
	var sum int

	for _, s := range snaps {
		slot := s.Timestamp.Sub(since) / bucket
		start := since.Add(slot * bucket)
		if cur == nil || !start.Equal(curStart) {
			if cur != nil {
				cur.AvgHeadcount = sum / cur.Samples
				buckets = append(buckets, cur)
			}
			curStart = start
			cur = &HeatmapBucket{Start: start.Format(time.RFC3339)}
			sum = 0
		}
		cur.Samples++
		sum += s.Headcount
		if s.Headcount > cur.MaxHeadcount {
			cur.MaxHeadcount = s.Headcount
		}
	}
	if cur != nil {
		cur.AvgHeadcount = sum / cur.Samples
		buckets = append(buckets, cur)
	}
	return buckets
}
