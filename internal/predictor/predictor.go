// Package predictor estimates crowd levels for events whose live data
// has gone quiet. The estimator stands in for a trained model; status
// reports fall back to it when the latest snapshot is too old.
package predictor

import (
	"errors"
	"sync"
	"time"
)

// ErrModelNotLoaded is returned when an estimate is requested before
// the model has been loaded.
var ErrModelNotLoaded = errors.New("prediction model not loaded")

// Estimator produces a headcount estimate for an event at a point in
// time.
type Estimator interface {
	Estimate(eventID string, at time.Time) (int, error)
}

// baseAttendance anchors the time-of-day heuristic.
const baseAttendance = 50

// HeuristicModel estimates attendance from time of day. Evening peak
// hours weigh heaviest, the lunch window moderately, everything else
// counts as off-peak.
type HeuristicModel struct{}

// Estimate returns the heuristic headcount for the given time.
func (HeuristicModel) Estimate(_ string, at time.Time) (int, error) {
	hour := at.Hour()
	switch {
	case hour >= 17 && hour < 21:
		return baseAttendance * 8, nil
	case hour >= 11 && hour < 14:
		return baseAttendance * 5, nil
	default:
		return baseAttendance * 2, nil
	}
}

// Service wraps an Estimator behind an explicit load step, mirroring a
// model artifact that must be read before use. Load is idempotent.
type Service struct {
	mu    sync.RWMutex
	model Estimator
}

// NewService returns a service with no model loaded.
func NewService() *Service {
	return &Service{}
}

// Load installs the estimator. Called once at startup.
func (s *Service) Load(model Estimator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
}

// Loaded reports whether a model is available.
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// Estimate delegates to the loaded model.
func (s *Service) Estimate(eventID string, at time.Time) (int, error) {
	s.mu.RLock()
	model := s.model
	s.mu.RUnlock()
	if model == nil {
		return 0, ErrModelNotLoaded
	}
	return model.Estimate(eventID, at)
}
