package predictor

import (
	"errors"
	"testing"
	"time"
)

func at(hour int) time.Time {
	return time.Date(2026, 6, 1, hour, 30, 0, 0, time.UTC)
}

func TestHeuristicModelEstimate(t *testing.T) {
	tests := []struct {
		name string
		hour int
		want int
	}{
		{"evening peak start", 17, 400},
		{"last evening peak hour", 20, 400},
		{"evening peak end", 21, 100},
		{"lunch window start", 11, 250},
		{"last lunch hour", 13, 250},
		{"lunch window end", 14, 100},
		{"early morning", 6, 100},
		{"mid afternoon", 15, 100},
		{"late night", 23, 100},
		{"just before peak", 16, 100},
		{"just after peak", 22, 100},
	}
	var model HeuristicModel
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.Estimate("event-1", at(tt.hour))
			if err != nil {
				t.Fatalf("estimate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Estimate(hour=%d) = %d, want %d", tt.hour, got, tt.want)
			}
		})
	}
}

func TestServiceRequiresLoad(t *testing.T) {
	svc := NewService()
	if svc.Loaded() {
		t.Error("Loaded() = true before Load")
	}
	if _, err := svc.Estimate("event-1", at(12)); !errors.Is(err, ErrModelNotLoaded) {
		t.Fatalf("err = %v, want ErrModelNotLoaded", err)
	}

	svc.Load(HeuristicModel{})
	if !svc.Loaded() {
		t.Error("Loaded() = false after Load")
	}
	got, err := svc.Estimate("event-1", at(18))
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if got != 400 {
		t.Errorf("Estimate = %d, want 400", got)
	}
}
