package notifier

import (
	"strings"
	"testing"
	"time"
)

func TestTemplates_RenderPlain(t *testing.T) {
	tmpls, err := LoadTemplates()
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}

	data := ToTemplateData(testNotification())
	body, err := tmpls.RenderPlain(&data)
	if err != nil {
		t.Fatalf("RenderPlain: %v", err)
	}

	for _, want := range []string{"Main Hall", "CAPACITY", "250", "Red"} {
		if !strings.Contains(body, want) {
			t.Errorf("plain body missing %q:\n%s", want, body)
		}
	}
}

func TestTemplates_RenderHTML(t *testing.T) {
	tmpls, err := LoadTemplates()
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}

	data := ToTemplateData(testNotification())
	body, err := tmpls.RenderHTML(&data)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}

	if !strings.Contains(body, "Main Hall") {
		t.Error("HTML body missing event name")
	}
	if !strings.Contains(body, "#d32f2f") {
		t.Error("capacity alert should use the red accent color")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{MaxPerWindow: 1, Enabled: false})
	for i := 0; i < 10; i++ {
		if !r.Allow() {
			t.Fatal("disabled limiter should always allow")
		}
	}
	if r.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", r.Dropped())
	}
}

func TestRateLimiter_EnforcesWindow(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{MaxPerWindow: 3, Window: time.Minute, Enabled: true})
	for i := 0; i < 3; i++ {
		if !r.Allow() {
			t.Fatalf("allow %d should pass", i)
		}
	}
	if r.Allow() {
		t.Error("fourth notification should be dropped")
	}
	if r.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", r.Dropped())
	}
}
