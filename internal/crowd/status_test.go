package crowd

import (
	"math/rand"
	"testing"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		headcount int
		safe      int
		crowded   int
		want      models.Status
	}{
		{"well below safe", 10, 100, 200, models.StatusGreen},
		{"zero headcount", 0, 100, 200, models.StatusGreen},
		{"just below safe", 99, 100, 200, models.StatusGreen},
		{"exactly safe", 100, 100, 200, models.StatusYellow},
		{"between thresholds", 150, 100, 200, models.StatusYellow},
		{"just below crowded", 199, 100, 200, models.StatusYellow},
		{"exactly crowded", 200, 100, 200, models.StatusRed},
		{"above crowded", 500, 100, 200, models.StatusRed},
		{"equal thresholds", 100, 100, 100, models.StatusRed},
		{"malformed thresholds prefer red", 60, 100, 50, models.StatusRed},
		{"zero thresholds", 0, 0, 0, models.StatusRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.headcount, tt.safe, tt.crowded)
			if got != tt.want {
				t.Errorf("Classify(%d, %d, %d) = %v, want %v",
					tt.headcount, tt.safe, tt.crowded, got, tt.want)
			}
		})
	}
}

// TestClassifyRandomized checks the band boundaries over randomized
// threshold pairs respecting crowded >= safe >= 0.
func TestClassifyRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		safe := rng.Intn(1000)
		crowded := safe + rng.Intn(1000)
		headcount := rng.Intn(3000)

		got := Classify(headcount, safe, crowded)

		var want models.Status
		switch {
		case headcount >= crowded:
			want = models.StatusRed
		case headcount >= safe:
			want = models.StatusYellow
		default:
			want = models.StatusGreen
		}

		if got != want {
			t.Fatalf("Classify(%d, %d, %d) = %v, want %v", headcount, safe, crowded, got, want)
		}
	}
}
