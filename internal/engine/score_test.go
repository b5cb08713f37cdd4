package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/repchat/internal/store"
)

func TestClampDelta(t *testing.T) {
	tests := []struct {
		name  string
		delta int
		want  int
	}{
		{"zero", 0, 0},
		{"inside bounds", 42, 42},
		{"negative inside bounds", -42, -42},
		{"at upper bound", 100, 100},
		{"at lower bound", -100, -100},
		{"above upper bound", 101, 100},
		{"far above upper bound", 100000, 100},
		{"below lower bound", -101, -100},
		{"far below lower bound", -100000, -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampDelta(tt.delta))
		})
	}
}

func TestApplyDelta(t *testing.T) {
	assert.Equal(t, 10, ApplyDelta(0, 10))
	assert.Equal(t, 0, ApplyDelta(0, -10))
	assert.Equal(t, 1000, ApplyDelta(995, 50))
	assert.Equal(t, 1000, ApplyDelta(1000, 100))
	assert.Equal(t, 900, ApplyDelta(1000, -100))
	assert.Equal(t, 0, ApplyDelta(5, -100))
}

// The applied result stays bounded for every score in range and any
// delta, and the clamped delta itself stays within its own bounds.
func TestApplyDelta_BoundsProperty(t *testing.T) {
	for score := store.ScoreMin; score <= store.ScoreMax; score += 37 {
		for delta := -1000; delta <= 1000; delta += 61 {
			clamped := ClampDelta(delta)
			if clamped < DeltaMin || clamped > DeltaMax {
				t.Fatalf("ClampDelta(%d) = %d outside [%d,%d]", delta, clamped, DeltaMin, DeltaMax)
			}

			got := ApplyDelta(score, clamped)
			if got < store.ScoreMin || got > store.ScoreMax {
				t.Fatalf("ApplyDelta(%d, %d) = %d outside [%d,%d]",
					score, clamped, got, store.ScoreMin, store.ScoreMax)
			}
		}
	}
}
