package engine

import "github.com/repchat/internal/store"

// Per-turn delta bounds. Whatever score_change the assistant claims, the
// applied delta stays inside [DeltaMin, DeltaMax].
const (
	DeltaMin = -100
	DeltaMax = 100
)

// ClampDelta bounds a per-turn score change to [DeltaMin, DeltaMax].
func ClampDelta(delta int) int {
	if delta < DeltaMin {
		return DeltaMin
	}
	if delta > DeltaMax {
		return DeltaMax
	}
	return delta
}

// ApplyDelta returns the new score after applying an already-clamped delta,
// bounded to [store.ScoreMin, store.ScoreMax]. Pure and total.
func ApplyDelta(score, delta int) int {
	next := score + delta
	if next < store.ScoreMin {
		return store.ScoreMin
	}
	if next > store.ScoreMax {
		return store.ScoreMax
	}
	return next
}
