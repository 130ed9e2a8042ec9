// Package reorder converts a manual list reorder into a new priority score.
// The ricu score is a derived/display value; the backend's authoritative
// scoring inputs are reach/impact/confidence/urgency, so a manual reorder is
// translated back into an impact value that survives server-side
// recomputation.
package reorder

import (
	"math"

	"tableflip.dev/perch/pkg/task"
)

const (
	// MinScore is the lowest ricu a reorder may produce.
	MinScore = 0.51
	// MaxScore is the highest ricu a reorder may produce.
	MaxScore = 50
	// Step is the offset applied past the current top or bottom score.
	Step = 0.5

	// MinImpact and MaxImpact bound the back-solved impact input.
	MinImpact = 1
	MaxImpact = 10
)

// Score computes the new ricu for the task now sitting at index i, given the
// ricu scores of the visible list after the move (the moved task's old score
// still occupies position i). A single-element list keeps its score.
func Score(scores []float64, i int) float64 {
	n := len(scores)
	if n == 0 {
		return MinScore
	}
	if n == 1 {
		return scores[0]
	}

	var s float64
	switch {
	case i <= 0:
		s = math.Min(MaxScore, scores[1]+Step)
	case i >= n-1:
		s = math.Max(MinScore, scores[n-2]-Step)
	default:
		s = (scores[i-1] + scores[i+1]) / 2
	}
	return round2(clamp(s, MinScore, MaxScore))
}

// Result carries the values to persist after a reorder. RICU and Impact go
// to the backend in a single update so a partial write cannot leave the
// score inconsistent with its inputs.
type Result struct {
	RICU   float64
	Impact float64
}

// Apply back-solves the impact input for the task from its new ricu and the
// existing reach, confidence, and urgency, clamped to the valid impact
// range. A task with zero reach or confidence keeps its current impact.
func Apply(t *task.Task, newScore float64) Result {
	impact := t.Impact
	if rc := t.Reach * t.Confidence; rc != 0 {
		impact = newScore * t.Urgency / rc
	}
	return Result{
		RICU:   newScore,
		Impact: clamp(impact, MinImpact, MaxImpact),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
