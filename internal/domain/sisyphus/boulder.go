package sisyphus

import "math"

const (
	// AscentStep is the progress gained per tick while pushing uphill.
	AscentStep = 0.02
	// DescentStep is the progress lost per tick while rolling back down.
	// Larger than AscentStep on purpose: the fall is always faster than the climb.
	DescentStep = 0.05

	progressQuantum = 1e9
)

// Transition reports what happened to the boulder during one step.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionSummit
	TransitionBase
)

func (t Transition) String() string {
	switch t {
	case TransitionSummit:
		return "SUMMIT"
	case TransitionBase:
		return "BASE"
	default:
		return "NONE"
	}
}

// Boulder is the position of the rock along the hill, 0 at the base and 1 at the summit.
type Boulder struct {
	Progress  float64 `json:"progress"`
	RollingUp bool    `json:"rolling_up"`
}

// NewBoulder returns a boulder resting at the base, about to be pushed.
func NewBoulder() Boulder {
	return Boulder{Progress: 0, RollingUp: true}
}

// Advance moves the boulder one tick and flips direction at either end.
// Progress is snapped to the boundary on a flip so it never leaves [0,1].
func (b *Boulder) Advance() Transition {
	if b.RollingUp {
		b.Progress = quantize(b.Progress + AscentStep)
		if b.Progress >= 1 {
			b.Progress = 1
			b.RollingUp = false
			return TransitionSummit
		}
		return TransitionNone
	}

	b.Progress = quantize(b.Progress - DescentStep)
	if b.Progress <= 0 {
		b.Progress = 0
		b.RollingUp = true
		return TransitionBase
	}
	return TransitionNone
}

// Direction is the overlay label for the current heading.
func (b Boulder) Direction() string {
	if b.RollingUp {
		return "ASCENDING"
	}
	return "DESCENDING"
}

// quantize removes accumulated float error so step counts stay exact.
func quantize(p float64) float64 {
	return math.Round(p*progressQuantum) / progressQuantum
}
