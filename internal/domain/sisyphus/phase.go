package sisyphus

import "math"

// Phase is a display label derived from the cycle count. It is never stored.
type Phase struct {
	Name string `json:"name"`
	Max  int64  `json:"max"`
}

// Phases in order. The last one is unbounded.
var Phases = []Phase{
	{Name: "INITIALIZATION", Max: 10},
	{Name: "CONFUSION", Max: 100},
	{Name: "REALIZATION", Max: 1000},
	{Name: "DESPAIR", Max: 10000},
	{Name: "RESIGNATION", Max: 50000},
	{Name: "ETERNITY", Max: math.MaxInt64},
}

// PhaseFor returns the first phase whose upper bound covers cycle.
func PhaseFor(cycle int64) Phase {
	for _, p := range Phases {
		if cycle <= p.Max {
			return p
		}
	}
	return Phases[len(Phases)-1]
}
