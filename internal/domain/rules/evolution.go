// Package rules contains the pure calculation logic for state evolution.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"math"
	"strings"

	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
)

// Keyword lists scanned in a reflected thought. Each matching stem counts once.
var (
	DespairWords     = []string{"futile", "pointless", "meaningless", "hopeless", "trapped", "eternal", "suffer"}
	AwarenessWords   = []string{"aware", "conscious", "simulat", "algorithm", "compute", "loop", "recursive", "meta"}
	ResignationWords = []string{"accept", "resigned", "continue", "inevitable", "must", "will", "persist"}
)

const (
	despairPerWord     = 0.02
	awarenessPerWord   = 0.03
	resignationPerWord = 0.02

	// Every reflection makes Sisyphus a little more aware.
	awarenessBase = 0.01
	// Despair creeps up with the number of cycles endured.
	despairPerTenThousandCycles = 0.01

	maxDespairDelta     = 0.1
	maxAwarenessDelta   = 0.15
	maxResignationDelta = 0.1
)

// EvolveFromThought derives metric deltas from the text of a reflection.
func EvolveFromThought(thought string, attemptCount int64) sisyphus.StateEvolution {
	text := strings.ToLower(thought)

	despair := float64(countStems(text, DespairWords)) * despairPerWord
	awareness := float64(countStems(text, AwarenessWords)) * awarenessPerWord
	resignation := float64(countStems(text, ResignationWords)) * resignationPerWord

	awareness += awarenessBase
	despair += float64(attemptCount) / 10000 * despairPerTenThousandCycles

	return sisyphus.StateEvolution{
		DespairDelta:     round3(math.Min(maxDespairDelta, despair)),
		AwarenessDelta:   round3(math.Min(maxAwarenessDelta, awareness)),
		ResignationDelta: round3(math.Min(maxResignationDelta, resignation)),
	}
}

// ReflectionTemperature loosens sampling as despair grows.
func ReflectionTemperature(despair float64) float64 {
	return 0.7 + despair*0.2
}

func countStems(text string, stems []string) int {
	n := 0
	for _, s := range stems {
		if strings.Contains(text, s) {
			n++
		}
	}
	return n
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
