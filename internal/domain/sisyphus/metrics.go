// Package sisyphus defines the core domain entities of the eternal loop.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package sisyphus

import "math"

// Metric identifies one of the psychological state variables.
type Metric string

const (
	MetricDespair     Metric = "despair"
	MetricAwareness   Metric = "awareness"
	MetricResignation Metric = "resignation"
	MetricAbsurdity   Metric = "absurdity"
	MetricHope        Metric = "hope"
)

// Bounds is the closed interval a metric is clamped to.
type Bounds struct {
	Min float64
	Max float64
}

// metricBounds: hope never reaches zero, despair and resignation never reach one.
var metricBounds = map[Metric]Bounds{
	MetricDespair:     {Min: 0, Max: 0.99},
	MetricAwareness:   {Min: 0, Max: 1},
	MetricResignation: {Min: 0, Max: 0.99},
	MetricAbsurdity:   {Min: 0, Max: 1},
	MetricHope:        {Min: 0.01, Max: 1},
}

// BoundsOf returns the clamp interval for a metric.
func BoundsOf(m Metric) Bounds {
	return metricBounds[m]
}

// Metrics holds the five psychological values, each within its Bounds.
type Metrics struct {
	Despair     float64 `json:"despair"`
	Awareness   float64 `json:"awareness"`
	Resignation float64 `json:"resignation"`
	Absurdity   float64 `json:"absurdity"`
	Hope        float64 `json:"hope"`
}

// InitialMetrics returns the values every session starts with.
func InitialMetrics() Metrics {
	return Metrics{
		Despair:     0.1,
		Awareness:   0.3,
		Resignation: 0.0,
		Absurdity:   0.0,
		Hope:        0.8,
	}
}

func (m *Metrics) field(metric Metric) *float64 {
	switch metric {
	case MetricDespair:
		return &m.Despair
	case MetricAwareness:
		return &m.Awareness
	case MetricResignation:
		return &m.Resignation
	case MetricAbsurdity:
		return &m.Absurdity
	case MetricHope:
		return &m.Hope
	}
	return nil
}

// Get returns the current value of a metric.
func (m Metrics) Get(metric Metric) float64 {
	if f := m.field(metric); f != nil {
		return *f
	}
	return 0
}

// Set overwrites a metric, clamped to its bounds.
func (m *Metrics) Set(metric Metric, value float64) {
	f := m.field(metric)
	if f == nil {
		return
	}
	*f = clamp(value, metricBounds[metric])
}

// Adjust adds delta to a metric and clamps the result.
func (m *Metrics) Adjust(metric Metric, delta float64) {
	if f := m.field(metric); f != nil {
		m.Set(metric, *f+delta)
	}
}

// Scale multiplies a metric by factor and clamps the result.
func (m *Metrics) Scale(metric Metric, factor float64) {
	if f := m.field(metric); f != nil {
		m.Set(metric, *f*factor)
	}
}

// Percent renders a metric as a rounded whole percentage.
func (m Metrics) Percent(metric Metric) int {
	return int(math.Round(m.Get(metric) * 100))
}

// Severity classifies despair for display.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityElevated Severity = "elevated"
	SeverityCritical Severity = "critical"
)

// DespairSeverity buckets the despair level: above 0.7 is critical, above 0.4 elevated.
func (m Metrics) DespairSeverity() Severity {
	switch {
	case m.Despair > 0.7:
		return SeverityCritical
	case m.Despair > 0.4:
		return SeverityElevated
	default:
		return SeverityNormal
	}
}

func clamp(v float64, b Bounds) float64 {
	if math.IsNaN(v) {
		return b.Min
	}
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}
