package sisyphus

// ReflectionRequest is the slice of state sent to the thought service.
type ReflectionRequest struct {
	AttemptCount int64
	Despair      float64
	Awareness    float64
	Resignation  float64
}

// StateEvolution is the metric drift suggested alongside a reflected thought.
type StateEvolution struct {
	DespairDelta     float64 `json:"despairDelta"`
	AwarenessDelta   float64 `json:"awarenessDelta"`
	ResignationDelta float64 `json:"resignationDelta"`
}

// Reflection is a thought produced outside the engine.
type Reflection struct {
	Thought   string
	Evolution StateEvolution
	Model     string
	Tokens    int
}

// ApplyEvolution adds the deltas and clamps every touched metric.
func (m *Metrics) ApplyEvolution(ev StateEvolution) {
	m.Adjust(MetricDespair, ev.DespairDelta)
	m.Adjust(MetricAwareness, ev.AwarenessDelta)
	m.Adjust(MetricResignation, ev.ResignationDelta)
}
