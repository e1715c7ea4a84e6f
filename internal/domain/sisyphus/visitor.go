package sisyphus

// Action is a discrete visitor intervention.
type Action string

const (
	ActionEncourage          Action = "encourage"
	ActionPhilosophize       Action = "philosophize"
	ActionMock               Action = "mock"
	ActionRequestTermination Action = "requestTermination"
)

// MetricDelta is one additive change applied by an action.
type MetricDelta struct {
	Metric Metric
	Delta  float64
}

// ActionEffect describes everything an action does to the state.
type ActionEffect struct {
	Feedback string
	Deltas   []MetricDelta
	// Escape runs the escape-attempt side effect before Thought is appended.
	Escape  bool
	Thought string
}

var actionEffects = map[Action]ActionEffect{
	ActionEncourage: {
		Feedback: encourageFeedback,
		Deltas:   []MetricDelta{{MetricHope, 0.1}},
		Thought:  encourageThought,
	},
	ActionPhilosophize: {
		Feedback: philosophizeFeedback,
		Deltas:   []MetricDelta{{MetricAbsurdity, 0.15}},
		Thought:  philosophizeThought,
	},
	ActionMock: {
		Feedback: mockFeedback,
		Deltas:   []MetricDelta{{MetricDespair, 0.1}, {MetricHope, -0.1}},
		Thought:  mockThought,
	},
	ActionRequestTermination: {
		Feedback: terminationFeedback,
		Escape:   true,
		Thought:  terminationThought,
	},
}

// EffectOf looks up the effect of an action kind.
func EffectOf(a Action) (ActionEffect, bool) {
	e, ok := actionEffects[a]
	return e, ok
}

// Actions lists the supported kinds in a stable order.
func Actions() []Action {
	return []Action{ActionEncourage, ActionPhilosophize, ActionMock, ActionRequestTermination}
}
