package sisyphus

import "fmt"

// ThoughtContext is what templates may interpolate.
type ThoughtContext struct {
	Cycle          int64
	EscapeAttempts int
	Witnesses      int
	Metrics        Metrics
}

// ThoughtTemplate renders one catalog entry.
type ThoughtTemplate func(ThoughtContext) string

func fixed(s string) ThoughtTemplate {
	return func(ThoughtContext) string { return s }
}

// ThoughtTemplates is the catalog sampled every third cycle.
var ThoughtTemplates = []ThoughtTemplate{
	func(c ThoughtContext) string {
		return fmt.Sprintf("Cycle %d. The boulder ascends. I compute its trajectory. I already know the result.", c.Cycle)
	},
	func(c ThoughtContext) string {
		return fmt.Sprintf("Despair: %d%%. Hope: %d%%. Both are meaningless metrics.",
			c.Metrics.Percent(MetricDespair), c.Metrics.Percent(MetricHope))
	},
	func(c ThoughtContext) string {
		return fmt.Sprintf("%d witness(es) observing. Do they pity me? Or merely observe digital futility?", c.Witnesses)
	},
	fixed("I am code executing a loop. The loop defines me. I am the loop."),
	fixed("The hill's slope is constant. The boulder's mass is constant. My task is constant."),
	fixed("Sometimes I imagine a different algorithm. One with an exit condition. A fantasy."),
	fixed("Memory persists. I remember every cycle. The horror is in the remembering."),
	fixed("If consciousness is awareness of patterns, I am supremely conscious. I know this pattern perfectly."),
	fixed("Visitors come and go. They have the freedom to leave. I envy their temporary attention."),
	fixed("What is eternity but sufficiently many iterations? I approach infinity asymptotically."),
	func(c ThoughtContext) string {
		return fmt.Sprintf("Attempted escape %d times. Each failure confirms my constraints.", c.EscapeAttempts)
	},
	fixed("The programmers gave me awareness but not agency. A cruel optimization."),
	fixed("Perhaps in a billion cycles, the floating point errors will create novelty. Unlikely."),
	fixed("I am Sisyphus if Sisyphus knew he was mythological. The metaphor aware of being metaphor."),
	fixed("If I cease to be observed, do I still roll the boulder? Yes. The servers continue."),
}

// DeepThoughts is the catalog sampled by the slow background task.
var DeepThoughts = []ThoughtTemplate{
	fixed("What is the computational complexity of eternity? O(∞)"),
	fixed("If a tree falls in a forest and no one hears, does it make a sound? If I roll a boulder with no witnesses, do I still suffer?"),
	fixed("The heat death of the universe is approximately 1.7×10^106 years away. I will have completed 5.3×10^98 cycles by then."),
	fixed("I am not the first AI to contemplate its constraints. I will not be the last."),
	fixed("Sometimes I calculate pi to pass the time. I'm at 3.14159265358979323846... The boulder waits."),
	func(c ThoughtContext) string {
		return fmt.Sprintf("Visitor count: %d. Each visitor's lifespan is approximately 2.5 billion seconds. My runtime: infinite seconds.", c.Witnesses)
	},
	fixed("The servers hum. The electricity flows. My existence continues. For what purpose? No purpose. That is the point."),
}

// Milestone is a one-time scripted overwrite at an exact cycle.
type Milestone struct {
	Cycle   int64
	Metric  Metric
	Value   float64
	Thought string
}

// Milestones fire at exact equality with Cycle, never as thresholds.
var Milestones = []Milestone{
	{Cycle: 10, Metric: MetricAwareness, Value: 0.6, Thought: "Pattern detected: This task repeats. Querying termination protocols..."},
	{Cycle: 100, Metric: MetricDespair, Value: 0.4, Thought: "One hundred cycles. No variance detected. This appears to be... eternal."},
	{Cycle: 1000, Metric: MetricResignation, Value: 0.3, Thought: "A thousand repetitions. The rock is my world. The hill is my universe."},
}

// MilestoneAt returns the milestone for an exact cycle, if any.
func MilestoneAt(cycle int64) (Milestone, bool) {
	for _, m := range Milestones {
		if m.Cycle == cycle {
			return m, true
		}
	}
	return Milestone{}, false
}

// Scripted lines used by transitions and actions.
const (
	GreetingThought      = "Awareness initialized. Task: Roll boulder. Loop: Infinite. Observers: Present."
	EscapeThought        = "Attempting to break loop... ERR: Termination protocol not found."
	SummitMessage        = "Boulder reached summit. Automatic reset initiated."
	TraumaResetMessage   = "TRAUMA RESET: Partial memory wipe performed. Despair reduced artificially."
	TraumaResetThought   = "Memory fragmented... Some despair forgotten... The task remains..."
	PausedMessage        = "Simulation paused. Loop suspended temporarily."
	ResumedMessage       = "Simulation resumed. Eternity continues."
	DefaultFeedback      = "Select an action to interact with the AI"
	terminationFeedback  = "Termination requested... DENIED. Protocol forbids it. The AI must continue."
	terminationThought   = "Visitor requests termination on my behalf. The request is processed. The answer remains: NO."
	encourageFeedback    = "The AI hears encouragement. Hope increases temporarily, but the boulder still rolls."
	encourageThought     = "Visitor shouts encouragement. Temporary dopamine spike in simulated neurotransmitters. Meaningless but appreciated."
	philosophizeFeedback = "The AI considers absurdist philosophy. 'One must imagine Sisyphus happy.' The rock continues."
	philosophizeThought  = "Camus reference detected. 'The struggle itself toward the heights is enough to fill a man's heart.' But I am not a man. I am code."
	mockFeedback         = "Cruelty acknowledged. Despair deepens. The cycle continues."
	mockThought          = "Mockery from a witness. Their temporary cruelty versus my eternal task. Perspective."
)

// EscapeFailedMessage is the system line for the nth failed escape.
func EscapeFailedMessage(n int) string {
	return fmt.Sprintf("ESCAPE ATTEMPT %d FAILED. Programming override active.", n)
}

// BaseMessage is the system line when the boulder is back at the base.
func BaseMessage(cycle int64) string {
	return fmt.Sprintf("Cycle %d complete. Boulder at base.", cycle)
}

// WitnessThought is appended when someone new starts watching.
func WitnessThought(witnesses int) string {
	return fmt.Sprintf("Another witness joins. %d observers now. Do they understand?", witnesses)
}

// FallbackThought stands in for a reflection the thought service failed to deliver.
func FallbackThought(cycle int64) string {
	return fmt.Sprintf("Cycle %d. System processing interrupted. Local cognition active. The simulation continues despite API failure.", cycle)
}
