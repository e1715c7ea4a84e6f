package mcp

import (
	"github.com/MRamiBalles/EternalSisyphus/server/internal/domain/sisyphus"
)

// StateInput defines the input for sisyphus_state tool.
type StateInput struct{}

// StateOutput defines the output for sisyphus_state tool.
type StateOutput struct {
	Cycle             int64            `json:"cycle" jsonschema:"Number of ticks since start"`
	Phase             string           `json:"phase" jsonschema:"Narrative phase derived from the cycle"`
	Direction         string           `json:"direction" jsonschema:"ascending or descending"`
	Progress          float64          `json:"progress" jsonschema:"Boulder position on the hill (0-1)"`
	Metrics           sisyphus.Metrics `json:"metrics" jsonschema:"Psychological metrics, each in [0,1]"`
	Severity          string           `json:"severity" jsonschema:"Despair severity: normal, elevated or critical"`
	Witnesses         int              `json:"witnesses" jsonschema:"Number of observers"`
	EscapeAttempts    int              `json:"escape_attempts" jsonschema:"Failed attempts to break the loop"`
	Paused            bool             `json:"paused" jsonschema:"Whether the loop is suspended"`
	Feedback          string           `json:"feedback" jsonschema:"Feedback of the last visitor action"`
	LastSystemMessage string           `json:"last_system_message,omitempty" jsonschema:"Most recent system override message"`
}

// ActInput defines the input for sisyphus_act tool.
type ActInput struct {
	Action string `json:"action" jsonschema:"One of encourage, philosophize, mock, requestTermination, witness, pause, reset"`
}

// ActOutput defines the output for sisyphus_act tool.
type ActOutput struct {
	Command   string `json:"command" jsonschema:"The command that was applied"`
	Feedback  string `json:"feedback,omitempty" jsonschema:"Visitor feedback text"`
	Witnesses int    `json:"witnesses,omitempty" jsonschema:"Observer count after a witness command"`
	Paused    *bool  `json:"paused,omitempty" jsonschema:"Paused flag after a pause command"`
	Cycle     int64  `json:"cycle" jsonschema:"Cycle at which the command was applied"`
}

// ThoughtsInput defines the input for sisyphus_thoughts tool.
type ThoughtsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of thoughts to return (default 10, max 20)"`
}

// ThoughtsOutput defines the output for sisyphus_thoughts tool.
type ThoughtsOutput struct {
	Thoughts []ThoughtItem `json:"thoughts" jsonschema:"Thoughts, newest first"`
	Count    int           `json:"count" jsonschema:"Number of thoughts returned"`
}

// ThoughtItem is one thought in tool output.
type ThoughtItem struct {
	Time   string `json:"time"`
	Cycle  int64  `json:"cycle"`
	Source string `json:"source"`
	Text   string `json:"text"`
}

// ReflectInput defines the input for sisyphus_reflect tool.
type ReflectInput struct {
	Wait bool `json:"wait,omitempty" jsonschema:"Wait for the thought service and return the resulting thought (default: false)"`
}

// ReflectOutput defines the output for sisyphus_reflect tool.
type ReflectOutput struct {
	Started bool   `json:"started" jsonschema:"Whether a reflection was started"`
	Thought string `json:"thought,omitempty" jsonschema:"The appended thought when wait is set"`
	Source  string `json:"source,omitempty" jsonschema:"reflection, or fallback when the service failed"`
}
