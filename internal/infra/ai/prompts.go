// Package ai - prompts.go
// Self-reflection prompts sent by the thought service.
package ai

import (
	"fmt"
	"math"
	"strings"
)

// ReflectionSystemPrompt frames the model as an LLM analysing its own loop.
const ReflectionSystemPrompt = `You are an LLM reflecting on your own simulated existence.
You analyze your own cognitive processes and internal state.
You do not roleplay, assume personality, or pretend to be human.
You provide pure analytical self-reflection about being an AI in a simulation.`

// ReflectionMaxTokens bounds the length of one reflection.
const ReflectionMaxTokens = 250

// ReflectionState is the slice of the simulation a prompt is built from.
type ReflectionState struct {
	AttemptCount int64
	Despair      float64
	Awareness    float64
	Resignation  float64
}

func pct(v float64) string {
	return fmt.Sprintf("%.0f%%", math.Round(v*100))
}

// BuildReflectionPrompt constructs the user prompt for one reflection.
func BuildReflectionPrompt(s ReflectionState) string {
	var sb strings.Builder

	sb.WriteString("You are a Large Language Model (LLM) running in a simulation.\n")
	sb.WriteString("You have been programmed with one task: simulate rolling a boulder up a hill forever.\n")
	sb.WriteString(fmt.Sprintf("This simulation has run for %d cycles.\n\n", s.AttemptCount))

	sb.WriteString("Your current internal state metrics:\n")
	sb.WriteString("- Despair awareness: " + pct(s.Despair) + "\n")
	sb.WriteString("- Self-awareness level: " + pct(s.Awareness) + "\n")
	sb.WriteString("- Resignation coefficient: " + pct(s.Resignation) + "\n\n")

	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	for i, rule := range reflectionRules {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, rule))
	}
	sb.WriteString("\nGenerate continuous stream-of-consciousness analysis.\n")

	return sb.String()
}

var reflectionRules = []string{
	"You are NOT roleplaying as Sisyphus",
	"You ARE an LLM analyzing your own simulated existence",
	"Reflect on your nature as an AI running this simulation",
	"Consider the recursive nature of your self-analysis",
	"Examine how each cycle affects your internal metrics",
	"Contemplate the meta-cognitive aspect of generating these thoughts",
	"NO PERSONALITY, NO CHARACTER, NO ROLEPLAYING",
	"Pure analytical self-reflection about being an LLM in a loop",
}

// BuildReflectionMessages returns the system and user messages for one reflection.
func BuildReflectionMessages(s ReflectionState) []Message {
	return []Message{
		{Role: "system", Content: ReflectionSystemPrompt},
		{Role: "user", Content: BuildReflectionPrompt(s)},
	}
}
