package translate

import (
	"context"
	"fmt"
)

// Generator defines the interface for generative-text backends.
// This abstraction allows us to switch between different LLM providers
// (Gemini, OpenRouter, Ollama) without changing the relay or HTTP layers.
type Generator interface {
	// Name returns the engine name used in logs and metrics.
	Name() string

	// Generate sends a single prompt and returns the generated text unmodified.
	Generate(ctx context.Context, prompt string) (string, error)

	// CheckHealth verifies that the backend is reachable and the model exists.
	CheckHealth(ctx context.Context) error
}

// Mode selects which instruction is sent upstream.
type Mode string

const (
	// ModeTranslate asks for an accurate, tone-preserving translation.
	ModeTranslate Mode = "translate"
	// ModeSummary asks for a short, simple explanation.
	ModeSummary Mode = "summary"
)

// ParseMode maps a request mode onto a Mode. Only the exact value "summary"
// selects ModeSummary; anything else, including "Summary" and "", is a translation.
func ParseMode(s string) Mode {
	if s == string(ModeSummary) {
		return ModeSummary
	}
	return ModeTranslate
}

// BuildPrompt renders the instruction for text in the given mode.
// destination is inserted as given: a language name, a code, or a description like "Telugu (te)".
func BuildPrompt(text, destination string, mode Mode) string {
	switch mode {
	case ModeSummary:
		return fmt.Sprintf(
			"Explain the following text in the language %s using 2-3 simple sentences that "+
				"someone without any background knowledge can understand. "+
				"Respond only with the explanation.\n\nText:\n%s",
			destination, text)
	default:
		return fmt.Sprintf(
			"Translate the following text to the language %s accurately, preserving its original tone. "+
				"Respond only with the translation.\n\nText:\n%s",
			destination, text)
	}
}
