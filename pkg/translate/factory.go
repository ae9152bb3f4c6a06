package translate

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// EngineType represents the type of generative-text engine to use.
type EngineType string

const (
	// EngineGemini uses the Google Gemini API as the backend.
	EngineGemini EngineType = "gemini"
	// EngineOpenRouter uses an OpenAI-compatible chat completions API (OpenRouter by default).
	EngineOpenRouter EngineType = "openrouter"
	// EngineOllama uses a self-hosted Ollama server.
	EngineOllama EngineType = "ollama"
)

// Config holds configuration for creating a Generator instance.
type Config struct {
	// Engine specifies which generative engine to use.
	Engine EngineType
	// BaseURL is the base URL for the engine API. Each engine has its own default.
	BaseURL string
	// APIKey authenticates against hosted engines. Ignored by Ollama.
	APIKey string
	// Model is the model name. Each engine has its own default.
	Model string
	// Timeout bounds a single upstream call. Zero uses the engine default.
	Timeout time.Duration
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// NewGenerator creates a new Generator instance based on the configuration.
func NewGenerator(cfg Config) (Generator, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	cfg.Logger.WithFields(logrus.Fields{
		"engine":   cfg.Engine,
		"base_url": cfg.BaseURL,
		"model":    cfg.Model,
	}).Info("Creating generator instance")

	switch cfg.Engine {
	case EngineGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini engine requires an API key")
		}
		return NewGeminiClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout, cfg.Logger), nil
	case EngineOpenRouter:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openrouter engine requires an API key")
		}
		return NewOpenRouterClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout, cfg.Logger), nil
	case EngineOllama:
		return NewOllamaClient(cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.Logger), nil
	default:
		cfg.Logger.WithFields(logrus.Fields{
			"engine": cfg.Engine,
		}).Error("Unknown generative engine")
		return nil, fmt.Errorf("unknown generative engine: %s", cfg.Engine)
	}
}

// ParseEngineType parses a string into an EngineType, ignoring case.
func ParseEngineType(s string) (EngineType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini":
		return EngineGemini, nil
	case "openrouter":
		return EngineOpenRouter, nil
	case "ollama":
		return EngineOllama, nil
	default:
		return "", fmt.Errorf("unknown engine type: %s (supported: gemini, openrouter, ollama)", s)
	}
}
