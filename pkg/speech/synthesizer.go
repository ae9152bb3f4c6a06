package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// MediaType is the content type of every payload a Synthesizer returns.
const MediaType = "audio/mpeg"

// Synthesizer defines the interface for text-to-speech backends.
type Synthesizer interface {
	// Name returns the engine name used in logs and metrics.
	Name() string

	// Synthesize converts text to MP3 audio using the given voice code (e.g., "te").
	// It returns the complete payload or an error; never a partial stream.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)

	// CheckHealth verifies that the backend is reachable.
	CheckHealth(ctx context.Context) error
}

// EngineType represents the type of TTS engine to use.
type EngineType string

const (
	// EngineGoogle uses the Google Translate speech endpoint.
	EngineGoogle EngineType = "google"
	// EnginePolly uses Amazon Polly.
	EnginePolly EngineType = "polly"
)

// Config holds configuration for creating a Synthesizer instance.
type Config struct {
	// Engine specifies which TTS engine to use.
	Engine EngineType
	// BaseURL overrides the Google Translate host. Ignored by Polly.
	BaseURL string
	// Region is the AWS region for Polly. Empty uses the SDK's environment lookup.
	Region string
	// Timeout bounds a single upstream call. Zero uses the engine default.
	Timeout time.Duration
	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// NewSynthesizer creates a new Synthesizer instance based on the configuration.
func NewSynthesizer(cfg Config) (Synthesizer, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	cfg.Logger.WithFields(logrus.Fields{
		"engine":   cfg.Engine,
		"base_url": cfg.BaseURL,
		"region":   cfg.Region,
	}).Info("Creating synthesizer instance")

	switch cfg.Engine {
	case EngineGoogle:
		return NewGoogleClient(cfg.BaseURL, cfg.Timeout, cfg.Logger), nil
	case EnginePolly:
		client, err := NewPollyClient(cfg.Region, cfg.Timeout, cfg.Logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown tts engine: %s", cfg.Engine)
	}
}

// ParseEngineType parses a string into an EngineType, ignoring case.
func ParseEngineType(s string) (EngineType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "google", "gtts":
		return EngineGoogle, nil
	case "polly":
		return EnginePolly, nil
	default:
		return "", fmt.Errorf("unknown tts engine type: %s (supported: google, polly)", s)
	}
}
