package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dasmlab/bhasha/pkg/language"
	"github.com/dasmlab/bhasha/pkg/translate"
	"github.com/sirupsen/logrus"
)

// DefaultDestination is used when a translation request names no destination.
const DefaultDestination = "en"

// TranslationRequest is one translate or summary request.
type TranslationRequest struct {
	Text        string `json:"text"`
	Destination string `json:"dest"`
	Mode        string `json:"mode,omitempty"`
}

// TranslationResult carries the generated text exactly as the backend returned it.
type TranslationResult struct {
	TranslatedText string `json:"translated_text"`
}

// TranslationService relays translation and summary requests to a generative backend.
// It holds no per-request state and is safe for concurrent use.
type TranslationService struct {
	// Generator is the generative-text backend (Gemini, OpenRouter or Ollama).
	Generator translate.Generator

	// Languages resolves destination codes to names for the prompt.
	Languages *language.Table

	// Logger for service operations.
	Logger *logrus.Logger

	metrics *MetricsCollector
}

// NewTranslationService creates a new TranslationService instance.
func NewTranslationService(generator translate.Generator, languages *language.Table, logger *logrus.Logger) *TranslationService {
	if logger == nil {
		logger = logrus.New()
	}
	if languages == nil {
		languages = language.Default()
	}

	return &TranslationService{
		Generator: generator,
		Languages: languages,
		Logger:    logger,
		metrics:   NewMetricsCollector("translate", generator.Name()),
	}
}

// Translate builds the instruction for the request's mode and sends it upstream in one call.
// Upstream failures are returned as *RelayError.
func (s *TranslationService) Translate(ctx context.Context, req TranslationRequest) (*TranslationResult, error) {
	dest := strings.TrimSpace(req.Destination)
	if dest == "" {
		dest = DefaultDestination
	}
	mode := translate.ParseMode(req.Mode)
	destination := s.Languages.Describe(dest)

	s.Logger.WithFields(logrus.Fields{
		"engine":      s.Generator.Name(),
		"mode":        mode,
		"destination": destination,
		"text_length": len(req.Text),
	}).Info("Translate request received")
	s.metrics.RecordMode(string(mode))

	startTime := time.Now()
	out, err := s.Generator.Generate(ctx, translate.BuildPrompt(req.Text, destination, mode))
	duration := time.Since(startTime)
	if err != nil {
		s.metrics.RecordRequest(duration, false, len(req.Text), 0)
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"engine":      s.Generator.Name(),
			"mode":        mode,
			"duration_ms": duration.Milliseconds(),
		}).Error("Translation failed")
		return nil, &RelayError{Op: "translate", Err: err}
	}
	s.metrics.RecordRequest(duration, true, len(req.Text), len(out))

	s.Logger.WithFields(logrus.Fields{
		"engine":        s.Generator.Name(),
		"mode":          mode,
		"output_length": len(out),
		"duration_ms":   duration.Milliseconds(),
	}).Info("Translation completed successfully")

	return &TranslationResult{TranslatedText: out}, nil
}

// CheckHealth reports whether the generative backend is reachable.
func (s *TranslationService) CheckHealth(ctx context.Context) error {
	if err := s.Generator.CheckHealth(ctx); err != nil {
		return fmt.Errorf("%s: %w", s.Generator.Name(), err)
	}
	return nil
}
