package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dasmlab/bhasha/pkg/speech"
	"github.com/sirupsen/logrus"
)

// SpeakRequest is one text-to-speech request.
type SpeakRequest struct {
	Text         string `json:"text"`
	LanguageCode string `json:"lang"`
}

// AudioResult is a complete synthesized payload.
type AudioResult struct {
	Data      []byte
	MediaType string
	// Voice is the voice code actually used after allow-list resolution.
	Voice string
}

// SpeechService relays text-to-speech requests to a TTS backend.
type SpeechService struct {
	Synthesizer speech.Synthesizer
	Logger      *logrus.Logger

	metrics *MetricsCollector
}

// NewSpeechService creates a new SpeechService instance.
func NewSpeechService(synthesizer speech.Synthesizer, logger *logrus.Logger) *SpeechService {
	if logger == nil {
		logger = logrus.New()
	}

	return &SpeechService{
		Synthesizer: synthesizer,
		Logger:      logger,
		metrics:     NewMetricsCollector("speak", synthesizer.Name()),
	}
}

// Speak resolves the voice and synthesizes the text. The result is all or nothing.
func (s *SpeechService) Speak(ctx context.Context, req SpeakRequest) (*AudioResult, error) {
	voice := speech.ResolveVoice(req.LanguageCode)
	fallback := voice == speech.DefaultVoice && !strings.EqualFold(strings.TrimSpace(req.LanguageCode), speech.DefaultVoice)
	s.metrics.RecordVoice(voice, fallback)

	s.Logger.WithFields(logrus.Fields{
		"engine":      s.Synthesizer.Name(),
		"lang":        req.LanguageCode,
		"voice":       voice,
		"text_length": len(req.Text),
	}).Info("Speak request received")

	startTime := time.Now()
	audio, err := s.Synthesizer.Synthesize(ctx, req.Text, voice)
	if err == nil && len(audio) == 0 {
		err = fmt.Errorf("%s returned no audio", s.Synthesizer.Name())
	}
	duration := time.Since(startTime)
	if err != nil {
		s.metrics.RecordRequest(duration, false, len(req.Text), 0)
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"engine":      s.Synthesizer.Name(),
			"voice":       voice,
			"duration_ms": duration.Milliseconds(),
		}).Error("Speech synthesis failed")
		return nil, &RelayError{Op: "speak", Err: err}
	}
	s.metrics.RecordRequest(duration, true, len(req.Text), len(audio))

	return &AudioResult{
		Data:      audio,
		MediaType: speech.MediaType,
		Voice:     voice,
	}, nil
}

// CheckHealth reports whether the TTS backend is reachable.
func (s *SpeechService) CheckHealth(ctx context.Context) error {
	if err := s.Synthesizer.CheckHealth(ctx); err != nil {
		return fmt.Errorf("%s: %w", s.Synthesizer.Name(), err)
	}
	return nil
}
