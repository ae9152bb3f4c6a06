package service

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeGenerator records prompts and replies from a queue of results.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	replies []fakeReply
}

type fakeReply struct {
	text string
	err  error
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if len(g.replies) == 0 {
		return "ok", nil
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r.text, r.err
}

func (g *fakeGenerator) CheckHealth(context.Context) error { return nil }

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// fakeSynthesizer records voices. It fails with the queued errs in order,
// then returns audio or err.
type fakeSynthesizer struct {
	mu     sync.Mutex
	voices []string
	audio  []byte
	errs   []error
	err    error
	health error
}

func (s *fakeSynthesizer) Name() string { return "fake" }

func (s *fakeSynthesizer) Synthesize(_ context.Context, _ string, voice string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = append(s.voices, voice)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.audio, nil
}

func (s *fakeSynthesizer) CheckHealth(context.Context) error { return s.health }
