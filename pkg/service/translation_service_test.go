package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslationService_Translate(t *testing.T) {
	gen := &fakeGenerator{replies: []fakeReply{{text: "నమస్కారం"}}}
	svc := NewTranslationService(gen, nil, quietLogger())

	res, err := svc.Translate(context.Background(), TranslationRequest{Text: "Hello", Destination: "te"})

	require.NoError(t, err)
	assert.Equal(t, "నమస్కారం", res.TranslatedText)
	prompt := gen.lastPrompt()
	assert.Contains(t, prompt, "Translate the following text")
	assert.Contains(t, prompt, "accurately")
	assert.Contains(t, prompt, "tone")
	assert.Contains(t, prompt, "Telugu (te)")
	assert.Contains(t, prompt, "Hello")
}

func TestTranslationService_Modes(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		want    string
		notWant string
	}{
		{name: "summary", mode: "summary", want: "simple sentences", notWant: "accurately"},
		{name: "explicit translate", mode: "translate", want: "preserving its original tone", notWant: "simple sentences"},
		{name: "missing mode", mode: "", want: "preserving its original tone", notWant: "simple sentences"},
		{name: "unknown mode", mode: "poem", want: "preserving its original tone", notWant: "simple sentences"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			svc := NewTranslationService(gen, nil, quietLogger())

			_, err := svc.Translate(context.Background(), TranslationRequest{Text: "Hello", Destination: "hindi", Mode: tt.mode})

			require.NoError(t, err)
			prompt := gen.lastPrompt()
			assert.Contains(t, prompt, tt.want)
			assert.NotContains(t, prompt, tt.notWant)
			assert.Contains(t, prompt, "hindi")
		})
	}
}

func TestTranslationService_DefaultDestination(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewTranslationService(gen, nil, quietLogger())

	_, err := svc.Translate(context.Background(), TranslationRequest{Text: "Bonjour"})

	require.NoError(t, err)
	assert.Contains(t, gen.lastPrompt(), "English (en)")
}

func TestTranslationService_FailureIsIsolated(t *testing.T) {
	upstream := errors.New("quota exceeded")
	gen := &fakeGenerator{replies: []fakeReply{{err: upstream}, {text: "नमस्ते"}}}
	svc := NewTranslationService(gen, nil, quietLogger())

	_, err := svc.Translate(context.Background(), TranslationRequest{Text: "Hello", Destination: "hi"})
	require.Error(t, err)
	var relayErr *RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, "translate", relayErr.Op)
	assert.ErrorIs(t, err, upstream)
	assert.Contains(t, err.Error(), "quota exceeded")

	res, err := svc.Translate(context.Background(), TranslationRequest{Text: "Hello", Destination: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "नमस्ते", res.TranslatedText)
}

func TestTranslationService_CheckHealth(t *testing.T) {
	svc := NewTranslationService(&fakeGenerator{}, nil, quietLogger())
	assert.NoError(t, svc.CheckHealth(context.Background()))
}
