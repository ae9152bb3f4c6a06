package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPollyTimeout is the default timeout for one SynthesizeSpeech call.
	DefaultPollyTimeout = 30 * time.Second
	// maxPollyChunkRunes keeps each call under Polly's 3000 billed character limit.
	maxPollyChunkRunes = 1500
)

// pollyAPI is the subset of the Polly client used here.
type pollyAPI interface {
	SynthesizeSpeechWithContext(ctx aws.Context, input *polly.SynthesizeSpeechInput, opts ...request.Option) (*polly.SynthesizeSpeechOutput, error)
	DescribeVoicesWithContext(ctx aws.Context, input *polly.DescribeVoicesInput, opts ...request.Option) (*polly.DescribeVoicesOutput, error)
}

// pollyVoice is the Polly voice chosen for a voice code.
type pollyVoice struct {
	LanguageCode string
	VoiceID      string
}

// Polly has no voices for most allow-listed languages; those use the default voice.
var pollyVoices = map[string]pollyVoice{
	"hi": {LanguageCode: polly.LanguageCodeHiIn, VoiceID: polly.VoiceIdAditi},
	"en": {LanguageCode: polly.LanguageCodeEnUs, VoiceID: polly.VoiceIdJoanna},
}

// PollyClient implements the Synthesizer interface using Amazon Polly.
type PollyClient struct {
	api     pollyAPI
	timeout time.Duration
	logger  *logrus.Logger
}

// NewPollyClient creates a Polly client from the default AWS credential chain.
func NewPollyClient(region string, timeout time.Duration, logger *logrus.Logger) (*PollyClient, error) {
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return newPollyClient(polly.New(sess), timeout, logger), nil
}

func newPollyClient(api pollyAPI, timeout time.Duration, logger *logrus.Logger) *PollyClient {
	if timeout <= 0 {
		timeout = DefaultPollyTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &PollyClient{api: api, timeout: timeout, logger: logger}
}

// Name returns the engine name.
func (c *PollyClient) Name() string {
	return string(EnginePolly)
}

// Synthesize renders text as MP3 with the Polly voice mapped from voice.
// Long text is split into several calls whose MP3 output is concatenated.
func (c *PollyClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	chunks := splitText(text, maxPollyChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text to speak")
	}

	pv, ok := pollyVoices[voice]
	if !ok {
		c.logger.WithFields(logrus.Fields{
			"voice": voice,
		}).Warn("No Polly voice for language, using default voice")
		pv = pollyVoices[DefaultVoice]
	}

	startTime := time.Now()
	var audio bytes.Buffer
	for i, chunk := range chunks {
		if err := c.synthesizeChunk(ctx, chunk, pv, &audio); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"voice_id": pv.VoiceID,
				"chunk":    i,
			}).Error("Polly SynthesizeSpeech failed")
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	if audio.Len() == 0 {
		return nil, fmt.Errorf("polly returned empty audio")
	}

	c.logger.WithFields(logrus.Fields{
		"voice_id":    pv.VoiceID,
		"chunks":      len(chunks),
		"audio_bytes": audio.Len(),
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Polly synthesis completed successfully")

	return audio.Bytes(), nil
}

func (c *PollyClient) synthesizeChunk(ctx context.Context, text string, pv pollyVoice, out *bytes.Buffer) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.SynthesizeSpeechWithContext(ctx, &polly.SynthesizeSpeechInput{
		OutputFormat: aws.String(polly.OutputFormatMp3),
		Text:         aws.String(text),
		TextType:     aws.String(polly.TextTypeText),
		LanguageCode: aws.String(pv.LanguageCode),
		VoiceId:      aws.String(pv.VoiceID),
	})
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.AudioStream.Close()

	if _, err := io.Copy(out, resp.AudioStream); err != nil {
		return fmt.Errorf("read audio stream: %w", err)
	}
	return nil
}

// CheckHealth lists the default voice's language to verify credentials and region.
func (c *PollyClient) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.api.DescribeVoicesWithContext(ctx, &polly.DescribeVoicesInput{
		LanguageCode: aws.String(pollyVoices[DefaultVoice].LanguageCode),
	})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
