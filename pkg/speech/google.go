package speech

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultGoogleURL is the default Google Translate host.
	DefaultGoogleURL = "https://translate.google.com"
	// DefaultGoogleTimeout is the default timeout for one chunk request.
	DefaultGoogleTimeout = 30 * time.Second

	googleTTSPath = "/_/TranslateWebserverUi/data/batchexecute"
	googleTTSRPC  = "jQ1olc"
	// maxChunkRunes is the longest text the speech RPC accepts in one call.
	maxChunkRunes = 100
	// maxResponseLine bounds one line of the RPC response, which carries a whole base64 MP3.
	maxResponseLine = 8 << 20
)

var audioPattern = regexp.MustCompile(`jQ1olc","\[\\"(.*)\\"]`)

// GoogleClient implements the Synthesizer interface using the speech RPC
// behind the Google Translate web page.
type GoogleClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewGoogleClient creates a new Google Translate speech client.
func NewGoogleClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *GoogleClient {
	if baseURL == "" {
		baseURL = DefaultGoogleURL
	}
	if timeout <= 0 {
		timeout = DefaultGoogleTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &GoogleClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Name returns the engine name.
func (c *GoogleClient) Name() string {
	return string(EngineGoogle)
}

// Synthesize splits text into RPC-sized chunks, synthesizes each, and
// concatenates the MP3 fragments. Any failing chunk fails the whole call.
func (c *GoogleClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	chunks := splitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text to speak")
	}

	c.logger.WithFields(logrus.Fields{
		"voice":       voice,
		"text_length": len(text),
		"chunks":      len(chunks),
	}).Debug("Synthesizing speech with Google")

	startTime := time.Now()
	var audio bytes.Buffer
	for i, chunk := range chunks {
		if err := c.synthesizeChunk(ctx, chunk, voice, &audio); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"voice": voice,
				"chunk": i,
			}).Error("Speech chunk failed")
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	c.logger.WithFields(logrus.Fields{
		"voice":       voice,
		"chunks":      len(chunks),
		"audio_bytes": audio.Len(),
		"duration_ms": time.Since(startTime).Milliseconds(),
	}).Info("Speech synthesis completed successfully")

	return audio.Bytes(), nil
}

func (c *GoogleClient) synthesizeChunk(ctx context.Context, text, voice string, out *bytes.Buffer) error {
	body, err := packageRPC(text, voice)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+googleTTSPath, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	found := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxResponseLine)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, googleTTSRPC) {
			continue
		}
		match := audioPattern.FindStringSubmatch(line)
		if match == nil {
			return fmt.Errorf("speech rpc returned no audio for language %q", voice)
		}
		decoded, err := base64.StdEncoding.DecodeString(match[1])
		if err != nil {
			return fmt.Errorf("decode audio: %w", err)
		}
		out.Write(decoded)
		found = true
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if !found {
		return fmt.Errorf("speech rpc response carried no audio")
	}
	return nil
}

// CheckHealth synthesizes a one-word phrase.
func (c *GoogleClient) CheckHealth(ctx context.Context) error {
	var buf bytes.Buffer
	if err := c.synthesizeChunk(ctx, "ok", DefaultVoice, &buf); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// packageRPC builds the form body of a batchexecute call:
// f.req=[[["jQ1olc","[\"text\",\"lang\",null,\"null\"]",null,"generic"]]]
func packageRPC(text, lang string) (string, error) {
	param, err := marshalCompact([]any{text, lang, nil, "null"})
	if err != nil {
		return "", fmt.Errorf("encode rpc parameter: %w", err)
	}
	rpc, err := marshalCompact([][][]any{{{googleTTSRPC, param, nil, "generic"}}})
	if err != nil {
		return "", fmt.Errorf("encode rpc: %w", err)
	}
	return "f.req=" + url.QueryEscape(rpc) + "&", nil
}

func marshalCompact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
