package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultGeminiURL is the default base URL for the Gemini API.
	DefaultGeminiURL = "https://generativelanguage.googleapis.com"
	// DefaultGeminiModel is the model used when none is configured.
	DefaultGeminiModel = "gemini-2.5-flash"
	// DefaultGeminiTimeout is the default timeout for HTTP requests.
	DefaultGeminiTimeout = 2 * time.Minute
)

// GeminiClient implements the Generator interface using the Gemini REST API.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewGeminiClient creates a new Gemini client.
// Empty baseURL, model or timeout fall back to the package defaults.
func NewGeminiClient(baseURL, apiKey, model string, timeout time.Duration, logger *logrus.Logger) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = DefaultGeminiTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// geminiPart is a single piece of content.
type geminiPart struct {
	Text string `json:"text"`
}

// geminiContent is one turn of a conversation.
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// generateContentRequest represents a generateContent API request.
type generateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

// generateContentResponse represents a generateContent API response.
type generateContentResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Name returns the engine name.
func (c *GeminiClient) Name() string {
	return string(EngineGemini)
}

// Generate sends prompt as a single user turn and returns the text of the first candidate.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.logger.WithFields(logrus.Fields{
		"model":         c.model,
		"prompt_length": len(prompt),
	}).Debug("Generating content with Gemini")

	reqPayload := generateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
	}

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(&reqPayload); err != nil {
		c.logger.WithError(err).Error("Failed to encode generateContent request")
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, buf)
	if err != nil {
		c.logger.WithError(err).Error("Failed to create generateContent request")
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"model": c.model,
		}).Error("generateContent request failed")
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(startTime)
	c.logger.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration_ms": duration.Milliseconds(),
	}).Debug("generateContent request completed")

	if resp.StatusCode != http.StatusOK {
		statusErr := newStatusError(c.Name(), resp)
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    statusErr.Body,
		}).Error("generateContent returned non-OK status")
		return "", statusErr
	}

	var genResp generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		c.logger.WithError(err).Error("Failed to decode generateContent response")
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(genResp.Candidates) == 0 {
		if genResp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", genResp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("empty response: no candidates returned")
	}

	var sb strings.Builder
	for _, part := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response: finish reason %q", genResp.Candidates[0].FinishReason)
	}

	c.logger.WithFields(logrus.Fields{
		"model":             c.model,
		"duration_ms":       duration.Milliseconds(),
		"prompt_tokens":     genResp.UsageMetadata.PromptTokenCount,
		"candidates_tokens": genResp.UsageMetadata.CandidatesTokenCount,
	}).Info("Gemini generation completed successfully")

	return sb.String(), nil
}

// CheckHealth verifies that the API key is accepted and the model exists.
func (c *GeminiClient) CheckHealth(ctx context.Context) error {
	c.logger.Debug("Checking Gemini health")

	endpoint := fmt.Sprintf("%s/v1beta/models/%s", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("Gemini health check request failed")
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(c.Name(), resp)
	}

	c.logger.Debug("Gemini health check passed")
	return nil
}
