package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultOpenRouterURL is the default base URL for OpenRouter.
	// Any OpenAI-compatible chat completions endpoint works.
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"
	// DefaultOpenRouterModel is the model used when none is configured.
	DefaultOpenRouterModel = "google/gemini-2.5-flash"
	// DefaultOpenRouterTimeout is the default timeout for HTTP requests.
	DefaultOpenRouterTimeout = 2 * time.Minute
)

// OpenRouterClient implements the Generator interface using an OpenAI-compatible API.
type OpenRouterClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(baseURL, apiKey, model string, timeout time.Duration, logger *logrus.Logger) *OpenRouterClient {
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	if model == "" {
		model = DefaultOpenRouterModel
	}
	if timeout <= 0 {
		timeout = DefaultOpenRouterTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &OpenRouterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Name returns the engine name.
func (c *OpenRouterClient) Name() string {
	return string(EngineOpenRouter)
}

// Generate sends prompt as a single user message and returns the first choice.
func (c *OpenRouterClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.logger.WithFields(logrus.Fields{
		"model":         c.model,
		"prompt_length": len(prompt),
	}).Debug("Generating completion with OpenRouter")

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(&chatCompletionRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", "Bhasha")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("Chat completion request failed")
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := newStatusError(c.Name(), resp)
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    statusErr.Body,
		}).Error("Chat completion returned non-OK status")
		return "", statusErr
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from API")
	}

	c.logger.WithFields(logrus.Fields{
		"model":             c.model,
		"duration_ms":       time.Since(startTime).Milliseconds(),
		"prompt_tokens":     chatResp.Usage.PromptTokens,
		"completion_tokens": chatResp.Usage.CompletionTokens,
	}).Info("Chat completion finished successfully")

	return chatResp.Choices[0].Message.Content, nil
}

// CheckHealth verifies the API key by listing models.
func (c *OpenRouterClient) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(c.Name(), resp)
	}
	return nil
}
