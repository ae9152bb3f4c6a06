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
	// DefaultOllamaURL is the default base URL for a local Ollama server.
	DefaultOllamaURL = "http://localhost:11434"
	// DefaultOllamaModel is the model used when none is configured.
	DefaultOllamaModel = "llama3.2"
	// DefaultOllamaTimeout is the default timeout for HTTP requests.
	// Local models on CPU are slow, so this is generous.
	DefaultOllamaTimeout = 5 * time.Minute
)

// OllamaClient implements the Generator interface using a self-hosted Ollama server.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(baseURL, model string, timeout time.Duration, logger *logrus.Logger) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if timeout <= 0 {
		timeout = DefaultOllamaTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ollamaGenerateRequest represents an /api/generate request.
type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ollamaGenerateResponse represents a non-streamed /api/generate response.
type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Name returns the engine name.
func (c *OllamaClient) Name() string {
	return string(EngineOllama)
}

// Generate runs prompt through the configured model with streaming disabled.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.logger.WithFields(logrus.Fields{
		"model":         c.model,
		"prompt_length": len(prompt),
	}).Debug("Generating text with Ollama")

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(&ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	}); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"base_url": c.baseURL,
		}).Error("Ollama generate request failed")
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := newStatusError(c.Name(), resp)
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"response":    statusErr.Body,
		}).Error("Ollama generate returned non-OK status")
		return "", statusErr
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if genResp.Response == "" {
		return "", fmt.Errorf("empty response from model %s", c.model)
	}

	c.logger.WithFields(logrus.Fields{
		"model":       c.model,
		"duration_ms": time.Since(startTime).Milliseconds(),
		"eval_count":  genResp.EvalCount,
	}).Info("Ollama generation completed successfully")

	return genResp.Response, nil
}

// CheckHealth verifies that Ollama is up and the configured model is pulled.
func (c *OllamaClient) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(c.Name(), resp)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == c.model || m.Name == c.model+":latest" {
			return nil
		}
	}
	return fmt.Errorf("model %s is not pulled on %s", c.model, c.baseURL)
}
