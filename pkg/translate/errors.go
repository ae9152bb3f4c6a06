package translate

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of an upstream error body is kept.
const maxErrorBody = 4 << 10

// StatusError is returned when an upstream API answers with a non-OK status.
type StatusError struct {
	Engine     string
	StatusCode int
	// Message is the provider's error message when the body carried one.
	Message string
	// Body is the raw (truncated) response body.
	Body string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Engine, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Engine, e.StatusCode, e.Body)
}

// newStatusError drains a bounded amount of the body and extracts the
// {"error": {"message": ...}} shape shared by Gemini, OpenAI-style APIs and Ollama.
func newStatusError(engine string, resp *http.Response) *StatusError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	statusErr := &StatusError{
		Engine:     engine,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(bodyBytes)),
	}

	var structured struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(bodyBytes, &structured); err != nil || len(structured.Error) == 0 {
		return statusErr
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(structured.Error, &nested); err == nil && nested.Message != "" {
		statusErr.Message = nested.Message
		return statusErr
	}
	// Ollama reports {"error": "model not found"}.
	var flat string
	if err := json.Unmarshal(structured.Error, &flat); err == nil {
		statusErr.Message = flat
	}
	return statusErr
}
