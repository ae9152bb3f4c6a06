package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dasmlab/bhasha/pkg/language"
	"github.com/dasmlab/bhasha/pkg/service"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeTranslator struct {
	mu   sync.Mutex
	reqs []service.TranslationRequest
	errs []error
}

func (f *fakeTranslator) Translate(_ context.Context, req service.TranslationRequest) (*service.TranslationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, &service.RelayError{Op: "translate", Err: err}
		}
	}
	return &service.TranslationResult{TranslatedText: "नमस्ते"}, nil
}

// fakeSpeaker fails with the queued errors in order, then succeeds.
type fakeSpeaker struct {
	mu   sync.Mutex
	errs []error
}

func (f *fakeSpeaker) Speak(_ context.Context, req service.SpeakRequest) (*service.AudioResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, &service.RelayError{Op: "speak", Err: err}
		}
	}
	voice := "en"
	if req.LanguageCode == "te" {
		voice = "te"
	}
	return &service.AudioResult{Data: []byte("ID3-" + voice), MediaType: "audio/mpeg", Voice: voice}, nil
}

func newTestServer(t *testing.T, deps Dependencies, cfg Config) *httptest.Server {
	t.Helper()
	if deps.Translator == nil {
		deps.Translator = &fakeTranslator{}
	}
	if deps.Speaker == nil {
		deps.Speaker = &fakeSpeaker{}
	}
	if deps.Languages == nil {
		deps.Languages = language.Default()
	}
	srv := NewHTTPServer(deps, cfg, quietLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestTranslateEndpoint(t *testing.T) {
	tr := &fakeTranslator{}
	ts := newTestServer(t, Dependencies{Translator: tr}, Config{})

	resp := postJSON(t, ts.URL+"/translate", `{"text":"Hello","dest":"hindi","mode":"translate"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	assert.Equal(t, map[string]any{"translated_text": "नमस्ते"}, decodeBody(t, resp))

	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Len(t, tr.reqs, 1)
	assert.Equal(t, service.TranslationRequest{Text: "Hello", Destination: "hindi", Mode: "translate"}, tr.reqs[0])
}

func TestTranslateEndpoint_UpstreamFailureThenSuccess(t *testing.T) {
	tr := &fakeTranslator{errs: []error{errors.New("model overloaded")}}
	ts := newTestServer(t, Dependencies{Translator: tr}, Config{})

	resp := postJSON(t, ts.URL+"/translate", `{"text":"Hello","dest":"te"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["detail"], "model overloaded")

	resp = postJSON(t, ts.URL+"/translate", `{"text":"Hello","dest":"te"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "नमस्ते", decodeBody(t, resp)["translated_text"])
}

func TestSpeakEndpoint(t *testing.T) {
	ts := newTestServer(t, Dependencies{}, Config{})

	resp := postJSON(t, ts.URL+"/speak", `{"text":"నమస్కారం","lang":"te"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "te", resp.Header.Get("X-Speech-Voice"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-te"), data)
}

func TestSpeakEndpoint_UpstreamFailureThenSuccess(t *testing.T) {
	ts := newTestServer(t, Dependencies{Speaker: &fakeSpeaker{errs: []error{errors.New("tts down")}}}, Config{})

	resp := postJSON(t, ts.URL+"/speak", `{"text":"hi","lang":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, decodeBody(t, resp)["detail"], "tts down")

	resp = postJSON(t, ts.URL+"/speak", `{"text":"hi","lang":"hi"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestParseLanguageEndpoint(t *testing.T) {
	ts := newTestServer(t, Dependencies{}, Config{})

	tests := []struct {
		text string
		want any
	}{
		{text: "I want telugu please", want: "te"},
		{text: "Translate this to HINDI", want: "hi"},
		{text: "namaste", want: nil},
		{text: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			payload, _ := json.Marshal(map[string]string{"text": tt.text, "dest": "en"})
			resp := postJSON(t, ts.URL+"/parse-language", string(payload))

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			body := decodeBody(t, resp)
			require.Contains(t, body, "code")
			assert.Equal(t, tt.want, body["code"])
		})
	}
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t, Dependencies{}, Config{})

	for _, path := range []string{"/translate", "/speak"} {
		t.Run(path, func(t *testing.T) {
			resp := postJSON(t, ts.URL+path, `{"text":`)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, decodeBody(t, resp)["detail"], "invalid request body")
		})
	}
}

func TestParseLanguageEndpoint_UnreadableBody(t *testing.T) {
	ts := newTestServer(t, Dependencies{}, Config{})

	for _, body := range []string{`{"text":`, `[1]`, `"telugu"`, ``} {
		t.Run(body, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/parse-language", body)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			out := decodeBody(t, resp)
			require.Contains(t, out, "code")
			assert.Nil(t, out["code"])
		})
	}
}

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	srv := NewHTTPServer(Dependencies{}, Config{}, logger)

	rec := httptest.NewRecorder()
	srv.writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Failed to write JSON response", hook.LastEntry().Message)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, Dependencies{}, Config{})

	resp, err := http.Get(ts.URL + "/translate")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, Dependencies{}, Config{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"status": "healthy"}, decodeBody(t, resp))

	postJSON(t, ts.URL+"/parse-language", `{"text":"tamil"}`)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bhasha_http_requests_total")
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, Dependencies{}, Config{})

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/parse-language", bytes.NewBufferString(`{"text":"odia"}`))
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
}
