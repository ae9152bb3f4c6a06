package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dasmlab/bhasha/pkg/service"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBodyBytes bounds request bodies and WebSocket frames.
const DefaultMaxBodyBytes int64 = 1 << 20

// Translator relays translation requests.
type Translator interface {
	Translate(ctx context.Context, req service.TranslationRequest) (*service.TranslationResult, error)
}

// Speaker relays speech requests.
type Speaker interface {
	Speak(ctx context.Context, req service.SpeakRequest) (*service.AudioResult, error)
}

// LanguageResolver finds a language code named in free-form text.
type LanguageResolver interface {
	ResolveCode(text string) (string, bool)
}

// Dependencies are the relays served over HTTP.
type Dependencies struct {
	Translator Translator
	Speaker    Speaker
	Languages  LanguageResolver
}

// WebSocketConfig enables the WebSocket endpoints.
type WebSocketConfig struct {
	Enabled bool
	// Prefix is prepended to /translate and /speak. Defaults to "/ws".
	Prefix string
}

// Config holds HTTP server settings.
type Config struct {
	Port         int
	CORS         CORSConfig
	WebSocket    WebSocketConfig
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	// WriteTimeout must cover the slowest upstream call.
	WriteTimeout time.Duration
}

// HTTPServer exposes the translation, speech and language endpoints.
type HTTPServer struct {
	deps     Dependencies
	cfg      Config
	logger   *logrus.Logger
	upgrader websocket.Upgrader
	server   *http.Server
}

// translateResponse is the /translate success body.
type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

// parseLanguageRequest is the /parse-language body. Dest is accepted and ignored.
type parseLanguageRequest struct {
	Text string `json:"text"`
	Dest string `json:"dest"`
}

// parseLanguageResponse encodes a miss as {"code": null}.
type parseLanguageResponse struct {
	Code *string `json:"code"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(deps Dependencies, cfg Config, logger *logrus.Logger) *HTTPServer {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.WebSocket.Prefix == "" {
		cfg.WebSocket.Prefix = "/ws"
	}
	if cfg.CORS.AllowedOrigins == nil {
		cfg.CORS = DefaultCORSConfig()
	}

	s := &HTTPServer{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return s.cfg.CORS.allowsOrigin(r.Header.Get("Origin"))
		},
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// Handler returns the complete handler chain: request logging, CORS, then routes.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/translate", instrument("/translate", http.HandlerFunc(s.handleTranslate)))
	mux.Handle("/speak", instrument("/speak", http.HandlerFunc(s.handleSpeak)))
	mux.Handle("/parse-language", instrument("/parse-language", http.HandlerFunc(s.handleParseLanguage)))

	// Health check endpoint
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	if s.cfg.WebSocket.Enabled {
		s.registerWSRoutes(mux)
	}

	return withRequestLogging(s.logger, s.cfg.CORS.Handler(mux))
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"port":      s.cfg.Port,
		"websocket": s.cfg.WebSocket.Enabled,
	}).Info("Starting HTTP server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req service.TranslationRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.deps.Translator.Translate(r.Context(), req)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": RequestID(r.Context()),
		}).Error("Translate request failed")
		s.writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, translateResponse{TranslatedText: res.TranslatedText})
}

func (s *HTTPServer) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req service.SpeakRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.deps.Speaker.Speak(r.Context(), req)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": RequestID(r.Context()),
		}).Error("Speak request failed")
		s.writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", res.MediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.Header().Set("X-Speech-Voice", res.Voice)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		s.logger.WithError(err).Debug("Client went away while receiving audio")
	}
}

func (s *HTTPServer) handleParseLanguage(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	// Resolution never fails: an undecodable body is a request that names no language.
	var resp parseLanguageResponse
	var req parseLanguageRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": RequestID(r.Context()),
		}).Debug("Unreadable parse-language body, answering with no code")
	} else if code, ok := s.deps.Languages.ResolveCode(req.Text); ok {
		resp.Code = &code
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleHealth provides a health check endpoint.
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *HTTPServer) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *HTTPServer) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	s.writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

func (s *HTTPServer) writeDetail(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Debug("Failed to write JSON response")
	}
}
