package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/dasmlab/bhasha/pkg/config"
	"github.com/dasmlab/bhasha/pkg/language"
	"github.com/dasmlab/bhasha/pkg/server"
	"github.com/dasmlab/bhasha/pkg/service"
	"github.com/dasmlab/bhasha/pkg/speech"
	"github.com/dasmlab/bhasha/pkg/translate"
)

const (
	// gRPC health service names, one per relay.
	healthServiceTranslate = "bhasha.translate"
	healthServiceSpeech    = "bhasha.speech"

	healthCheckInterval = 5 * time.Minute
	shutdownTimeout     = 30 * time.Second
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := config.New()
	var configFile, envFile string

	cmd := &cobra.Command{
		Use:   "bhasha",
		Short: "Translation and speech relay for Indian languages",
		Long: `Bhasha relays translation, summary and text-to-speech requests from a browser
client to hosted services.

Endpoints: POST /translate, POST /speak, POST /parse-language, GET /health, GET /metrics.
Every flag can also be set with a BHASHA_ environment variable, e.g. BHASHA_HTTP_PORT.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			if configFile != "" {
				if err := config.ReadFile(v, configFile); err != nil {
					return err
				}
			}
			cfg, err := config.Load(v)
			if err != nil {
				fmt.Fprintln(os.Stderr, "configuration error:", err)
				return err
			}
			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before reading the environment")

	flags.Int("port", 8000, "HTTP server port")
	flags.Int("grpc-port", 50051, "gRPC health server port")
	flags.Bool("grpc", true, "Serve gRPC health checks")
	flags.Bool("websocket", false, "Enable WebSocket endpoints")
	flags.StringSlice("cors-origins", []string{"*"}, "Allowed CORS origins")

	flags.String("llm-engine", string(translate.EngineGemini), "Generative engine: gemini, openrouter or ollama")
	flags.String("llm-url", "", "Base URL of the generative engine (engine default if empty)")
	flags.String("llm-model", "", "Model name (engine default if empty)")

	flags.String("tts-engine", string(speech.EngineGoogle), "Speech engine: google or polly")
	flags.String("tts-url", "", "Base URL of the Google speech endpoint")
	flags.String("tts-region", "", "AWS region for Polly")

	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("languages", "", "Path to a YAML language table replacing the built-in one")

	bindFlags(v, cmd, map[string]string{
		"http.port":            "port",
		"grpc.port":            "grpc-port",
		"grpc.enabled":         "grpc",
		"websocket.enabled":    "websocket",
		"cors.allowed_origins": "cors-origins",
		"llm.engine":           "llm-engine",
		"llm.base_url":         "llm-url",
		"llm.model":            "llm-model",
		"tts.engine":           "tts-engine",
		"tts.base_url":         "tts-url",
		"tts.region":           "tts-region",
		"log.level":            "log-level",
		"log.format":           "log-format",
		"languages_file":       "languages",
	})

	return cmd
}

// bindFlags lets an explicitly set flag win over the environment and config file.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	// Set log level
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func loadLanguages(path string) (*language.Table, error) {
	if path == "" {
		return language.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read language table: %w", err)
	}
	return language.Load(data)
}

func run(cfg config.Config) error {
	logger := newLogger(cfg.Log)

	logger.WithFields(logrus.Fields{
		"http_port":  cfg.HTTP.Port,
		"grpc_port":  cfg.GRPC.Port,
		"llm_engine": cfg.LLM.Engine,
		"tts_engine": cfg.TTS.Engine,
		"websocket":  cfg.WebSocket.Enabled,
		"log_level":  logger.GetLevel().String(),
	}).Info("Starting Bhasha relay server")

	languages, err := loadLanguages(cfg.LanguagesFile)
	if err != nil {
		logger.WithError(err).Error("Failed to load language table")
		return err
	}

	generator, err := translate.NewGenerator(translate.Config{
		Engine:  cfg.LLM.Engine,
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
		Logger:  logger,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to create generator")
		return err
	}

	synthesizer, err := speech.NewSynthesizer(speech.Config{
		Engine:  cfg.TTS.Engine,
		BaseURL: cfg.TTS.BaseURL,
		Region:  cfg.TTS.Region,
		Timeout: cfg.TTS.Timeout,
		Logger:  logger,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to create synthesizer")
		return err
	}

	translationService := service.NewTranslationService(generator, languages, logger)
	speechService := service.NewSpeechService(synthesizer, logger)

	// Backends are checked once at startup; a failure is logged and the server starts anyway.
	checks := map[string]func(context.Context) error{
		healthServiceTranslate: translationService.CheckHealth,
		healthServiceSpeech:    speechService.CheckHealth,
	}
	logger.Info("Checking backend health...")
	initial := checkBackends(logger, checks)

	httpServer := server.NewHTTPServer(server.Dependencies{
		Translator: translationService,
		Speaker:    speechService,
		Languages:  languages,
	}, server.Config{
		Port: cfg.HTTP.Port,
		CORS: server.CORSConfig{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   cfg.CORS.AllowedMethods,
			AllowedHeaders:   cfg.CORS.AllowedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
		},
		WebSocket: server.WebSocketConfig{
			Enabled: cfg.WebSocket.Enabled,
			Prefix:  cfg.WebSocket.Prefix,
		},
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, logger)

	errChan := make(chan error, 2)
	go func() {
		if err := httpServer.Start(); err != nil {
			errChan <- err
		}
	}()

	var (
		grpcServer   *grpc.Server
		healthServer *health.Server
	)
	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"port": cfg.GRPC.Port,
			}).Error("Failed to listen on port")
			return err
		}

		grpcServer = grpc.NewServer(
			grpc.Creds(insecure.NewCredentials()),
			grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
				MinTime:             15 * time.Second,
				PermitWithoutStream: true,
			}),
			grpc.KeepaliveParams(keepalive.ServerParameters{
				MaxConnectionIdle: 5 * time.Minute,
				Time:              30 * time.Second,
				Timeout:           10 * time.Second,
			}),
		)

		healthServer = health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		setHealth(healthServer, initial)

		// Enable reflection for grpcurl/debugging
		reflection.Register(grpcServer)

		go func() {
			logger.WithFields(logrus.Fields{
				"port": cfg.GRPC.Port,
			}).Info("gRPC health server listening")
			if err := grpcServer.Serve(lis); err != nil {
				errChan <- fmt.Errorf("failed to serve grpc: %w", err)
			}
		}()
	}

	monitorCtx, monitorCancel := context.WithCancel(context.Background())
	defer monitorCancel()
	if healthServer != nil {
		go monitorBackends(monitorCtx, logger, healthServer, checks)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.WithError(err).Error("Server error")
		return err
	case sig := <-sigChan:
		logger.WithFields(logrus.Fields{
			"signal": sig.String(),
		}).Info("Received signal, shutting down gracefully...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	monitorCancel()

	if healthServer != nil {
		healthServer.Shutdown()
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	if grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			logger.Warn("Graceful shutdown timeout, forcing stop...")
			grpcServer.Stop()
		}
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// checkBackends runs every check and returns the result per service name.
func checkBackends(logger *logrus.Logger, checks map[string]func(context.Context) error) map[string]bool {
	results := make(map[string]bool, len(checks))
	for name, check := range checks {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := check(ctx)
		cancel()
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"service": name,
			}).Warn("Backend health check failed, requests may fail until it recovers")
		} else {
			logger.WithFields(logrus.Fields{
				"service": name,
			}).Debug("Backend health check passed")
		}
		results[name] = err == nil
	}
	return results
}

func setHealth(hs *health.Server, results map[string]bool) {
	for name, ok := range results {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if !ok {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus(name, status)
	}
}

func monitorBackends(ctx context.Context, logger *logrus.Logger, hs *health.Server, checks map[string]func(context.Context) error) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			setHealth(hs, checkBackends(logger, checks))
		case <-ctx.Done():
			return
		}
	}
}
