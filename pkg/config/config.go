package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dasmlab/bhasha/pkg/speech"
	"github.com/dasmlab/bhasha/pkg/translate"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BHASHA_HTTP_PORT.
const EnvPrefix = "BHASHA"

// Config is the complete server configuration.
type Config struct {
	HTTP      HTTPConfig
	GRPC      GRPCConfig
	CORS      CORSConfig
	WebSocket WebSocketConfig
	LLM       LLMConfig
	TTS       TTSConfig
	Log       LogConfig
	// LanguagesFile optionally replaces the embedded language table.
	LanguagesFile string
}

type HTTPConfig struct {
	Port         int
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// GRPCConfig controls the gRPC health endpoint.
type GRPCConfig struct {
	Enabled bool
	Port    int
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

type WebSocketConfig struct {
	Enabled bool
	Prefix  string
}

// LLMConfig selects the generative backend used for /translate.
type LLMConfig struct {
	Engine  translate.EngineType
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// TTSConfig selects the speech backend used for /speak.
type TTSConfig struct {
	Engine  speech.EngineType
	BaseURL string
	Region  string
	Timeout time.Duration
}

type LogConfig struct {
	// Level is parsed by the logger setup; an invalid value falls back to info.
	Level  string
	Format string
}

// New returns a viper instance with defaults and environment bindings applied.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8000)
	v.SetDefault("http.max_body_bytes", 1<<20)
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "5m")

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"})
	v.SetDefault("cors.allowed_headers", []string{"*"})
	v.SetDefault("cors.allow_credentials", false)

	v.SetDefault("websocket.enabled", false)
	v.SetDefault("websocket.prefix", "/ws")

	v.SetDefault("llm.engine", string(translate.EngineGemini))
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", "2m")

	v.SetDefault("tts.engine", string(speech.EngineGoogle))
	v.SetDefault("tts.base_url", "")
	v.SetDefault("tts.region", "")
	v.SetDefault("tts.timeout", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("languages_file", "")
}

// BindEnv maps BHASHA_SECTION_KEY variables onto section.key.
// The API key also honours GEMINI_API_KEY.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("tts.region", EnvPrefix+"_TTS_REGION", "AWS_REGION")
}

// ReadFile merges a YAML, JSON or TOML config file into v.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return nil
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config

	cfg.HTTP = HTTPConfig{
		Port:         v.GetInt("http.port"),
		MaxBodyBytes: v.GetInt64("http.max_body_bytes"),
		ReadTimeout:  v.GetDuration("http.read_timeout"),
		WriteTimeout: v.GetDuration("http.write_timeout"),
	}
	cfg.GRPC = GRPCConfig{
		Enabled: v.GetBool("grpc.enabled"),
		Port:    v.GetInt("grpc.port"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins:   stringList(v, "cors.allowed_origins"),
		AllowedMethods:   stringList(v, "cors.allowed_methods"),
		AllowedHeaders:   stringList(v, "cors.allowed_headers"),
		AllowCredentials: v.GetBool("cors.allow_credentials"),
	}
	cfg.WebSocket = WebSocketConfig{
		Enabled: v.GetBool("websocket.enabled"),
		Prefix:  "/" + strings.Trim(v.GetString("websocket.prefix"), "/"),
	}
	cfg.LanguagesFile = v.GetString("languages_file")

	llmEngine, err := translate.ParseEngineType(v.GetString("llm.engine"))
	if err != nil {
		return Config{}, err
	}
	cfg.LLM = LLMConfig{
		Engine:  llmEngine,
		BaseURL: v.GetString("llm.base_url"),
		APIKey:  strings.TrimSpace(v.GetString("llm.api_key")),
		Model:   v.GetString("llm.model"),
		Timeout: v.GetDuration("llm.timeout"),
	}

	ttsEngine, err := speech.ParseEngineType(v.GetString("tts.engine"))
	if err != nil {
		return Config{}, err
	}
	cfg.TTS = TTSConfig{
		Engine:  ttsEngine,
		BaseURL: v.GetString("tts.base_url"),
		Region:  v.GetString("tts.region"),
		Timeout: v.GetDuration("tts.timeout"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: strings.ToLower(v.GetString("log.format")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if err := validPort("http.port", c.HTTP.Port); err != nil {
		return err
	}
	if c.GRPC.Enabled {
		if err := validPort("grpc.port", c.GRPC.Port); err != nil {
			return err
		}
		if c.GRPC.Port == c.HTTP.Port {
			return fmt.Errorf("grpc.port and http.port must differ (both %d)", c.HTTP.Port)
		}
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive")
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("cors.allowed_origins must not be empty")
	}
	if c.CORS.AllowCredentials {
		for _, o := range c.CORS.AllowedOrigins {
			if o == "*" {
				return fmt.Errorf("cors.allow_credentials cannot be combined with a wildcard origin")
			}
		}
	}
	switch c.LLM.Engine {
	case translate.EngineGemini, translate.EngineOpenRouter:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for the %s engine (set %s_LLM_API_KEY or GEMINI_API_KEY)", c.LLM.Engine, EnvPrefix)
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func validPort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", key, port)
	}
	return nil
}

// stringList reads a list that may come from a config file as a sequence or
// from the environment as a comma-separated string.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
