package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. RECORDER_SERVER_PORT
const EnvPrefix = "RECORDER"

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		initErr = load()
	})
	return initErr
}

func load() error {
	// A .env next to the binary is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}

	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configPath := filepath.Clean("./config/settings.yaml")
	viper.SetConfigFile(configPath)

	if err := viper.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	}

	if err := validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	switch viper.GetString("database.driver") {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %q", viper.GetString("database.driver"))
	}

	if err := validateSecrets(); err != nil {
		return err
	}

	// Auto-correct invalid worker count
	if viper.GetInt("processing.workers") <= 0 {
		viper.Set("processing.workers", 2)
	}
	if viper.GetInt("processing.retry_attempts") <= 0 {
		viper.Set("processing.retry_attempts", 3)
	}

	return nil
}

var placeholders = []string{
	"YOUR_KEY_HERE",
	"YOUR_SECRET_HERE",
	"YOUR_API_KEY",
	"YOUR_API_SECRET",
	"changeme",
	"CHANGEME",
	"",
}

func isPlaceholder(v string) bool {
	for _, p := range placeholders {
		if v == p {
			return true
		}
	}
	return false
}

// validateSecrets refuses placeholder credentials in production and warns elsewhere
func validateSecrets() error {
	env := viper.GetString("environment")
	isProduction := env == "production" || env == "prod"

	secrets := map[string]string{
		"livekit.api_key":    "LiveKit API key",
		"livekit.api_secret": "LiveKit API secret",
		"auth.jwt_secret":    "JWT secret",
		"storage.secret_key": "storage secret key",
	}

	for key, label := range secrets {
		if !isPlaceholder(viper.GetString(key)) {
			continue
		}
		if isProduction {
			return fmt.Errorf("invalid %s: cannot use placeholder values in production", label)
		}
		slog.Warn("configuration value is using a placeholder", "key", key)
	}
	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.LiveKit.APISecret != "" && c.LiveKit.APIKey == "" {
		return fmt.Errorf("livekit api_key is required when api_secret is set")
	}

	if c.Processing.Workers <= 0 {
		c.Processing.Workers = 2
	}
	if c.Processing.RetryAttempts <= 0 {
		c.Processing.RetryAttempts = 3
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 120*time.Second) // analysis runs are synchronous
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.max_body_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "./data/recorder.db")
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("database.max_idle_connections", 5)
	viper.SetDefault("database.connection_max_lifetime", 30*time.Minute)
	viper.SetDefault("database.enable_wal", true)
	viper.SetDefault("database.enable_foreign_keys", true)
	viper.SetDefault("database.log_queries", false)

	// Processing defaults
	viper.SetDefault("processing.workers", 2)
	viper.SetDefault("processing.poll_interval", 2*time.Second)
	viper.SetDefault("processing.job_timeout", 30*time.Minute)
	viper.SetDefault("processing.retry_attempts", 3)
	viper.SetDefault("processing.retry_delay", 5*time.Second)
	viper.SetDefault("processing.failed_retention", 30*24*time.Hour)
	viper.SetDefault("processing.ffmpeg_path", "ffmpeg")
	viper.SetDefault("processing.ffprobe_path", "ffprobe")
	viper.SetDefault("processing.ffmpeg_timeout", 5*time.Minute)
	viper.SetDefault("processing.chunk_seconds", 25)
	viper.SetDefault("processing.max_chunk_bytes", 1024*1024)
	viper.SetDefault("processing.chunk_concurrency", 1)
	viper.SetDefault("processing.temp_dir", os.TempDir())

	// LiveKit defaults
	viper.SetDefault("livekit.url", "http://localhost:7880")
	viper.SetDefault("livekit.api_key", "")
	viper.SetDefault("livekit.api_secret", "")
	viper.SetDefault("livekit.egress_identity_prefix", "EG_")
	viper.SetDefault("livekit.participant_egress", false)
	viper.SetDefault("livekit.request_timeout", 15*time.Second)
	viper.SetDefault("livekit.webhook_leeway", time.Minute)

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.internal_endpoint", "")
	viper.SetDefault("storage.access_key", "")
	viper.SetDefault("storage.secret_key", "")
	viper.SetDefault("storage.bucket", "recordings")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.use_ssl", false)
	viper.SetDefault("storage.presign_ttl", time.Hour)

	// Presigned URL cache defaults
	viper.SetDefault("url_cache.backend", "memory")
	viper.SetDefault("url_cache.max_entries", 10000)
	viper.SetDefault("url_cache.redis_addr", "localhost:6379")
	viper.SetDefault("url_cache.redis_password", "")
	viper.SetDefault("url_cache.redis_db", 0)

	// Speech-to-text defaults
	viper.SetDefault("stt.provider", "openai")
	viper.SetDefault("stt.folder_id", "")
	viper.SetDefault("stt.api_url", "https://api.openai.com/v1/audio/transcriptions")
	viper.SetDefault("stt.api_key", "")
	viper.SetDefault("stt.model", "whisper-1")
	viper.SetDefault("stt.language", "ru")
	viper.SetDefault("stt.timeout", 2*time.Minute)

	// LLM defaults
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.folder_id", "")
	viper.SetDefault("llm.api_url", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.max_tokens", 2000)
	viper.SetDefault("llm.timeout", 90*time.Second)

	viper.SetDefault("prompts", []map[string]string{
		{"id": "summary", "title": "Summary", "text": "Summarize the speaker's contribution to the meeting in a few short paragraphs."},
		{"id": "action-items", "title": "Action items", "text": "List every action item, owner and deadline mentioned by the speaker."},
		{"id": "decisions", "title": "Decisions", "text": "List the decisions the speaker proposed or agreed to."},
	})

	// Idempotency defaults
	viper.SetDefault("idempotency.backend", "db")
	viper.SetDefault("idempotency.redis_addr", "localhost:6379")
	viper.SetDefault("idempotency.redis_password", "")
	viper.SetDefault("idempotency.redis_db", 0)
	viper.SetDefault("idempotency.lease_ttl", 30*time.Second)

	// Events defaults
	viper.SetDefault("events.backend", "none")
	viper.SetDefault("events.nats_url", "nats://localhost:4222")
	viper.SetDefault("events.kafka_brokers", []string{"localhost:9092"})
	viper.SetDefault("events.redis_addr", "localhost:6379")
	viper.SetDefault("events.prefix", "recorder")

	// Auth defaults
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.dev_auth_token", "")

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.endpoints", map[string]int{
		"webhook":  50,
		"analysis": 2,
		"default":  10,
	})

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"*"})

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.add_source", false)

	// Telemetry defaults
	viper.SetDefault("telemetry.service_name", "meeting-recorder")
	viper.SetDefault("telemetry.otlp_endpoint", "")
	viper.SetDefault("telemetry.insecure", true)
	viper.SetDefault("telemetry.sample_ratio", 1.0)
}
