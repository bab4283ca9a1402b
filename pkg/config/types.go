package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment  string             `mapstructure:"environment"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Processing   ProcessingConfig   `mapstructure:"processing"`
	LiveKit      LiveKitConfig      `mapstructure:"livekit"`
	Storage      StorageConfig      `mapstructure:"storage"`
	URLCache     URLCacheConfig     `mapstructure:"url_cache"`
	STT          STTConfig          `mapstructure:"stt"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Prompts      []PromptConfig     `mapstructure:"prompts"`
	Idempotency  IdempotencyConfig  `mapstructure:"idempotency"`
	Events       EventsConfig       `mapstructure:"events"`
	Auth         AuthConfig         `mapstructure:"auth"`
	RateLimiting RateLimitConfig    `mapstructure:"rate_limiting"`
	Security     SecurityConfig     `mapstructure:"security"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Driver                string        `mapstructure:"driver"` // sqlite or postgres
	Path                  string        `mapstructure:"path"`
	DSN                   string        `mapstructure:"dsn"`
	MaxConnections        int           `mapstructure:"max_connections"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
	EnableWAL             bool          `mapstructure:"enable_wal"`
	EnableForeignKeys     bool          `mapstructure:"enable_foreign_keys"`
	LogQueries            bool          `mapstructure:"log_queries"`
}

// ProcessingConfig contains queue and audio processing settings
type ProcessingConfig struct {
	Workers          int           `mapstructure:"workers"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	JobTimeout       time.Duration `mapstructure:"job_timeout"`
	RetryAttempts    int           `mapstructure:"retry_attempts"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	FailedRetention  time.Duration `mapstructure:"failed_retention"`
	FFmpegPath       string        `mapstructure:"ffmpeg_path"`
	FFprobePath      string        `mapstructure:"ffprobe_path"`
	FFmpegTimeout    time.Duration `mapstructure:"ffmpeg_timeout"`
	ChunkSeconds     int           `mapstructure:"chunk_seconds"`
	MaxChunkBytes    int64         `mapstructure:"max_chunk_bytes"`
	ChunkConcurrency int           `mapstructure:"chunk_concurrency"`
	TempDir          string        `mapstructure:"temp_dir"`
}

// LiveKitConfig contains media server credentials and recording behaviour
type LiveKitConfig struct {
	URL                  string        `mapstructure:"url"`
	APIKey               string        `mapstructure:"api_key"`
	APISecret            string        `mapstructure:"api_secret"`
	EgressIdentityPrefix string        `mapstructure:"egress_identity_prefix"`
	ParticipantEgress    bool          `mapstructure:"participant_egress"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	WebhookLeeway        time.Duration `mapstructure:"webhook_leeway"`
}

// StorageConfig contains object storage settings
type StorageConfig struct {
	Endpoint         string        `mapstructure:"endpoint"`
	InternalEndpoint string        `mapstructure:"internal_endpoint"` // address the egress workers upload to
	AccessKey        string        `mapstructure:"access_key"`
	SecretKey        string        `mapstructure:"secret_key"`
	Bucket           string        `mapstructure:"bucket"`
	Region           string        `mapstructure:"region"`
	UseSSL           bool          `mapstructure:"use_ssl"`
	PresignTTL       time.Duration `mapstructure:"presign_ttl"`
}

// URLCacheConfig selects where presigned download links are cached
type URLCacheConfig struct {
	Backend       string `mapstructure:"backend"` // none, memory or redis
	MaxEntries    int    `mapstructure:"max_entries"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// STTConfig contains speech-to-text API settings
type STTConfig struct {
	Provider string        `mapstructure:"provider"` // openai or speechkit
	APIURL   string        `mapstructure:"api_url"`
	APIKey   string        `mapstructure:"api_key"`
	FolderID string        `mapstructure:"folder_id"` // speechkit only
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LLMConfig contains chat completion API settings
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // openai or yandexgpt
	APIURL      string        `mapstructure:"api_url"`
	APIKey      string        `mapstructure:"api_key"`
	FolderID    string        `mapstructure:"folder_id"` // yandexgpt only
	Model       string        `mapstructure:"model"`
	Temperature *float64      `mapstructure:"temperature"` // nil means the default
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PromptConfig is one entry of the analysis prompt catalog
type PromptConfig struct {
	ID    string `mapstructure:"id"`
	Title string `mapstructure:"title"`
	Text  string `mapstructure:"text"`
}

// IdempotencyConfig selects the lease backend
type IdempotencyConfig struct {
	Backend       string        `mapstructure:"backend"` // db or redis
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	LeaseTTL      time.Duration `mapstructure:"lease_ttl"`
}

// EventsConfig selects where pipeline notifications are published
type EventsConfig struct {
	Backend      string   `mapstructure:"backend"` // none, nats, kafka or redis
	NATSURL      string   `mapstructure:"nats_url"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	RedisAddr    string   `mapstructure:"redis_addr"`
	Prefix       string   `mapstructure:"prefix"`
}

// AuthConfig contains user session token settings
type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`
	DevAuthToken string `mapstructure:"dev_auth_token"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	Endpoints map[string]int `mapstructure:"endpoints"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	EnableCORS  bool     `mapstructure:"enable_cors"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

// TelemetryConfig contains tracing settings
type TelemetryConfig struct {
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}
