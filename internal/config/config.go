package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port int `koanf:"port" validate:"min=1,max=65535"`

	// DBPath is the SQLite database file. Parent directories are created on open.
	DBPath string `koanf:"db_path" validate:"required"`

	// DBMaxOpenConns limits open database connections. The default of 1 keeps
	// every statement on a single connection.
	DBMaxOpenConns int `koanf:"db_max_open_conns" validate:"min=0"`

	// LogMode selects the zap preset: "dev" or "prod".
	LogMode string `koanf:"log_mode" validate:"oneof=dev prod development production"`

	// GeminiAPIKey is the server-held credential for the generative AI service.
	// Empty means model calls fail with a configuration error.
	GeminiAPIKey string `koanf:"gemini_api_key"`

	// GeminiModel is the model name passed to GenerateContent.
	GeminiModel string `koanf:"gemini_model" validate:"required"`

	// ExposeGeminiKey controls whether GET /api/config returns GeminiAPIKey.
	ExposeGeminiKey bool `koanf:"expose_gemini_key"`

	// RecorderQueueSize is the capacity of the exchange write queue.
	RecorderQueueSize int `koanf:"recorder_queue_size" validate:"min=1"`

	// Firebase web-client values handed to the frontend as-is.
	FirebaseAPIKey            string `koanf:"firebase_api_key"`
	FirebaseAuthDomain        string `koanf:"firebase_auth_domain"`
	FirebaseProjectID         string `koanf:"firebase_project_id"`
	FirebaseStorageBucket     string `koanf:"firebase_storage_bucket"`
	FirebaseMessagingSenderID string `koanf:"firebase_messaging_sender_id"`
	FirebaseAppID             string `koanf:"firebase_app_id"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:              3001,
		DBPath:            "formulary.db",
		DBMaxOpenConns:    1,
		LogMode:           "dev",
		GeminiModel:       "gemini-2.0-flash",
		ExposeGeminiKey:   true,
		RecorderQueueSize: 64,
	}
}

// envKeys maps recognized environment variables to config keys.
// Anything else in the environment is ignored.
var envKeys = map[string]string{
	"PORT":                         "port",
	"DB_PATH":                      "db_path",
	"DB_MAX_OPEN_CONNS":            "db_max_open_conns",
	"LOG_MODE":                     "log_mode",
	"GEMINI_API_KEY":               "gemini_api_key",
	"GEMINI_MODEL":                 "gemini_model",
	"EXPOSE_GEMINI_KEY":            "expose_gemini_key",
	"RECORDER_QUEUE_SIZE":          "recorder_queue_size",
	"FIREBASE_API_KEY":             "firebase_api_key",
	"FIREBASE_AUTH_DOMAIN":         "firebase_auth_domain",
	"FIREBASE_PROJECT_ID":          "firebase_project_id",
	"FIREBASE_STORAGE_BUCKET":      "firebase_storage_bucket",
	"FIREBASE_MESSAGING_SENDER_ID": "firebase_messaging_sender_id",
	"FIREBASE_APP_ID":              "firebase_app_id",
}

// Load builds the configuration from defaults, an optional YAML file, and the
// environment, in increasing order of precedence. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", mapEnv), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mapEnv returns the config key for a recognized, non-empty variable.
// An empty key tells koanf to skip the variable.
func mapEnv(name, value string) (string, any) {
	key, ok := envKeys[name]
	if !ok || strings.TrimSpace(value) == "" {
		return "", nil
	}
	return key, strings.TrimSpace(value)
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// HasGeminiKey reports whether a model credential is configured.
func (c *Config) HasGeminiKey() bool {
	return strings.TrimSpace(c.GeminiAPIKey) != ""
}
