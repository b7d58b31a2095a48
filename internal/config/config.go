package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the server configuration loaded from the environment, .env
// files and an optional config file.
type Config struct {
	Port            string        `validate:"required,numeric"`
	ClientOrigins   []string      `validate:"required,dive,required"`
	LogLevel        string        `validate:"oneof=debug info warn error"`
	LLMProvider     string        `validate:"oneof=mock openai gemini"`
	STTProvider     string        `validate:"oneof=mock whisper google"`
	TTSProvider     string        `validate:"oneof=mock google elevenlabs"`
	IdleTimeout     time.Duration `validate:"gt=0"`
	CleanupInterval time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	TTSCacheSize    int           `validate:"gte=0"`

	// ConfigFile is the config file that was read, if any
	ConfigFile string
}

var defaults = map[string]interface{}{
	"port":             "8080",
	"client_origin":    "http://localhost:3000",
	"log_level":        "info",
	"llm_provider":     "mock",
	"stt_provider":     "mock",
	"tts_provider":     "mock",
	"idle_timeout":     "30m",
	"cleanup_interval": "1m",
	"shutdown_timeout": "10s",
	"tts_cache_size":   256,
}

// Load reads the configuration. Environment variables win over the config
// file, which wins over the defaults. An empty configFile looks for an
// optional interviewer.yaml in the working directory.
func Load(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("interviewer")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	config := &Config{
		Port:            v.GetString("port"),
		ClientOrigins:   splitList(v.GetString("client_origin")),
		LogLevel:        strings.ToLower(v.GetString("log_level")),
		LLMProvider:     strings.ToLower(v.GetString("llm_provider")),
		STTProvider:     strings.ToLower(v.GetString("stt_provider")),
		TTSProvider:     strings.ToLower(v.GetString("tts_provider")),
		IdleTimeout:     v.GetDuration("idle_timeout"),
		CleanupInterval: v.GetDuration("cleanup_interval"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		TTSCacheSize:    v.GetInt("tts_cache_size"),
		ConfigFile:      v.ConfigFileUsed(),
	}

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate validates the configuration
func Validate(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// NewLogger builds the zap logger for the configured level. The debug level
// uses the development encoder.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// loadEnvFiles loads environment variables from .env files. Variables that
// are already set are kept.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
