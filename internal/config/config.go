// Package config loads runtime settings from tamsal.yaml, TAMSAL_* environment
// variables and command flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tamsal/storefront/internal/adapters/llm"
	"github.com/tamsal/storefront/internal/adapters/sessionstore"
	"github.com/tamsal/storefront/internal/domain/entities"
)

const (
	EnvPrefix      = "TAMSAL"
	ConfigName     = "tamsal"
	DefaultAddr    = ":8080"
	DefaultTimeout = 120 * time.Second
)

// Config is the resolved application configuration.
type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	GenAI struct {
		APIKey        string        `mapstructure:"api_key"`
		BaseURL       string        `mapstructure:"base_url"`
		ChatModel     string        `mapstructure:"chat_model"`
		EstimateModel string        `mapstructure:"estimate_model"`
		Timeout       time.Duration `mapstructure:"timeout"`
	} `mapstructure:"genai"`

	Catalog struct {
		Path  string `mapstructure:"path"`
		Watch bool   `mapstructure:"watch"`
	} `mapstructure:"catalog"`

	Sessions struct {
		Max int `mapstructure:"max"`
	} `mapstructure:"sessions"`

	Store struct {
		Language string `mapstructure:"language"`
	} `mapstructure:"store"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// New returns a viper instance with defaults and environment bindings applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.tamsal")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("genai.base_url", llm.DefaultBaseURL)
	v.SetDefault("genai.chat_model", llm.DefaultChatModel)
	v.SetDefault("genai.estimate_model", llm.DefaultEstimateModel)
	v.SetDefault("genai.timeout", DefaultTimeout)
	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.watch", false)
	v.SetDefault("sessions.max", sessionstore.DefaultMaxSessions)
	v.SetDefault("store.language", string(entities.DefaultLanguage))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// The hosted model key is commonly exported without our prefix.
	_ = v.BindEnv("genai.api_key", EnvPrefix+"_GENAI_API_KEY", "API_KEY", "GEMINI_API_KEY")
	return v
}

// BindFlags maps command flags onto config keys. Only flags present in fs are bound.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %q: %w", flag, err)
		}
	}
	return nil
}

// Load reads the optional config file (explicit path or tamsal.yaml on the
// search path) and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if _, err := entities.ParseLanguage(c.Store.Language); err != nil {
		return fmt.Errorf("store.language: %w", err)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if c.GenAI.Timeout < 0 {
		return errors.New("genai.timeout: must not be negative")
	}
	return nil
}

// Language returns the store's default display language.
func (c *Config) Language() entities.Language {
	lang, err := entities.ParseLanguage(c.Store.Language)
	if err != nil {
		return entities.DefaultLanguage
	}
	return lang
}

// Gemini returns the adapter configuration.
func (c *Config) Gemini() llm.GeminiConfig {
	return llm.GeminiConfig{
		BaseURL:       c.GenAI.BaseURL,
		APIKey:        c.GenAI.APIKey,
		ChatModel:     c.GenAI.ChatModel,
		EstimateModel: c.GenAI.EstimateModel,
		Timeout:       c.GenAI.Timeout,
	}
}

// NewLogger builds the process logger.
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.Out = out
	if level, err := logrus.ParseLevel(c.Log.Level); err == nil {
		log.Level = level
	}
	if c.Log.Format == "text" {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
		return log
	}
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	return log
}
