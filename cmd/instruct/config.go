package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	instruct "github.com/ourstudio-se/ai-instruct-sdk"
	"github.com/ourstudio-se/ai-instruct-sdk/llm/anthropic"
	"github.com/ourstudio-se/ai-instruct-sdk/llm/openai"
)

// Supported agent providers.
const (
	providerOpenAI     = "openai"
	providerAnthropic  = "anthropic"
	providerOpenRouter = "openrouter"
)

// cliConfig is the resolved configuration of one command invocation.
type cliConfig struct {
	Provider        string        `mapstructure:"provider"`
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	Temperature     float32       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	MaxRetries      int           `mapstructure:"max_retries"`
	ForceToolChoice bool          `mapstructure:"force_tool_choice"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	RecordsDir      string        `mapstructure:"records_dir"`
	Addr            string        `mapstructure:"addr"`
	LogLevel        string        `mapstructure:"log_level"`
}

// loadConfig resolves flags, INSTRUCT_* environment variables and an optional
// config file, in that order of precedence.
func loadConfig(cmd *cobra.Command) (cliConfig, error) {
	v := viper.New()

	v.SetDefault("provider", providerOpenAI)
	v.SetDefault("model", "gpt-4o")
	v.SetDefault("max_retries", 3)
	v.SetDefault("request_timeout", "60s")
	v.SetDefault("records_dir", "records")
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("INSTRUCT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	bindings := map[string]string{
		"provider":          "provider",
		"api_key":           "api-key",
		"base_url":          "base-url",
		"model":             "model",
		"temperature":       "temperature",
		"max_tokens":        "max-tokens",
		"max_retries":       "max-retries",
		"force_tool_choice": "force-tool",
		"request_timeout":   "timeout",
		"records_dir":       "records",
		"addr":              "addr",
		"log_level":         "log-level",
	}
	for key, name := range bindings {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return cliConfig{}, err
			}
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cliConfig{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg cliConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cliConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newLLMClient builds the provider adapter. The API key is passed through as
// the bearer credential.
func newLLMClient(cfg cliConfig) (instruct.LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required (set --api-key or INSTRUCT_API_KEY)")
	}

	switch cfg.Provider {
	case providerOpenAI:
		return openai.NewFromAPIKey(cfg.APIKey)
	case providerOpenRouter:
		return openai.NewOpenRouter(openai.OpenRouterConfig{APIKey: cfg.APIKey, SiteName: "instruct"})
	case providerAnthropic:
		return anthropic.New(anthropic.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// llmClientFactory builds the agent client of extract and serve. Tests swap
// it for a scripted client.
var llmClientFactory = newLLMClient

func newClient(cfg cliConfig, logger *slog.Logger) (*instruct.Client, error) {
	llm, err := llmClientFactory(cfg)
	if err != nil {
		return nil, err
	}

	return instruct.New(instruct.Config{
		LLMClient:       llm,
		Logger:          logger,
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
		MaxRetries:      cfg.MaxRetries,
		RequestTimeout:  cfg.RequestTimeout,
		ForceToolChoice: cfg.ForceToolChoice,
	})
}
