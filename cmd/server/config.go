package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MegaGrindStone/market-web-ui/internal/coordinator"
	"github.com/MegaGrindStone/market-web-ui/internal/models"
	"github.com/MegaGrindStone/market-web-ui/internal/services"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type advisorConfig interface {
	advisor(systemPrompt, proxyURL string, logger *slog.Logger) (coordinator.Advisor, error)
	applyEnv(getenv func(string) string)
	missingCredential() string
}

type quotesConfig interface {
	quotes(proxyURL string, logger *slog.Logger) coordinator.QuoteProvider
	applyEnv(getenv func(string) string)
	missingCredential() string
}

// BaseLLMConfig contains the common fields for all advisor configurations.
type BaseLLMConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature"`
	TopP        *float32 `yaml:"topP"`
	MaxTokens   int      `yaml:"maxTokens"`
	Seed        *int     `yaml:"seed"`
}

type config struct {
	Port          string        `yaml:"port"`
	LogLevel      string        `yaml:"logLevel"`
	LogFormat     string        `yaml:"logFormat"`
	SystemPrompt  string        `yaml:"systemPrompt"`
	ClientVersion string        `yaml:"clientVersion"`
	Locale        string        `yaml:"locale"`
	Exchange      string        `yaml:"exchange"`
	Timeout       time.Duration `yaml:"timeout"`
	HTTPSProxy    string        `yaml:"httpsProxy"`
	Advisor       advisorConfig `yaml:"advisor"`
	Quotes        quotesConfig  `yaml:"quotes"`
}

type openAIConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	BaseURL       string `yaml:"baseURL"`
}

type anthropicConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	BaseURL       string `yaml:"baseURL"`
}

type openRouterConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	BaseURL       string `yaml:"baseURL"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

type webhookConfig struct {
	Provider string `yaml:"provider"`
	URL      string `yaml:"url"`
}

type alphaVantageConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL"`
}

type yahooConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"baseURL"`
}

type demoConfig struct {
	Provider string `yaml:"provider"`
}

const (
	defaultPort          = "8080"
	defaultTimeout       = 15000 * time.Millisecond
	defaultLocale        = "en-IN"
	defaultClientVersion = "1.0.0"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultMaxTokens     = 500

	defaultSystemPrompt = "You are an AI assistant for Indian stock markets (NSE/BSE). Provide clear, concise, " +
		"and compliant insights. Avoid financial advice disclaimers beyond general caution."
)

var defaultTemperature float32 = 0.7

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port          string         `yaml:"port"`
		LogLevel      string         `yaml:"logLevel"`
		LogFormat     string         `yaml:"logFormat"`
		SystemPrompt  string         `yaml:"systemPrompt"`
		ClientVersion string         `yaml:"clientVersion"`
		Locale        string         `yaml:"locale"`
		Exchange      string         `yaml:"exchange"`
		Timeout       time.Duration  `yaml:"timeout"`
		HTTPSProxy    string         `yaml:"httpsProxy"`
		Advisor       map[string]any `yaml:"advisor"`
		Quotes        map[string]any `yaml:"quotes"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	c.Port = rawConfig.Port
	c.LogLevel = rawConfig.LogLevel
	c.LogFormat = rawConfig.LogFormat
	c.SystemPrompt = rawConfig.SystemPrompt
	c.ClientVersion = rawConfig.ClientVersion
	c.Locale = rawConfig.Locale
	c.Exchange = rawConfig.Exchange
	c.Timeout = rawConfig.Timeout
	c.HTTPSProxy = rawConfig.HTTPSProxy

	if rawConfig.Advisor != nil {
		provider, _ := rawConfig.Advisor["provider"].(string)
		advisor, err := newAdvisorConfig(provider)
		if err != nil {
			return err
		}
		if err := decodeSection(rawConfig.Advisor, advisor); err != nil {
			return fmt.Errorf("error decoding advisor config: %w", err)
		}
		c.Advisor = advisor
	}

	if rawConfig.Quotes != nil {
		provider, _ := rawConfig.Quotes["provider"].(string)
		quotes, err := newQuotesConfig(provider)
		if err != nil {
			return err
		}
		if err := decodeSection(rawConfig.Quotes, quotes); err != nil {
			return fmt.Errorf("error decoding quotes config: %w", err)
		}
		c.Quotes = quotes
	}

	return nil
}

func decodeSection(raw map[string]any, v any) error {
	rawYAML, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(rawYAML, v)
}

func newAdvisorConfig(provider string) (advisorConfig, error) {
	switch strings.ToLower(provider) {
	case "", "openai":
		return &openAIConfig{BaseLLMConfig: BaseLLMConfig{Provider: "openai"}}, nil
	case "anthropic":
		return &anthropicConfig{BaseLLMConfig: BaseLLMConfig{Provider: "anthropic"}}, nil
	case "openrouter":
		return &openRouterConfig{BaseLLMConfig: BaseLLMConfig{Provider: "openrouter"}}, nil
	case "ollama":
		return &ollamaConfig{BaseLLMConfig: BaseLLMConfig{Provider: "ollama"}}, nil
	case "webhook", "n8n":
		return &webhookConfig{Provider: "webhook"}, nil
	default:
		return nil, fmt.Errorf("unknown advisor provider: %s", provider)
	}
}

func newQuotesConfig(provider string) (quotesConfig, error) {
	switch strings.ToLower(provider) {
	case "", "alphavantage":
		return &alphaVantageConfig{Provider: "alphavantage"}, nil
	case "yahoo":
		return &yahooConfig{Provider: "yahoo"}, nil
	case "demo":
		return &demoConfig{Provider: "demo"}, nil
	default:
		return nil, fmt.Errorf("unknown quote provider: %s", provider)
	}
}

// loadConfig reads the optional YAML file at path, then applies the environment on top of it and
// fills in the defaults. A missing file is not an error.
func loadConfig(path string, getenv func(string) string) (config, error) {
	cfg := config{}

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return config{}, fmt.Errorf("error opening config file: %w", err)
	default:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c *config) applyEnv(getenv func(string) string) error {
	setString(&c.Port, getenv("PORT"))
	setString(&c.LogLevel, getenv("LOG_LEVEL"))
	setString(&c.LogFormat, getenv("LOG_FORMAT"))
	setString(&c.Locale, getenv("LOCALE"))
	setString(&c.Exchange, getenv("DEFAULT_EXCHANGE"))
	setString(&c.HTTPSProxy, getenv("HTTPS_PROXY"))

	if v := getenv("REQUEST_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return fmt.Errorf("invalid REQUEST_TIMEOUT_MS %q: must be a positive integer", v)
		}
		c.Timeout = time.Duration(ms) * time.Millisecond
	}

	if p := getenv("ADVISOR_PROVIDER"); p != "" {
		advisor, err := newAdvisorConfig(p)
		if err != nil {
			return err
		}
		if c.Advisor == nil || advisorProvider(c.Advisor) != advisorProvider(advisor) {
			c.Advisor = advisor
		}
	}
	if c.Advisor == nil {
		c.Advisor, _ = newAdvisorConfig("")
	}
	c.Advisor.applyEnv(getenv)

	if p := getenv("QUOTE_PROVIDER"); p != "" {
		quotes, err := newQuotesConfig(p)
		if err != nil {
			return err
		}
		if c.Quotes == nil || quotesProvider(c.Quotes) != quotesProvider(quotes) {
			c.Quotes = quotes
		}
	}
	if c.Quotes == nil {
		c.Quotes, _ = newQuotesConfig("")
	}
	c.Quotes.applyEnv(getenv)

	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	if c.ClientVersion == "" {
		c.ClientVersion = defaultClientVersion
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	if _, err := models.ParseExchange(c.Exchange); err != nil {
		return err
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func advisorProvider(a advisorConfig) string {
	switch a.(type) {
	case *anthropicConfig:
		return "anthropic"
	case *openRouterConfig:
		return "openrouter"
	case *ollamaConfig:
		return "ollama"
	case *webhookConfig:
		return "webhook"
	default:
		return "openai"
	}
}

func quotesProvider(q quotesConfig) string {
	switch q.(type) {
	case *yahooConfig:
		return "yahoo"
	case *demoConfig:
		return "demo"
	default:
		return "alphavantage"
	}
}

// exchange returns the configured default exchange. applyEnv has already validated it.
func (c config) exchange() models.Exchange {
	e, _ := models.ParseExchange(c.Exchange)
	return e
}

// slogLevel maps LOG_LEVEL to a slog.Level, defaulting to info.
func (c config) slogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (b *BaseLLMConfig) withDefaults(model string) {
	if b.Model == "" {
		b.Model = model
	}
	if b.Temperature == nil {
		t := defaultTemperature
		b.Temperature = &t
	}
	if b.MaxTokens == 0 {
		b.MaxTokens = defaultMaxTokens
	}
}

func (b BaseLLMConfig) params() services.LLMParameters {
	return services.LLMParameters{
		Temperature: b.Temperature,
		TopP:        b.TopP,
		MaxTokens:   b.MaxTokens,
		Seed:        b.Seed,
	}
}

func (o *openAIConfig) applyEnv(getenv func(string) string) {
	setString(&o.APIKey, getenv("OPENAI_API_KEY"))
	setString(&o.Model, getenv("OPENAI_MODEL"))
	o.withDefaults(defaultOpenAIModel)
}

func (o *openAIConfig) missingCredential() string {
	if o.APIKey == "" {
		return "OPENAI_API_KEY"
	}
	return ""
}

func (o *openAIConfig) advisor(systemPrompt, proxyURL string, logger *slog.Logger) (coordinator.Advisor, error) {
	return services.NewOpenAI(o.APIKey, o.BaseURL, o.Model, systemPrompt, proxyURL, o.params(), logger), nil
}

func (a *anthropicConfig) applyEnv(getenv func(string) string) {
	setString(&a.APIKey, getenv("ANTHROPIC_API_KEY"))
	a.withDefaults("claude-3-5-haiku-latest")
}

func (a *anthropicConfig) missingCredential() string {
	if a.APIKey == "" {
		return "ANTHROPIC_API_KEY"
	}
	return ""
}

func (a *anthropicConfig) advisor(systemPrompt, proxyURL string, logger *slog.Logger) (coordinator.Advisor, error) {
	return services.NewAnthropic(a.APIKey, a.BaseURL, a.Model, systemPrompt, proxyURL, a.params(), logger), nil
}

func (o *openRouterConfig) applyEnv(getenv func(string) string) {
	setString(&o.APIKey, getenv("OPENROUTER_API_KEY"))
	o.withDefaults("openai/gpt-4o-mini")
}

func (o *openRouterConfig) missingCredential() string {
	if o.APIKey == "" {
		return "OPENROUTER_API_KEY"
	}
	return ""
}

func (o *openRouterConfig) advisor(systemPrompt, proxyURL string, logger *slog.Logger) (coordinator.Advisor, error) {
	return services.NewOpenRouter(o.APIKey, o.BaseURL, o.Model, systemPrompt, proxyURL, o.params(), logger), nil
}

func (o *ollamaConfig) applyEnv(getenv func(string) string) {
	setString(&o.Host, getenv("OLLAMA_HOST"))
	if o.Host == "" {
		o.Host = "http://localhost:11434"
	}
	o.withDefaults("llama3.2")
}

func (o *ollamaConfig) missingCredential() string { return "" }

func (o *ollamaConfig) advisor(systemPrompt, proxyURL string, logger *slog.Logger) (coordinator.Advisor, error) {
	return services.NewOllama(o.Host, o.Model, systemPrompt, proxyURL, o.params(), logger)
}

func (w *webhookConfig) applyEnv(getenv func(string) string) {
	setString(&w.URL, getenv("ADVISOR_WEBHOOK_URL"))
}

func (w *webhookConfig) missingCredential() string {
	if w.URL == "" || w.URL == services.WebhookPlaceholderURL {
		return "ADVISOR_WEBHOOK_URL"
	}
	return ""
}

func (w *webhookConfig) advisor(_, proxyURL string, logger *slog.Logger) (coordinator.Advisor, error) {
	return services.NewWebhook(w.URL, proxyURL, logger), nil
}

func (a *alphaVantageConfig) applyEnv(getenv func(string) string) {
	setString(&a.APIKey, getenv("ALPHA_VANTAGE_API_KEY"))
}

func (a *alphaVantageConfig) missingCredential() string {
	if a.APIKey == "" {
		return "ALPHA_VANTAGE_API_KEY"
	}
	return ""
}

func (a *alphaVantageConfig) quotes(proxyURL string, logger *slog.Logger) coordinator.QuoteProvider {
	return services.NewAlphaVantage(a.APIKey, a.BaseURL, proxyURL, logger)
}

func (y *yahooConfig) applyEnv(func(string) string) {}

func (y *yahooConfig) missingCredential() string { return "" }

func (y *yahooConfig) quotes(proxyURL string, logger *slog.Logger) coordinator.QuoteProvider {
	return services.NewYahoo(y.BaseURL, proxyURL, logger)
}

func (d *demoConfig) applyEnv(func(string) string) {}

func (d *demoConfig) missingCredential() string { return "" }

func (d *demoConfig) quotes(string, *slog.Logger) coordinator.QuoteProvider {
	return services.NewDemoQuotes(nil)
}

// configPath returns $CONFIG_PATH, or config.yaml under the user's config directory.
func configPath(getenv func(string) string) string {
	if p := getenv("CONFIG_PATH"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "marketwebui", "config.yaml")
}

// loadDotEnv loads .env from the working directory. Variables already set in the environment
// win; a missing file is ignored.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}
