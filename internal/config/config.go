package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Provider names accepted by llm.provider.
const (
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
)

// anthropicKeyPrefix starts every Anthropic API key.
const anthropicKeyPrefix = "sk-ant-"

// Config holds the full application configuration. It is built once at
// startup and passed by value or pointer into the components that need it.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Redis     RedisConfig     `yaml:"redis" mapstructure:"redis"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// AuthConfig holds the shared bearer secret for protected endpoints.
type AuthConfig struct {
	APISecret string `yaml:"api_secret" mapstructure:"api_secret"`
}

// LLMConfig selects and tunes the inference backend.
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	CloudKey          string  `yaml:"cloud_key" mapstructure:"cloud_key"`
	CloudBaseURL      string  `yaml:"cloud_base_url" mapstructure:"cloud_base_url"`
	CloudModel        string  `yaml:"cloud_model" mapstructure:"cloud_model"`
	LocalHost         string  `yaml:"local_host" mapstructure:"local_host"`
	LocalModel        string  `yaml:"local_model" mapstructure:"local_model"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// UseCloud reports whether a cloud credential is configured.
func (c LLMConfig) UseCloud() bool {
	return strings.TrimSpace(c.CloudKey) != ""
}

// Model returns the model name for the active backend.
func (c LLMConfig) Model() string {
	if !c.UseCloud() {
		return c.LocalModel
	}
	if c.CloudModel != "" {
		return c.CloudModel
	}
	if c.Provider == ProviderAnthropic {
		return "claude-haiku-4-5-20251001"
	}
	return "llama3-8b-8192"
}

// RedisConfig points at the rate-limit counter store.
type RedisConfig struct {
	URL string `yaml:"url" mapstructure:"url"`
}

// RateLimitConfig sets per-key request budgets per minute.
type RateLimitConfig struct {
	AnalyzePerMinute int `yaml:"analyze_per_minute" mapstructure:"analyze_per_minute"`
	ChatPerMinute    int `yaml:"chat_per_minute" mapstructure:"chat_per_minute"`
}

// FetchConfig configures homepage retrieval.
type FetchConfig struct {
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxChars     int    `yaml:"max_chars" mapstructure:"max_chars"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
}

// AnalysisConfig configures the analysis orchestrator.
type AnalysisConfig struct {
	QuestionConcurrency int    `yaml:"question_concurrency" mapstructure:"question_concurrency"`
	PromptsFile         string `yaml:"prompts_file" mapstructure:"prompts_file"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultUserAgent mimics a desktop browser; many homepages serve bots a
// stripped or blocked page.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INSIGHTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by existing deployments, and keys that have no
	// default and so are not picked up by AutomaticEnv.
	aliases := map[string][]string{
		"auth.api_secret": {"INSIGHTS_AUTH_API_SECRET", "API_SECRET_KEY"},
		"llm.cloud_key":   {"INSIGHTS_LLM_CLOUD_KEY", "GROQ_API_KEY", "ANTHROPIC_API_KEY"},
		"llm.provider":    {"INSIGHTS_LLM_PROVIDER"},
		"llm.local_host":  {"INSIGHTS_LLM_LOCAL_HOST", "OLLAMA_HOST"},
		"redis.url":       {"INSIGHTS_REDIS_URL", "REDIS_URL"},
		"server.port":     {"INSIGHTS_SERVER_PORT", "PORT"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("llm.cloud_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.cloud_model", "")
	v.SetDefault("llm.local_host", "http://localhost:11434")
	v.SetDefault("llm.local_model", "llama3:8b")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout_secs", 120)
	v.SetDefault("llm.requests_per_second", 0)
	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("ratelimit.analyze_per_minute", 5)
	v.SetDefault("ratelimit.chat_per_minute", 15)
	v.SetDefault("fetch.timeout_secs", 20)
	v.SetDefault("fetch.max_chars", 12000)
	v.SetDefault("fetch.max_body_bytes", 5<<20)
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("analysis.question_concurrency", 4)
	v.SetDefault("analysis.prompts_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaultProvider()
	}

	return &cfg, nil
}

// defaultProvider picks anthropic when ANTHROPIC_API_KEY is the only
// cloud credential in the environment, groq otherwise.
func defaultProvider() string {
	if os.Getenv("ANTHROPIC_API_KEY") != "" &&
		os.Getenv("INSIGHTS_LLM_CLOUD_KEY") == "" &&
		os.Getenv("GROQ_API_KEY") == "" {
		return ProviderAnthropic
	}
	return ProviderGroq
}

// Validate checks the settings a command needs before it starts. Mode is
// "serve" for the HTTP API or "cli" for the one-shot commands.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.LLM.Provider {
	case ProviderGroq, ProviderAnthropic:
	default:
		problems = append(problems, fmt.Sprintf("llm.provider %q is not supported (groq, anthropic)", c.LLM.Provider))
	}
	if c.LLM.Provider != ProviderAnthropic && strings.HasPrefix(strings.TrimSpace(c.LLM.CloudKey), anthropicKeyPrefix) {
		problems = append(problems, fmt.Sprintf("llm.cloud_key is an Anthropic key but llm.provider is %q", c.LLM.Provider))
	}
	if c.Fetch.MaxChars <= 0 {
		problems = append(problems, "fetch.max_chars must be positive")
	}

	if mode == "serve" {
		if strings.TrimSpace(c.Auth.APISecret) == "" {
			problems = append(problems, "auth.api_secret is required (API_SECRET_KEY)")
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
		if c.RateLimit.AnalyzePerMinute <= 0 || c.RateLimit.ChatPerMinute <= 0 {
			problems = append(problems, "ratelimit budgets must be positive")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
