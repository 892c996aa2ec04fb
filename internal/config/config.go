package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/research-agent/internal/db"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" mapstructure:"checkpoint"`
	Events     EventsConfig     `yaml:"events" mapstructure:"events"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Tavily     TavilyConfig     `yaml:"tavily" mapstructure:"tavily"`
	SerpAPI    SerpAPIConfig    `yaml:"serpapi" mapstructure:"serpapi"`
	Agent      AgentConfig      `yaml:"agent" mapstructure:"agent"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the long-term memory backend.
type StoreConfig struct {
	Driver      string         `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string         `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string         `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	Pool        *db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// CheckpointConfig configures pipeline state persistence. A missing
// database_url with driver=postgres is a startup failure, not a run failure.
type CheckpointConfig struct {
	Driver      string         `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string         `yaml:"database_url" mapstructure:"database_url"`
	Pool        *db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// EventsConfig selects the event delivery backend.
type EventsConfig struct {
	Backend  string `yaml:"backend" mapstructure:"backend"`
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// TavilyConfig holds Tavily web search API settings.
type TavilyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SerpAPIConfig holds SerpAPI settings.
type SerpAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AgentConfig bounds the research loop.
type AgentConfig struct {
	MaxIterations int `yaml:"max_iterations" mapstructure:"max_iterations"`
	MaxResults    int `yaml:"max_results" mapstructure:"max_results"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "research.db")
	v.SetDefault("checkpoint.driver", "postgres")
	v.SetDefault("events.backend", "local")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("agent.max_iterations", 3)
	v.SetDefault("agent.max_results", 5)
	v.SetDefault("server.port", 8080)
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

	return &cfg, nil
}

// Validate checks the combinations that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required")
	}
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	case "sqlite":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Checkpoint.Driver == "postgres" && c.Checkpoint.DatabaseURL == "" {
		return eris.New("config: checkpoint.database_url is required for the postgres driver")
	}
	if c.Events.Backend == "redis" && c.Events.RedisURL == "" {
		return eris.New("config: events.redis_url is required for the redis backend")
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
