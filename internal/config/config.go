package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	OpenAI  OpenAIConfig  `yaml:"openai" mapstructure:"openai"`
	Embed   EmbedConfig   `yaml:"embed" mapstructure:"embed"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Cluster ClusterConfig `yaml:"cluster" mapstructure:"cluster"`
	Pattern PatternConfig `yaml:"pattern" mapstructure:"pattern"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OpenAIConfig holds the OpenAI-compatible API settings used for both the
// embedding and the optional chat (LLM) collaborators. BaseURL may point at
// a local inference server; leaving Key empty disables the model-assisted
// classification path.
type OpenAIConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
	ChatModel      string `yaml:"chat_model" mapstructure:"chat_model"`
}

// EmbedConfig configures batch embedding generation.
type EmbedConfig struct {
	Enabled         bool    `yaml:"enabled" mapstructure:"enabled"`
	ChunkSize       int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	RequestsPerSec  float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryMaxAttempt int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
}

// ExtractConfig configures question extraction.
type ExtractConfig struct {
	// MinViableCount is the minimum question count the primary section-based
	// pass must produce before the line-oriented fallback takes over.
	MinViableCount int `yaml:"min_viable_count" mapstructure:"min_viable_count"`
}

// ClusterConfig holds per-subject clustering and priority settings.
type ClusterConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	Tier1Threshold      int     `yaml:"tier_1_threshold" mapstructure:"tier_1_threshold"`
	Tier2Threshold      int     `yaml:"tier_2_threshold" mapstructure:"tier_2_threshold"`
	Tier3Threshold      int     `yaml:"tier_3_threshold" mapstructure:"tier_3_threshold"`
}

// PatternConfig configures exam pattern resolution.
type PatternConfig struct {
	// Name selects a built-in scheme: ktu_standard, generic_5_module,
	// generic_6_module. Dir, if set, is scanned for custom YAML patterns.
	Name string `yaml:"name" mapstructure:"name"`
	Dir  string `yaml:"dir" mapstructure:"dir"`
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
	v.SetEnvPrefix("EXAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "exam-insights.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("embed.enabled", false)
	v.SetDefault("embed.chunk_size", 32)
	v.SetDefault("embed.requests_per_sec", 2.0)
	v.SetDefault("embed.timeout_secs", 30)
	v.SetDefault("embed.retry_max_attempts", 3)
	v.SetDefault("extract.min_viable_count", 5)
	v.SetDefault("cluster.similarity_threshold", 0.3)
	v.SetDefault("cluster.tier_1_threshold", 4)
	v.SetDefault("cluster.tier_2_threshold", 3)
	v.SetDefault("cluster.tier_3_threshold", 2)
	v.SetDefault("pattern.name", "ktu_standard")

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
