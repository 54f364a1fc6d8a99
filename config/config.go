package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/siherrmann/dealgraph/core/llm"
	"github.com/siherrmann/dealgraph/core/pipeline"
	"github.com/siherrmann/dealgraph/core/queue"
	"github.com/siherrmann/dealgraph/core/scraper"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variable of every config key,
// e.g. DEALGRAPH_SERVER_PORT for server.port.
const EnvPrefix = "DEALGRAPH"

// Config is the complete dealgraph configuration.
type Config struct {
	Database     helper.DatabaseConfiguration `mapstructure:"database" yaml:"database"`
	EmbeddingDim int                          `mapstructure:"embedding_dim" yaml:"embedding_dim"`
	LLM          llm.Config                   `mapstructure:"llm" yaml:"llm"`
	Scraper      scraper.Config               `mapstructure:"scraper" yaml:"scraper"`
	Query        model.QueryConfig            `mapstructure:"query" yaml:"query"`
	Cache        CacheConfig                  `mapstructure:"cache" yaml:"cache"`
	Queue        QueueConfig                  `mapstructure:"queue" yaml:"queue"`
	Server       ServerConfig                 `mapstructure:"server" yaml:"server"`
	Verbose      bool                         `mapstructure:"verbose" yaml:"verbose"`
}

// CacheConfig configures answer caching. Redis is used in addition to the
// in-memory cache when an address is set.
type CacheConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	TTLMinutes    int    `mapstructure:"ttl_minutes" yaml:"ttl_minutes"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"-"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
}

// QueueConfig configures the article event queue. Graph extraction runs
// inline during ingestion when no URL is set.
type QueueConfig struct {
	URL  string `mapstructure:"url" yaml:"url,omitempty"`
	Name string `mapstructure:"name" yaml:"name"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           string   `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Default returns the built-in defaults.
func Default() Config {
	llmConfig := llm.DefaultConfig()
	llmConfig.Provider = "openai"
	llmConfig.Model = "gpt-4o"

	return Config{
		Database: helper.DatabaseConfiguration{
			Host:     "localhost",
			Port:     "5432",
			Database: "dealgraph",
			Username: "postgres",
			Schema:   "public",
			SSLMode:  "disable",
		},
		EmbeddingDim: pipeline.DefaultEmbeddingDim,
		LLM:          llmConfig,
		Scraper:      scraper.DefaultConfig(),
		Query:        model.DefaultQueryConfig(),
		Cache: CacheConfig{
			Enabled:    true,
			TTLMinutes: 60,
		},
		Queue: QueueConfig{
			Name: queue.DefaultQueue,
		},
		Server: ServerConfig{
			Port:           "7861",
			AllowedOrigins: []string{"*"},
		},
	}
}

// envAliases are the plain environment variables read besides DEALGRAPH_*.
var envAliases = map[string][]string{
	"database.host":        {"DATABASE_HOST"},
	"database.port":        {"DATABASE_PORT"},
	"database.database":    {"DATABASE_NAME"},
	"database.username":    {"DATABASE_USERNAME"},
	"database.password":    {"DATABASE_PASSWORD"},
	"database.schema":      {"DATABASE_SCHEMA"},
	"database.sslmode":     {"DATABASE_SSL_MODE"},
	"llm.provider":         {"LLM_PROVIDER"},
	"llm.model":            {"LLM_MODEL"},
	"llm.base_url":         {"LLM_BASE_URL"},
	"llm.api_key":          {"LLM_API_KEY"},
	"cache.redis_addr":     {"REDIS_ADDR"},
	"cache.redis_password": {"REDIS_PASSWORD"},
	"queue.url":            {"RABBITMQ_URL"},
	"server.port":          {"SERVER_PORT"},
}

// Load reads the configuration. Priority from highest to lowest: values
// already set on v (e.g. bound flags), environment, config file, defaults.
// A .env file in the working directory is loaded first. An empty
// configFile searches $HOME/.dealgraph/config.yaml and ./config.yaml.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	// Missing .env files are fine
	_ = godotenv.Load()

	if err := setDefaults(v, Default()); err != nil {
		return nil, helper.NewError("set defaults", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".dealgraph"))
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, helper.NewError("read config", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, helper.NewError("bind env "+key, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, helper.NewError("decode config", err)
	}

	if config.LLM.APIKey == "" {
		config.LLM.APIKey = apiKeyFor(config.LLM.Provider)
	}
	return config, nil
}

// ConfigFileUsed returns the path of the file read by Load, if any.
func ConfigFileUsed(v *viper.Viper) string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// apiKeyFor reads the conventional API key variable of a provider.
func apiKeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// setDefaults registers every key of the default config with viper, so
// that environment variables are picked up on Unmarshal.
func setDefaults(v *viper.Viper, config Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	values := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return err
	}
	setDefaultValues(v, "", values)
	return nil
}

func setDefaultValues(v *viper.Viper, prefix string, values map[string]interface{}) {
	for key, value := range values {
		if nested, ok := value.(map[string]interface{}); ok {
			setDefaultValues(v, prefix+key+".", nested)
			continue
		}
		v.SetDefault(prefix+key, value)
	}
}

// YAML renders the config. Secrets are never written.
func (c Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, helper.NewError("marshal config", err)
	}
	return data, nil
}

// WriteFile writes a documented config file. Existing files are not
// overwritten.
func WriteFile(path string, c Config) error {
	if _, err := os.Stat(path); err == nil {
		return helper.NewError("write config", fmt.Errorf("config file already exists: %s", path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return helper.NewError("create config directory", err)
	}

	data, err := c.YAML()
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("# dealgraph configuration\n")
	b.WriteString("#\n")
	b.WriteString("# Configuration hierarchy (highest to lowest priority):\n")
	b.WriteString("#   1. CLI flags\n")
	b.WriteString("#   2. Environment variables (DEALGRAPH_*, DATABASE_*, LLM_*)\n")
	b.WriteString("#   3. This config file\n")
	b.WriteString("#   4. Built-in defaults\n\n")
	b.Write(data)
	b.WriteString("\n# Secrets are read from the environment only:\n")
	b.WriteString("#   export DATABASE_PASSWORD=...\n")
	b.WriteString("#   export OPENAI_API_KEY=sk-...\n")
	b.WriteString("#   export OPENROUTER_API_KEY=sk-or-...\n")
	b.WriteString("#   export REDIS_PASSWORD=...\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return helper.NewError("write config", err)
	}
	return nil
}

// DefaultPath returns $HOME/.dealgraph/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", helper.NewError("find home directory", err)
	}
	return filepath.Join(home, ".dealgraph", "config.yaml"), nil
}
