package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the searchproxy deployment configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache"`
	Search  SearchConfig  `yaml:"search"`
	Models  ModelsConfig  `yaml:"models"`
	Invoke  InvokeConfig  `yaml:"invoke"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds the optional embedding cache settings. The cache is
// disabled when no addresses are configured.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds the deployment-layer search backend settings. Empty
// fields fall through to the built-in defaults at resolution time.
type SearchConfig struct {
	Endpoint              string   `yaml:"endpoint"`
	Region                string   `yaml:"region"`
	Index                 string   `yaml:"index"`
	TopK                  int      `yaml:"top_k"`
	MaxTokens             int      `yaml:"max_tokens"`
	PrimaryContentField   string   `yaml:"primary_content_field"`
	FallbackContentFields []string `yaml:"fallback_content_fields"`
	MetadataFields        []string `yaml:"metadata_fields"`
}

// ModelsConfig holds embedding and generation model settings.
type ModelsConfig struct {
	Provider         string       `yaml:"provider"` // bedrock, openai (default: bedrock)
	Region           string       `yaml:"region"`   // model region, may differ from backend region
	EmbeddingModelID string       `yaml:"embedding_model_id"`
	AnswerModelID    string       `yaml:"answer_model_id"`
	OpenAI           OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds settings for the OpenAI-compatible embedding provider.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// InvokeConfig bounds a single proxy invocation.
type InvokeConfig struct {
	TimeoutSec       int `yaml:"timeout_sec"`
	RetryMaxAttempts int `yaml:"retry_max_attempts"`
	RetryBaseDelayMS int `yaml:"retry_base_delay_ms"`
	MaxRequestBytes  int `yaml:"max_request_bytes"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod),
// then applies deployment environment overrides and defaults.
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyEnvOverrides()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyEnvOverrides applies the deployment environment variables. Each one
// overrides exactly one field; unset variables leave the file values intact.
func (c *Config) ApplyEnvOverrides() {
	setString(&c.Search.Endpoint, "OPENSEARCH_ENDPOINT")
	setString(&c.Search.Region, "OPENSEARCH_REGION")
	setString(&c.Search.Index, "OPENSEARCH_INDEX")
	setInt(&c.Search.TopK, "SEARCH_TOP_K")
	setInt(&c.Search.MaxTokens, "ANSWER_MAX_TOKENS")
	setString(&c.Search.PrimaryContentField, "PRIMARY_CONTENT_FIELD")
	setFields(&c.Search.FallbackContentFields, "FALLBACK_CONTENT_FIELDS")
	setFields(&c.Search.MetadataFields, "METADATA_FIELDS")
	setString(&c.Models.Region, "BEDROCK_REGION")
	setString(&c.Models.EmbeddingModelID, "EMBEDDING_MODEL_ID")
	setString(&c.Models.AnswerModelID, "ANSWER_MODEL_ID")
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	// Env expansion may leave empty entries; an empty list disables the cache.
	c.Cache.Addrs = dropEmpty(c.Cache.Addrs)
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Writes wait on the whole pipeline, so they get the invocation budget.
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 900
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Models.Provider == "" {
		c.Models.Provider = "bedrock"
	}
	if c.Invoke.TimeoutSec <= 0 {
		c.Invoke.TimeoutSec = 60
	}
	if c.Invoke.RetryMaxAttempts <= 0 {
		c.Invoke.RetryMaxAttempts = 3
	}
	if c.Invoke.RetryBaseDelayMS <= 0 {
		c.Invoke.RetryBaseDelayMS = 1000
	}
	if c.Invoke.MaxRequestBytes <= 0 {
		c.Invoke.MaxRequestBytes = 1 << 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Models.Provider {
	case "bedrock", "openai":
		// ok
	default:
		return fmt.Errorf("models.provider must be \"bedrock\" or \"openai\", got %q", c.Models.Provider)
	}
	if c.Models.Provider == "openai" && c.Models.OpenAI.APIKey == "" {
		return fmt.Errorf("models.openai.api_key is required for the openai provider")
	}
	return nil
}

func dropEmpty(list []string) []string {
	out := list[:0]
	for _, v := range list {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func setString(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func setInt(dst *int, name string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = n
	}
}

// setFields parses a field list given either as a JSON array or as a
// comma-separated string.
func setFields(dst *[]string, name string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if strings.HasPrefix(strings.TrimSpace(v), "[") {
		var list []string
		if err := json.Unmarshal([]byte(v), &list); err == nil {
			*dst = list
			return
		}
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
