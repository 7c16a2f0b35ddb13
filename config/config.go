package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the learning path service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Search    SearchConfig    `mapstructure:"search"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address       string   `mapstructure:"address"`
	JWTSecret     string   `mapstructure:"jwt_secret"`
	CORSOrigins   []string `mapstructure:"cors_origins"`
	AutoMigrate   bool     `mapstructure:"auto_migrate"`
	MigrationsDir string   `mapstructure:"migrations_dir"`
}

// ProvidersConfig holds credentials for the external services.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Tavily APIConfig    `mapstructure:"tavily"`
	Serper APIConfig    `mapstructure:"serper"`
	Brave  APIConfig    `mapstructure:"brave"`
}

// OpenAIConfig configures the structured-record provider.
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// APIConfig is a key plus optional endpoint override.
type APIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// SearchConfig selects and tunes the search provider.
type SearchConfig struct {
	Provider        string        `mapstructure:"provider"` // tavily, serper, brave
	ResultsPerQuery int           `mapstructure:"results_per_query"`
	MaxLeads        int           `mapstructure:"max_leads"`
	SearchDepth     string        `mapstructure:"search_depth"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// FetchConfig selects and tunes the page content extractor.
type FetchConfig struct {
	Fetcher      string             `mapstructure:"fetcher"` // tavily, http, chromedp
	ExtractDepth string             `mapstructure:"extract_depth"`
	UserAgent    string             `mapstructure:"user_agent"`
	Timeout      time.Duration      `mapstructure:"timeout"`
	MaxBodyBytes int64              `mapstructure:"max_body_bytes"`
	DomainPolicy DomainPolicyConfig `mapstructure:"domain_policy"`
}

// PipelineConfig holds the stage knobs.
type PipelineConfig struct {
	MaxURLs            int           `mapstructure:"max_urls"`
	TokenLimit         int           `mapstructure:"token_limit"`
	MaxOutputTokens    int           `mapstructure:"max_output_tokens"`
	MaxPerBucket       int           `mapstructure:"max_per_bucket"`
	LowTotalThreshold  int           `mapstructure:"low_total_threshold"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff"`
	ExtractConcurrency int           `mapstructure:"extract_concurrency"`
}

// Normalize applies defaults for unset pipeline values.
func (p PipelineConfig) Normalize() PipelineConfig {
	if p.MaxURLs <= 0 {
		p.MaxURLs = 10
	}
	if p.TokenLimit <= 0 {
		p.TokenLimit = 1800
	}
	if p.MaxOutputTokens <= 0 {
		p.MaxOutputTokens = 900
	}
	if p.MaxPerBucket <= 0 {
		p.MaxPerBucket = 5
	}
	if p.LowTotalThreshold <= 0 {
		p.LowTotalThreshold = 3
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.RetryBackoff <= 0 {
		p.RetryBackoff = 500 * time.Millisecond
	}
	if p.ExtractConcurrency <= 0 {
		p.ExtractConcurrency = 1
	}
	return p
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN returns the connection string, building one from parts when url is unset.
func (p PostgresConfig) DSN() string {
	if u := strings.TrimSpace(p.URL); u != "" {
		return u
	}
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	if p.User != "" {
		dsn.User = url.UserPassword(p.User, p.Password)
	}
	return dsn.String()
}

// RedisConfig contains Redis connection settings. The audit stream is only
// published when Enabled is set.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Stream       string        `mapstructure:"stream"`
	StreamMaxLen int64         `mapstructure:"stream_max_len"`
}

// Address returns addr, or host:port when addr is unset.
func (r RedisConfig) Address() string {
	if a := strings.TrimSpace(r.Addr); a != "" {
		return a
	}
	return net.JoinHostPort(r.Host, r.Port)
}

func (r RedisConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if strings.TrimSpace(r.Addr) != "" {
		return nil
	}
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// TelemetryConfig contains tracing settings
type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && strings.TrimSpace(t.OTLPEndpoint) == "" {
		return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is enabled")
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be between 0 and 1")
	}
	return nil
}

var (
	searchProviders = []string{"tavily", "serper", "brave"}
	fetchers        = []string{"tavily", "http", "chromedp"}
)

// Validate checks the credentials needed by the selected providers. Postgres
// is checked separately by the commands that need it.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Providers.OpenAI.APIKey) == "" {
		return fmt.Errorf("providers.openai.api_key is required (or OPENAI_API_KEY)")
	}
	provider := strings.ToLower(strings.TrimSpace(c.Search.Provider))
	if !contains(searchProviders, provider) {
		return fmt.Errorf("search.provider must be one of %s", strings.Join(searchProviders, ", "))
	}
	if c.searchKey(provider) == "" {
		return fmt.Errorf("providers.%s.api_key is required for search.provider %q", provider, provider)
	}
	fetcher := strings.ToLower(strings.TrimSpace(c.Fetch.Fetcher))
	if !contains(fetchers, fetcher) {
		return fmt.Errorf("fetch.fetcher must be one of %s", strings.Join(fetchers, ", "))
	}
	if fetcher == "tavily" && strings.TrimSpace(c.Providers.Tavily.APIKey) == "" {
		return fmt.Errorf("providers.tavily.api_key is required for fetch.fetcher \"tavily\"")
	}
	if err := c.Fetch.DomainPolicy.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Redis.Validate(); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}

// SearchAPIKey returns the key of the selected search provider.
func (c *Config) SearchAPIKey() string {
	return c.searchKey(strings.ToLower(strings.TrimSpace(c.Search.Provider)))
}

func (c *Config) searchKey(provider string) string {
	switch provider {
	case "tavily":
		return strings.TrimSpace(c.Providers.Tavily.APIKey)
	case "serper":
		return strings.TrimSpace(c.Providers.Serper.APIKey)
	case "brave":
		return strings.TrimSpace(c.Providers.Brave.APIKey)
	}
	return ""
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// envAliases binds the conventional unprefixed variable names.
var envAliases = map[string]string{
	"providers.openai.api_key": "OPENAI_API_KEY",
	"providers.tavily.api_key": "TAVILY_API_KEY",
	"providers.serper.api_key": "SERPER_API_KEY",
	"providers.brave.api_key":  "BRAVE_API_KEY",
	"storage.postgres.url":     "DATABASE_URL",
	"storage.redis.addr":       "REDIS_ADDR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.request_timeout", 5*time.Minute)

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.auto_migrate", false)
	v.SetDefault("server.migrations_dir", "file://migrations")

	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.openai.timeout", 60*time.Second)
	for _, p := range searchProviders {
		v.SetDefault("providers."+p+".api_key", "")
		v.SetDefault("providers."+p+".base_url", "")
	}

	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.results_per_query", 6)
	v.SetDefault("search.max_leads", 12)
	v.SetDefault("search.search_depth", "basic")
	v.SetDefault("search.timeout", 20*time.Second)

	v.SetDefault("fetch.fetcher", "tavily")
	v.SetDefault("fetch.extract_depth", "basic")
	v.SetDefault("fetch.user_agent", "learnpath/1.0 (+https://github.com/mohammad-safakhou/learnpath)")
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_body_bytes", int64(4<<20))
	v.SetDefault("fetch.domain_policy.allow", []string{})
	v.SetDefault("fetch.domain_policy.disallow", []string{})

	v.SetDefault("pipeline.max_urls", 10)
	v.SetDefault("pipeline.token_limit", 1800)
	v.SetDefault("pipeline.max_output_tokens", 900)
	v.SetDefault("pipeline.max_per_bucket", 5)
	v.SetDefault("pipeline.low_total_threshold", 3)
	v.SetDefault("pipeline.max_attempts", 1)
	v.SetDefault("pipeline.retry_backoff", 500*time.Millisecond)
	v.SetDefault("pipeline.extract_concurrency", 1)

	v.SetDefault("storage.postgres.url", "")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", "5432")
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.dbname", "learnpath")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.timeout", 5*time.Second)
	v.SetDefault("storage.redis.enabled", false)
	v.SetDefault("storage.redis.addr", "")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 3*time.Second)
	v.SetDefault("storage.redis.stream", "learnpath:agent_runs")
	v.SetDefault("storage.redis.stream_max_len", int64(10000))

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "learnpath")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// LoadConfig loads config from path, or searches the usual locations for
// config.json when path is empty. A missing file is not an error when
// searching; everything can come from LEARNPATH_* variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config") // path to look for the config file in
		v.AddConfigPath(".")        // optionally look for config in the working directory
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)                                // bin/
			v.AddConfigPath(filepath.Join(exeDir, "..", "config")) // repo root/config
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("LEARNPATH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // read in environment variables that match (LEARNPATH_*)
	for key, alias := range envAliases {
		envKey := "LEARNPATH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", alias, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Search.Provider = strings.ToLower(strings.TrimSpace(cfg.Search.Provider))
	cfg.Fetch.Fetcher = strings.ToLower(strings.TrimSpace(cfg.Fetch.Fetcher))
	cfg.Fetch.DomainPolicy = cfg.Fetch.DomainPolicy.Normalize()
	cfg.Pipeline = cfg.Pipeline.Normalize()
	return &cfg, nil
}
