// Package config loads application settings from config.yaml and PROSPECT_*
// environment variables, and sets up the global logger.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/prospect-enrich/internal/eligibility"
	"github.com/sells-group/prospect-enrich/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig        `yaml:"store" mapstructure:"store"`
	Log         LogConfig          `yaml:"log" mapstructure:"log"`
	Server      ServerConfig       `yaml:"server" mapstructure:"server"`
	Batch       BatchConfig        `yaml:"batch" mapstructure:"batch"`
	Eligibility eligibility.Policy `yaml:"eligibility" mapstructure:"eligibility"`
	Enrichment  EnrichmentConfig   `yaml:"enrichment" mapstructure:"enrichment"`
	Jina        JinaConfig         `yaml:"jina" mapstructure:"jina"`
	Google      GoogleConfig       `yaml:"google" mapstructure:"google"`
	Perplexity  PerplexityConfig   `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl   FirecrawlConfig    `yaml:"firecrawl" mapstructure:"firecrawl"`
	Scrape      ScrapeConfig       `yaml:"scrape" mapstructure:"scrape"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestTimeout  time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// BatchConfig configures automatic enrichment passes.
type BatchConfig struct {
	Limit       int `yaml:"limit" mapstructure:"limit"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	ScanLimit   int `yaml:"scan_limit" mapstructure:"scan_limit"`
}

// BackendConfig toggles and tunes one enrichment backend.
type BackendConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// EnrichmentConfig configures the orchestrator.
type EnrichmentConfig struct {
	MaxContacts    int                      `yaml:"max_contacts" mapstructure:"max_contacts"`
	PerTypeCap     int                      `yaml:"per_type_cap" mapstructure:"per_type_cap"`
	HighScoreAbove float64                  `yaml:"high_score_above" mapstructure:"high_score_above"`
	DefaultTimeout time.Duration            `yaml:"default_timeout" mapstructure:"default_timeout"`
	RetryAttempts  int                      `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	ScrapeWebsite  bool                     `yaml:"scrape_website" mapstructure:"scrape_website"`
	ContactPaths   []string                 `yaml:"contact_paths" mapstructure:"contact_paths"`
	Backends       map[string]BackendConfig `yaml:"backends" mapstructure:"backends"`
	Breaker        resilience.BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// JinaConfig holds Jina reader and search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
	Country       string `yaml:"country" mapstructure:"country"`
	Language      string `yaml:"language" mapstructure:"language"`
	Results       int    `yaml:"results" mapstructure:"results"`
}

// GoogleConfig holds Google Places settings.
type GoogleConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	LanguageCode string `yaml:"language_code" mapstructure:"language_code"`
	RegionCode   string `yaml:"region_code" mapstructure:"region_code"`
	MaxResults   int    `yaml:"max_results" mapstructure:"max_results"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	// ExcludeDomains are dropped from Perplexity's online search.
	ExcludeDomains []string `yaml:"exclude_domains" mapstructure:"exclude_domains"`
	Recency        string   `yaml:"recency" mapstructure:"recency"`
}

// FirecrawlConfig holds Firecrawl API settings (scrape fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScrapeConfig configures direct page fetching.
type ScrapeConfig struct {
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBodySize  int           `yaml:"max_body_size" mapstructure:"max_body_size"`
	Concurrency  int           `yaml:"concurrency" mapstructure:"concurrency"`
	ExcludePaths []string      `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospects.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("batch.limit", 50)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.scan_limit", 200)
	v.SetDefault("eligibility.refresh_after_days", 30)
	v.SetDefault("eligibility.min_completeness_score", 80)
	v.SetDefault("eligibility.max_attempts", 3)
	v.SetDefault("eligibility.force_mode", false)
	v.SetDefault("enrichment.max_contacts", 10)
	v.SetDefault("enrichment.per_type_cap", 3)
	v.SetDefault("enrichment.high_score_above", 70)
	v.SetDefault("enrichment.default_timeout", 20*time.Second)
	v.SetDefault("enrichment.retry_attempts", 2)
	v.SetDefault("enrichment.scrape_website", true)
	v.SetDefault("enrichment.breaker.threshold", 5)
	v.SetDefault("enrichment.breaker.cooldown", 30*time.Second)
	v.SetDefault("enrichment.breaker.probes", 1)
	for _, name := range []string{"jina_search", "google_places", "perplexity", "web_scraper"} {
		v.SetDefault("enrichment.backends."+name+".enabled", true)
	}
	v.SetDefault("enrichment.backends.jina_search.rate_per_second", 2)
	v.SetDefault("enrichment.backends.google_places.rate_per_second", 5)
	v.SetDefault("enrichment.backends.perplexity.rate_per_second", 1)
	v.SetDefault("enrichment.backends.perplexity.timeout", 45*time.Second)
	v.SetDefault("enrichment.backends.web_scraper.timeout", 30*time.Second)
	// API keys have empty defaults so PROSPECT_*_KEY variables are picked up.
	for _, section := range []string{"jina", "google", "perplexity", "firecrawl"} {
		v.SetDefault(section+".key", "")
	}
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("jina.country", "fr")
	v.SetDefault("jina.language", "fr")
	v.SetDefault("jina.results", 5)
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.language_code", "fr")
	v.SetDefault("google.region_code", "FR")
	v.SetDefault("google.max_results", 3)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.max_tokens", 400)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("scrape.timeout", 15*time.Second)
	v.SetDefault("scrape.max_body_size", 2<<20)
	v.SetDefault("scrape.concurrency", 4)
	v.SetDefault("scrape.exclude_paths", []string{"/blog/*", "/news/*", "/actualites/*", "/press/*", "/careers/*", "/recrutement/*", "/tag/*"})

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

// Validate checks the settings a command mode needs: "enrich" and "batch"
// need a store and at least one usable backend, "serve" also a valid port.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		add("store.driver %q is not supported", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		add("store.database_url is required")
	}

	switch mode {
	case "migrate", "import":
	case "enrich", "batch":
		c.validateBackends(add)
	case "serve":
		c.validateBackends(add)
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			add("server.port %d is out of range", c.Server.Port)
		}
	default:
		add("unknown mode %q", mode)
	}

	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
		add("batch.concurrency must be between 1 and 64, got %d", c.Batch.Concurrency)
	}
	if c.Enrichment.MaxContacts < 1 {
		add("enrichment.max_contacts must be positive")
	}
	if c.Eligibility.MinCompletenessScore < 0 || c.Eligibility.MinCompletenessScore > 100 {
		add("eligibility.min_completeness_score must be between 0 and 100")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateBackends(add func(string, ...any)) {
	enabled := 0
	for name, bc := range c.Enrichment.Backends {
		if !bc.Enabled {
			continue
		}
		switch name {
		case "google_places":
			if c.Google.Key == "" {
				add("google.key is required when google_places is enabled")
				continue
			}
		case "perplexity":
			if c.Perplexity.Key == "" {
				add("perplexity.key is required when perplexity is enabled")
				continue
			}
			switch c.Perplexity.Recency {
			case "", "day", "week", "month", "year":
			default:
				add("perplexity.recency must be day, week, month or year, got %q", c.Perplexity.Recency)
			}
		}
		enabled++
	}
	if enabled == 0 {
		add("at least one enrichment backend must be enabled")
	}
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
