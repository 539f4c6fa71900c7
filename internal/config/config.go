package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Apify      ApifyConfig      `yaml:"apify" mapstructure:"apify"`
	Providers  ProvidersConfig  `yaml:"providers" mapstructure:"providers"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// NotionConfig holds Notion API credentials and database IDs.
type NotionConfig struct {
	Token        string  `yaml:"token" mapstructure:"token"`
	PeopleDB     string  `yaml:"people_db" mapstructure:"people_db"`
	EnrichmentDB string  `yaml:"enrichment_db" mapstructure:"enrichment_db"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	CacheTTLSecs int     `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// ApifyConfig configures the provider job API.
type ApifyConfig struct {
	Token            string `yaml:"token" mapstructure:"token"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	StatusRetries    int    `yaml:"status_retries" mapstructure:"status_retries"`
	CircuitThreshold int    `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs int    `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// ProviderConfig overrides one provider's defaults.
type ProviderConfig struct {
	ActorID          string `yaml:"actor_id" mapstructure:"actor_id"`
	MaxWaitSecs      int    `yaml:"max_wait_secs" mapstructure:"max_wait_secs"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	Enabled          bool   `yaml:"enabled" mapstructure:"enabled"`
}

// ProvidersConfig holds per-provider overrides.
type ProvidersConfig struct {
	Apollo   ProviderConfig `yaml:"apollo" mapstructure:"apollo"`
	LinkedIn ProviderConfig `yaml:"linkedin" mapstructure:"linkedin"`
}

// EnrichConfig configures the orchestrator.
type EnrichConfig struct {
	StalenessDays       int    `yaml:"staleness_days" mapstructure:"staleness_days"`
	MaxConcurrentPeople int    `yaml:"max_concurrent_people" mapstructure:"max_concurrent_people"`
	TriggerStatus       string `yaml:"trigger_status" mapstructure:"trigger_status"`
	RequestTimeoutSecs  int    `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// StoreConfig configures the attempt history backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MonitoringConfig configures the attempt health checker.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinCompleteness      int     `yaml:"min_completeness" mapstructure:"min_completeness"`
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
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.people_db", "")
	v.SetDefault("notion.enrichment_db", "")
	v.SetDefault("notion.rate_limit", 3.0)
	v.SetDefault("notion.cache_ttl_secs", 300)
	v.SetDefault("apify.token", "")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.status_retries", 1)
	v.SetDefault("apify.circuit_threshold", 5)
	v.SetDefault("apify.circuit_reset_secs", 30)
	v.SetDefault("providers.apollo.actor_id", "jljBwyyQakqrL1wae")
	v.SetDefault("providers.apollo.max_wait_secs", 300)
	v.SetDefault("providers.apollo.poll_interval_secs", 15)
	v.SetDefault("providers.apollo.enabled", true)
	v.SetDefault("providers.linkedin.actor_id", "PEgClm7RgRD7YO94b")
	v.SetDefault("providers.linkedin.max_wait_secs", 180)
	v.SetDefault("providers.linkedin.poll_interval_secs", 10)
	v.SetDefault("providers.linkedin.enabled", true)
	v.SetDefault("enrich.staleness_days", 30)
	v.SetDefault("enrich.max_concurrent_people", 3)
	v.SetDefault("enrich.trigger_status", "Working")
	v.SetDefault("enrich.request_timeout_secs", 600)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "enrich.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.min_completeness", 30)
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

// Validate checks the settings a command mode needs. Modes: run, batch,
// serve, runs, people, import.
func (c *Config) Validate(mode string) error {
	var errs []string
	need := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	notion := func() {
		need(c.Notion.Token != "", "notion.token is required")
		need(c.Notion.PeopleDB != "", "notion.people_db is required")
	}
	enrich := func() {
		notion()
		need(c.Notion.EnrichmentDB != "", "notion.enrichment_db is required")
		need(c.Apify.Token != "", "apify.token is required")
		need(c.Enrich.StalenessDays >= 0, "enrich.staleness_days must be >= 0")
	}
	storeCfg := func() {
		switch strings.ToLower(c.Store.Driver) {
		case store.DriverNone, "":
		case store.DriverSQLite, store.DriverPostgres:
			need(c.Store.DatabaseURL != "", "store.database_url is required")
		default:
			errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
		}
	}

	switch mode {
	case "run":
		enrich()
		storeCfg()
	case "batch":
		enrich()
		storeCfg()
		need(c.Enrich.MaxConcurrentPeople > 0, "enrich.max_concurrent_people must be > 0")
		need(c.Enrich.MaxConcurrentPeople <= 20, "enrich.max_concurrent_people must be <= 20")
	case "serve":
		enrich()
		storeCfg()
		need(c.Server.Port > 0, "server.port must be > 0")
		if c.Monitoring.Enabled {
			need(c.Monitoring.FailureRateThreshold >= 0 && c.Monitoring.FailureRateThreshold <= 1,
				"monitoring.failure_rate_threshold must be between 0 and 1")
		}
	case "runs":
		need(strings.ToLower(c.Store.Driver) != store.DriverNone && c.Store.Driver != "", "store.driver must be set to read history")
		storeCfg()
	case "people", "import":
		notion()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ProviderSettings converts provider overrides for provider.NewDefaultRegistry.
func (c *Config) ProviderSettings() map[model.Provider]provider.Settings {
	conv := func(p ProviderConfig) provider.Settings {
		return provider.Settings{
			ActorID:      p.ActorID,
			MaxWait:      time.Duration(p.MaxWaitSecs) * time.Second,
			PollInterval: time.Duration(p.PollIntervalSecs) * time.Second,
			Disabled:     !p.Enabled,
		}
	}
	return map[model.Provider]provider.Settings{
		model.ProviderApollo:   conv(c.Providers.Apollo),
		model.ProviderLinkedIn: conv(c.Providers.LinkedIn),
	}
}

// StalenessThreshold returns the maximum age of a reusable record.
func (c *Config) StalenessThreshold() time.Duration {
	return time.Duration(c.Enrich.StalenessDays) * 24 * time.Hour
}

// StatusRetry returns the retry policy for job status checks.
func (c *Config) StatusRetry() resilience.RetryConfig {
	return resilience.StatusCheckRetry(c.Apify.StatusRetries)
}

// CircuitBreaker returns the per-provider submission breaker settings.
func (c *Config) CircuitBreaker() resilience.CircuitBreakerConfig {
	return resilience.FromCircuitConfig(c.Apify.CircuitThreshold, c.Apify.CircuitResetSecs)
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
