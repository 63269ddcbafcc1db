package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all tax engine configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Cache     CacheConfig
	Providers ProvidersConfig
	Fallback  FallbackConfig
	Origin    OriginConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds the audit database connection settings. The audit
// database retains imported quarters and import history; lookups themselves
// are served from the in-memory index.
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file path
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// DSN builds the postgres connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection settings for the result cache
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	// Backend selects memory or redis
	Backend string
	// TTL bounds how long a successful result is served from cache
	TTL time.Duration
	// AllowMemoryFallback permits falling back to the in-memory cache when
	// Redis is configured but unreachable
	AllowMemoryFallback bool
}

// AvaTaxConfig holds Avalara AvaTax provider credentials
type AvaTaxConfig struct {
	Enabled     bool
	AccountID   string
	LicenseKey  string
	CompanyCode string
	Sandbox     bool
}

// TaxCloudConfig holds TaxCloud provider credentials
type TaxCloudConfig struct {
	Enabled    bool
	APILoginID string
	APIKey     string
}

// ProvidersConfig holds external provider settings. Providers are tried in
// priority order after the local engine.
type ProvidersConfig struct {
	// Timeout bounds each provider call
	Timeout  time.Duration
	AvaTax   AvaTaxConfig
	TaxCloud TaxCloudConfig
}

// FallbackConfig holds the static per-state default rates used when local
// data and every provider fail.
type FallbackConfig struct {
	// Rates maps a state code to a default percentage rate, e.g. "TX" = "6.25"
	Rates map[string]string
}

// OriginConfig holds the seller address sent to providers that price by
// origin/destination pair.
type OriginConfig struct {
	Street string
	City   string
	State  string
	Zip    string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with TAXENGINE_ prefix (e.g. TAXENGINE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("TAXENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Cache: CacheConfig{
			Backend:             v.GetString("cache.backend"),
			TTL:                 v.GetDuration("cache.ttl"),
			AllowMemoryFallback: v.GetBool("cache.allow_memory_fallback"),
		},
		Providers: ProvidersConfig{
			Timeout: v.GetDuration("providers.timeout"),
			AvaTax: AvaTaxConfig{
				Enabled:     v.GetBool("providers.avatax.enabled"),
				AccountID:   v.GetString("providers.avatax.account_id"),
				LicenseKey:  v.GetString("providers.avatax.license_key"),
				CompanyCode: v.GetString("providers.avatax.company_code"),
				Sandbox:     v.GetBool("providers.avatax.sandbox"),
			},
			TaxCloud: TaxCloudConfig{
				Enabled:    v.GetBool("providers.taxcloud.enabled"),
				APILoginID: v.GetString("providers.taxcloud.api_login_id"),
				APIKey:     v.GetString("providers.taxcloud.api_key"),
			},
		},
		Fallback: FallbackConfig{
			Rates: v.GetStringMapString("fallback.rates"),
		},
		Origin: OriginConfig{
			Street: v.GetString("origin.street"),
			City:   v.GetString("origin.city"),
			State:  v.GetString("origin.state"),
			Zip:    v.GetString("origin.zip"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers built-in defaults
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "taxengine")
	v.SetDefault("app.env", "development")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "taxengine.db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("database.conn_max_idle_time", 10)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 15*time.Minute)
	v.SetDefault("cache.allow_memory_fallback", true)

	v.SetDefault("providers.timeout", 10*time.Second)
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" {
			return fmt.Errorf("postgres driver requires database.host and database.dbname")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite driver requires database.path")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache backend %q", c.Cache.Backend)
	}

	if c.Providers.AvaTax.Enabled && (c.Providers.AvaTax.AccountID == "" || c.Providers.AvaTax.LicenseKey == "") {
		return fmt.Errorf("avatax provider enabled without credentials")
	}
	if c.Providers.TaxCloud.Enabled && (c.Providers.TaxCloud.APILoginID == "" || c.Providers.TaxCloud.APIKey == "") {
		return fmt.Errorf("taxcloud provider enabled without credentials")
	}
	return nil
}

// IsProduction returns true when running in the production environment
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}
