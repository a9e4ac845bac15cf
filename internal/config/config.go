// Package config provides configuration management for the DirSync server.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like DATABASE_URL, SERVER_PORT)
// 3. Default values
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	River     RiverConfig     `mapstructure:"river"`
	Security  SecurityConfig  `mapstructure:"security"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Sync      SyncConfig      `mapstructure:"sync"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AppConfig contains dashboard-facing settings.
type AppConfig struct {
	// RootURL is where OAuth callbacks redirect the browser back to.
	// Success and error banners are driven by its query parameters.
	RootURL string `mapstructure:"root_url"`
}

// DatabaseConfig contains PostgreSQL connection settings.
// A single pgxpool is shared by the repositories and River.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RiverConfig contains River Queue settings.
type RiverConfig struct {
	MaxWorkers                  int           `mapstructure:"max_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

// SecurityConfig contains security-related settings.
// The JWT signing secret is auto-generated on first boot if missing.
type SecurityConfig struct {
	JWTSigningSecret string        `mapstructure:"jwt_signing_secret"`
	JWTIssuer        string        `mapstructure:"jwt_issuer"`
	JWTExpiresIn     time.Duration `mapstructure:"jwt_expires_in"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize int `mapstructure:"general_pool_size"`
	ImportPoolSize  int `mapstructure:"import_pool_size"`
}

// ProvidersConfig holds the OAuth credentials for each directory provider.
type ProvidersConfig struct {
	Google    OAuthClientConfig `mapstructure:"google"`
	Microsoft OAuthClientConfig `mapstructure:"microsoft"`

	// CatalogPath optionally points to a YAML file overriding provider
	// endpoints (used for self-hosted proxies and tests).
	CatalogPath string `mapstructure:"catalog_path"`
}

// OAuthClientConfig identifies a registered OAuth application.
type OAuthClientConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	// Tenant applies to Microsoft only ("organizations" by default).
	Tenant string `mapstructure:"tenant"`
}

// Configured reports whether the OAuth application has credentials set.
func (c OAuthClientConfig) Configured() bool {
	return c.ClientID != "" && c.RedirectURI != ""
}

// SyncConfig contains directory-sync settings.
type SyncConfig struct {
	// LogRetention bounds how long sync_log rows are kept.
	LogRetention time.Duration `mapstructure:"log_retention"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from file and environment variables.
// Standard environment variables without prefix (DATABASE_URL, SERVER_PORT,
// PROVIDERS_GOOGLE_CLIENT_ID, etc.).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dirsync")

	// Maps nested config: providers.google.client_id → PROVIDERS_GOOGLE_CLIENT_ID
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}

	// Redirects and the CORS origin both concatenate onto the root URL;
	// a trailing slash would produce double-slash paths.
	cfg.App.RootURL = strings.TrimRight(cfg.App.RootURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Security.JWTSigningSecret == "" {
		return fmt.Errorf("security.jwt_signing_secret must not be empty")
	}
	if len(c.Security.JWTSigningSecret) < 32 {
		return fmt.Errorf("security.jwt_signing_secret must be at least 32 characters")
	}
	if c.App.RootURL == "" {
		return fmt.Errorf("app.root_url must not be empty")
	}
	return nil
}

// ensureSecrets auto-generates missing secrets on first boot.
func (c *Config) ensureSecrets() error {
	if c.Security.JWTSigningSecret == "" {
		secret, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate jwt signing secret: %w", err)
		}
		c.Security.JWTSigningSecret = secret
		logBootstrapWarn(
			"auto-generated jwt_signing_secret; set SECURITY_JWT_SIGNING_SECRET env var for persistence",
			zap.Int("length", len(secret)),
		)
	}
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})

	bootstrapLogger.Warn(msg, fields...)
}

// generateSecureRandomHex produces a hex-encoded string of n random bytes.
func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// App
	v.SetDefault("app.root_url", "http://localhost:3000")

	// Database (shared pool)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dirsync")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "dirsync")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.auto_migrate", false)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// River
	v.SetDefault("river.max_workers", 5)
	v.SetDefault("river.completed_job_retention_period", "24h")

	// Security
	v.SetDefault("security.jwt_issuer", "dirsync")
	v.SetDefault("security.jwt_expires_in", "12h")

	// Worker pools
	v.SetDefault("worker.general_pool_size", 50)
	v.SetDefault("worker.import_pool_size", 10)

	// Providers
	v.SetDefault("providers.microsoft.tenant", "organizations")

	// Sync
	v.SetDefault("sync.log_retention", "2160h") // 90 days
}
