package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the campaign-studio service.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Remote     RemoteConfig
	Wizard     WizardConfig
	Upload     UploadConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig configures the wizard event log. Empty Addr disables it.
type ClickHouseConfig struct {
	Addr     string
	Database string
	User     string
	Password string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
	// Upload endpoints get their own, tighter bucket.
	UploadRPS   float64
	UploadBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// RemoteConfig holds the webhook endpoints of the ads API.
type RemoteConfig struct {
	BaseURL       string
	CampaignPath  string
	AdSetPath     string
	UploadPath    string
	AdPath        string
	InsightsPath  string
	StatusPath    string
	AnalysisPath  string
	Timeout       time.Duration
	InsightsLimit int
}

// URL joins the base URL with an endpoint path.
func (r RemoteConfig) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// WizardConfig holds campaign-creation wizard settings.
type WizardConfig struct {
	// DraftBackend is one of memory, redis, postgres.
	DraftBackend     string
	DraftTTL         time.Duration
	Countries        []string
	AcceptedMIME     []string
	MaxUploadBytes   int64
	// MaxBatchFiles caps the pending files of one upload batch.
	MaxBatchFiles    int
	StrictNavigation bool
	// IdleTTL is how long an untouched wizard stays in memory.
	IdleTTL          time.Duration

	DefaultObjective        string
	DefaultStatus           string
	DefaultBillingEvent     string
	DefaultOptimizationGoal string
	DefaultBidStrategy      string
}

// UploadConfig selects where creative files are uploaded.
type UploadConfig struct {
	// Backend is one of webhook, supabase.
	Backend        string
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("STUDIO_HTTP_ADDR", ":8080"),
			Env:             getEnv("STUDIO_ENV", "development"),
			ShutdownTimeout: getDurationEnv("STUDIO_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("STUDIO_DB_HOST", "localhost"),
			Port:     getIntEnv("STUDIO_DB_PORT", 5432),
			User:     getEnv("STUDIO_DB_USER", "studio"),
			Password: getEnv("STUDIO_DB_PASSWORD", "studio_secret"),
			DBName:   getEnv("STUDIO_DB_NAME", "studio"),
			SSLMode:  getEnv("STUDIO_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("STUDIO_DB_MAX_CONNS", 10),
			MinConns: getIntEnv("STUDIO_DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("STUDIO_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("STUDIO_REDIS_PASSWORD", ""),
			DB:       getIntEnv("STUDIO_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     getEnv("STUDIO_CLICKHOUSE_ADDR", ""),
			Database: getEnv("STUDIO_CLICKHOUSE_DB", "studio"),
			User:     getEnv("STUDIO_CLICKHOUSE_USER", "default"),
			Password: getEnv("STUDIO_CLICKHOUSE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("STUDIO_AUTH_ENABLED", true),
			MasterKey: getEnv("STUDIO_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("STUDIO_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getBoolEnv("STUDIO_RATE_LIMIT_ENABLED", true),
			RPS:         getFloatEnv("STUDIO_RATE_LIMIT_RPS", 50),
			Burst:       getIntEnv("STUDIO_RATE_LIMIT_BURST", 20),
			UploadRPS:   getFloatEnv("STUDIO_RATE_LIMIT_UPLOAD_RPS", 5),
			UploadBurst: getIntEnv("STUDIO_RATE_LIMIT_UPLOAD_BURST", 5),
		},
		Log: LogConfig{
			Level:  getEnv("STUDIO_LOG_LEVEL", "info"),
			Format: getEnv("STUDIO_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("STUDIO_METRICS_ENABLED", true),
			Path:    getEnv("STUDIO_METRICS_PATH", "/metrics"),
		},
		Remote: RemoteConfig{
			BaseURL:       getEnv("STUDIO_REMOTE_BASE_URL", "http://localhost:5678/webhook"),
			CampaignPath:  getEnv("STUDIO_REMOTE_CAMPAIGN_PATH", "criarCampanha"),
			AdSetPath:     getEnv("STUDIO_REMOTE_ADSET_PATH", "criarConjunto"),
			UploadPath:    getEnv("STUDIO_REMOTE_UPLOAD_PATH", "uploadCriativo"),
			AdPath:        getEnv("STUDIO_REMOTE_AD_PATH", "criarAnuncio"),
			InsightsPath:  getEnv("STUDIO_REMOTE_INSIGHTS_PATH", "relatorios"),
			StatusPath:    getEnv("STUDIO_REMOTE_STATUS_PATH", "gerenciarStatusDaCampanha"),
			AnalysisPath:  getEnv("STUDIO_REMOTE_ANALYSIS_PATH", "gerarRelatorioPDF"),
			Timeout:       getDurationEnv("STUDIO_REMOTE_TIMEOUT", 60*time.Second),
			InsightsLimit: getIntEnv("STUDIO_REMOTE_INSIGHTS_LIMIT", 300),
		},
		Wizard: WizardConfig{
			DraftBackend:            getEnv("STUDIO_DRAFT_BACKEND", "memory"),
			DraftTTL:                getDurationEnv("STUDIO_DRAFT_TTL", 30*24*time.Hour),
			Countries:               getSliceEnv("STUDIO_WIZARD_COUNTRIES", []string{"BR"}),
			AcceptedMIME:            getSliceEnv("STUDIO_WIZARD_ACCEPTED_MIME", []string{"image/", "video/"}),
			MaxUploadBytes:          int64(getIntEnv("STUDIO_WIZARD_MAX_UPLOAD_BYTES", 64<<20)),
			MaxBatchFiles:           getIntEnv("STUDIO_WIZARD_MAX_BATCH_FILES", 10),
			StrictNavigation:        getBoolEnv("STUDIO_WIZARD_STRICT_NAVIGATION", false),
			IdleTTL:                 getDurationEnv("STUDIO_WIZARD_IDLE_TTL", 2*time.Hour),
			DefaultObjective:        getEnv("STUDIO_WIZARD_DEFAULT_OBJECTIVE", "LINK_CLICKS"),
			DefaultStatus:           getEnv("STUDIO_WIZARD_DEFAULT_STATUS", "PAUSED"),
			DefaultBillingEvent:     getEnv("STUDIO_WIZARD_DEFAULT_BILLING_EVENT", "IMPRESSIONS"),
			DefaultOptimizationGoal: getEnv("STUDIO_WIZARD_DEFAULT_OPTIMIZATION_GOAL", "LINK_CLICKS"),
			DefaultBidStrategy:      getEnv("STUDIO_WIZARD_DEFAULT_BID_STRATEGY", "LOWEST_COST_WITHOUT_CAP"),
		},
		Upload: UploadConfig{
			Backend:        getEnv("STUDIO_UPLOAD_BACKEND", "webhook"),
			SupabaseURL:    getEnv("STUDIO_SUPABASE_URL", ""),
			SupabaseKey:    getEnv("STUDIO_SUPABASE_SERVICE_KEY", ""),
			SupabaseBucket: getEnv("STUDIO_SUPABASE_BUCKET", "creatives"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("STUDIO_API_KEY_MASTER is required when auth is enabled")
	}
	switch c.Wizard.DraftBackend {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown STUDIO_DRAFT_BACKEND %q", c.Wizard.DraftBackend)
	}
	switch c.Upload.Backend {
	case "webhook":
	case "supabase":
		if c.Upload.SupabaseURL == "" || c.Upload.SupabaseKey == "" {
			return fmt.Errorf("STUDIO_SUPABASE_URL and STUDIO_SUPABASE_SERVICE_KEY are required for the supabase upload backend")
		}
	default:
		return fmt.Errorf("unknown STUDIO_UPLOAD_BACKEND %q", c.Upload.Backend)
	}
	if len(c.Wizard.Countries) == 0 {
		return fmt.Errorf("STUDIO_WIZARD_COUNTRIES must list at least one country")
	}
	if c.Wizard.MaxBatchFiles <= 0 {
		return fmt.Errorf("STUDIO_WIZARD_MAX_BATCH_FILES must be positive")
	}
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("STUDIO_REMOTE_BASE_URL is required")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
