package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// maxReconcileConcurrency caps parallel fallback lookups against the platform
const maxReconcileConcurrency = 8

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Ginee     GineeConfig
	Reconcile ReconcileConfig
	Scheduler SchedulerConfig
	Profiling ProfilingConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string // health probe port
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds probe server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled               bool    // Whether to enable tracing
	CollectorEndpoint     string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio         float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName           string
	Insecure              bool // Use insecure (non-TLS) connection (development only)
	MetricsEnabled        bool
	MetricsExportInterval time.Duration
	DBTraceEnabled        bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL          bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh     time.Duration // Slow query threshold for warnings
	LogsEnabled           bool          // Export logs to the collector through the zap bridge
}

// ProfilingConfig holds Pyroscope continuous profiling configuration
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string // e.g. "http://pyroscope:4040"
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	SpanProfiles      bool // link spans to profiles via span_id labels
	ProfileMutex      bool
	ProfileBlock      bool
}

// GineeConfig holds inventory platform credentials and endpoints
type GineeConfig struct {
	BaseURL       string
	AccessKey     string
	SecretKey     string
	Country       string
	WarehouseID   string
	ListTimeout   time.Duration
	UpdateTimeout time.Duration
}

// ReconcileConfig holds the default batch options and batch lock settings
type ReconcileConfig struct {
	PageSize      int
	MaxPages      int
	MaxRetries    int
	RetryBackoff  time.Duration
	ChunkSize     int
	Concurrency   int
	FallbackDelay time.Duration
	LockEnabled   bool
	LockBackend   string // redis or memory
	LockTTL       time.Duration
}

// SchedulerConfig holds scheduled reconciliation configuration
type SchedulerConfig struct {
	Enabled           bool
	Interval          time.Duration
	RunOnStart        bool
	DryRun            bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ERP_ prefix (e.g., ERP_GINEE_ACCESS_KEY)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
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
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsEnabled:        v.GetBool("telemetry.metrics_enabled"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:          v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh:     v.GetDuration("telemetry.db_slow_query_threshold"),
			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
		},
		Profiling: ProfilingConfig{
			Enabled:           v.GetBool("profiling.enabled"),
			ServerAddress:     v.GetString("profiling.server_address"),
			ApplicationName:   v.GetString("profiling.application_name"),
			BasicAuthUser:     v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiling.basic_auth_password"),
			SpanProfiles:      v.GetBool("profiling.span_profiles"),
			ProfileMutex:      v.GetBool("profiling.profile_mutex"),
			ProfileBlock:      v.GetBool("profiling.profile_block"),
		},
		Ginee: GineeConfig{
			BaseURL:       v.GetString("ginee.base_url"),
			AccessKey:     v.GetString("ginee.access_key"),
			SecretKey:     v.GetString("ginee.secret_key"),
			Country:       v.GetString("ginee.country"),
			WarehouseID:   v.GetString("ginee.warehouse_id"),
			ListTimeout:   v.GetDuration("ginee.list_timeout"),
			UpdateTimeout: v.GetDuration("ginee.update_timeout"),
		},
		Reconcile: ReconcileConfig{
			PageSize:      v.GetInt("reconcile.page_size"),
			MaxPages:      v.GetInt("reconcile.max_pages"),
			MaxRetries:    v.GetInt("reconcile.max_retries"),
			RetryBackoff:  v.GetDuration("reconcile.retry_backoff"),
			ChunkSize:     v.GetInt("reconcile.chunk_size"),
			Concurrency:   v.GetInt("reconcile.concurrency"),
			FallbackDelay: v.GetDuration("reconcile.fallback_delay"),
			// the lock is on unless explicitly switched off
			LockEnabled: !v.IsSet("reconcile.lock_enabled") || v.GetBool("reconcile.lock_enabled"),
			LockBackend: v.GetString("reconcile.lock_backend"),
			LockTTL:     v.GetDuration("reconcile.lock_ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			Interval:          v.GetDuration("scheduler.interval"),
			RunOnStart:        v.GetBool("scheduler.run_on_start"),
			DryRun:            v.GetBool("scheduler.dry_run"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:     v.GetInt("scheduler.retry_attempts"),
			RetryDelay:        v.GetDuration("scheduler.retry_delay"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "inventory-reconciler"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8081"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "sneakerflash"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 5 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 5 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}

	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.App.Name
	}

	// Ginee defaults
	if cfg.Ginee.BaseURL == "" {
		cfg.Ginee.BaseURL = "https://api.ginee.com"
	}
	if cfg.Ginee.Country == "" {
		cfg.Ginee.Country = "ID"
	}
	if cfg.Ginee.ListTimeout == 0 {
		cfg.Ginee.ListTimeout = 30 * time.Second
	}
	if cfg.Ginee.UpdateTimeout == 0 {
		cfg.Ginee.UpdateTimeout = 15 * time.Second
	}

	// Reconcile defaults
	if cfg.Reconcile.PageSize == 0 {
		cfg.Reconcile.PageSize = 500
	}
	if cfg.Reconcile.MaxPages == 0 {
		cfg.Reconcile.MaxPages = 50
	}
	if cfg.Reconcile.MaxRetries == 0 {
		cfg.Reconcile.MaxRetries = 3
	}
	if cfg.Reconcile.RetryBackoff == 0 {
		cfg.Reconcile.RetryBackoff = 2 * time.Second
	}
	if cfg.Reconcile.ChunkSize == 0 {
		cfg.Reconcile.ChunkSize = 100
	}
	if cfg.Reconcile.Concurrency == 0 {
		cfg.Reconcile.Concurrency = 1
	}
	if cfg.Reconcile.FallbackDelay == 0 {
		cfg.Reconcile.FallbackDelay = 250 * time.Millisecond
	}
	if cfg.Reconcile.LockBackend == "" {
		cfg.Reconcile.LockBackend = "redis"
	}
	if cfg.Reconcile.LockTTL == 0 {
		cfg.Reconcile.LockTTL = 30 * time.Minute
	}

	// Scheduler defaults
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = time.Hour
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 1
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = 5 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.Profiling.Enabled && c.Profiling.ServerAddress == "" {
		return fmt.Errorf("profiling.server_address is required when profiling is enabled")
	}

	if c.Reconcile.PageSize < 0 || c.Reconcile.MaxPages < 0 || c.Reconcile.ChunkSize < 0 {
		return fmt.Errorf("reconcile.page_size, reconcile.max_pages and reconcile.chunk_size cannot be negative")
	}
	if c.Reconcile.MaxRetries < 0 {
		return fmt.Errorf("reconcile.max_retries cannot be negative")
	}
	if c.Reconcile.Concurrency < 1 || c.Reconcile.Concurrency > maxReconcileConcurrency {
		return fmt.Errorf("reconcile.concurrency must be between 1 and %d, got %d",
			maxReconcileConcurrency, c.Reconcile.Concurrency)
	}
	if c.Reconcile.LockBackend != "redis" && c.Reconcile.LockBackend != "memory" {
		return fmt.Errorf("reconcile.lock_backend must be 'redis' or 'memory', got %q", c.Reconcile.LockBackend)
	}

	if c.Scheduler.Enabled && c.Scheduler.Interval < time.Minute {
		return fmt.Errorf("scheduler.interval must be at least 1m, got %s", c.Scheduler.Interval)
	}
	if c.Scheduler.MaxConcurrentJobs < 1 {
		return fmt.Errorf("scheduler.max_concurrent_jobs must be positive")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Ginee.AccessKey == "" || c.Ginee.SecretKey == "" {
			return fmt.Errorf("ginee.access_key and ginee.secret_key are required in production")
		}
		if c.Ginee.WarehouseID == "" {
			return fmt.Errorf("ginee.warehouse_id is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address of the Redis server
func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}
