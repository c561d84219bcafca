package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. BILL_DATABASE_PASSWORD
const EnvPrefix = "BILL"

// Config is the full service configuration. Values come from, in order of
// precedence, BILL_* environment variables, config.toml in the working
// directory or /app, and the defaults registered in setDefaults.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Lock      LockConfig      `mapstructure:"lock"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN renders a postgres:// URL with user and password escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// LockConfig selects where per-period and per-customer locks live
type LockConfig struct {
	Backend string        `mapstructure:"backend"` // memory or redis
	TTL     time.Duration `mapstructure:"ttl"`
	Wait    time.Duration `mapstructure:"wait"`
}

type BillingConfig struct {
	VATRate              decimal.Decimal `mapstructure:"-"`
	OutlierMultiplier    decimal.Decimal `mapstructure:"-"`
	TrailingWindow       int             `mapstructure:"trailing_window"`
	MinApprovedReadings  int             `mapstructure:"min_approved_readings"`
	OverpaymentPolicy    string          `mapstructure:"overpayment_policy"` // wallet or reject
	PricingFallback      string          `mapstructure:"pricing_fallback"`   // none or business_default
	MaxRetries           int             `mapstructure:"max_retries"`
	Currency             string          `mapstructure:"currency"`
	PricingSeedFile      string          `mapstructure:"pricing_seed_file"`
	OverdueSweepInterval time.Duration   `mapstructure:"overdue_sweep_interval"` // 0 disables the sweeper
}

type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"` // OTLP gRPC, host:port
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`
	ServiceName       string  `mapstructure:"service_name"`
	Insecure          bool    `mapstructure:"insecure"`
	LogsEnabled       bool    `mapstructure:"logs_enabled"`
	MetricsEnabled    bool    `mapstructure:"metrics_enabled"`

	MetricsExportInterval time.Duration `mapstructure:"metrics_export_interval"` // OTLP push, needs enabled

	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`

	ProfilingEnabled  bool     `mapstructure:"profiling_enabled"`
	PyroscopeAddress  string   `mapstructure:"pyroscope_address"`
	PyroscopeUser     string   `mapstructure:"pyroscope_user"`
	PyroscopePassword string   `mapstructure:"pyroscope_password"`
	ProfileTypes      []string `mapstructure:"profile_types"`
}

func setDefaults(v *viper.Viper) {
	for key, value := range map[string]any{
		"app.name": "meterbill-backend",
		"app.env":  "development",
		"app.port": "8080",

		"database.host":               "localhost",
		"database.port":               5432,
		"database.user":               "postgres",
		"database.password":           "",
		"database.dbname":             "meterbill",
		"database.sslmode":            "disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  60,
		"database.conn_max_idle_time": 30,

		"redis.host":     "localhost",
		"redis.port":     6379,
		"redis.password": "",
		"redis.db":       0,

		"log.level":  "info",
		"log.format": "console",
		"log.output": "stdout",

		"http.read_timeout":       15 * time.Second,
		"http.write_timeout":      30 * time.Second,
		"http.idle_timeout":       60 * time.Second,
		"http.max_header_bytes":   1 << 20,
		"http.max_body_size":      2 << 20,
		"http.cors_allow_origins": []string{},
		"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
		"http.trusted_proxies":    []string{},

		"lock.backend": "memory",
		"lock.ttl":     30 * time.Second,
		"lock.wait":    10 * time.Second,

		"billing.vat_rate":               "0.15",
		"billing.outlier_multiplier":     "10",
		"billing.trailing_window":        3,
		"billing.min_approved_readings":  1,
		"billing.overpayment_policy":     "wallet",
		"billing.pricing_fallback":       "none",
		"billing.max_retries":            3,
		"billing.currency":               "SAR",
		"billing.pricing_seed_file":      "",
		"billing.overdue_sweep_interval": time.Duration(0),

		"telemetry.enabled":                 false,
		"telemetry.collector_endpoint":      "localhost:4317",
		"telemetry.sampling_ratio":          1.0,
		"telemetry.service_name":            "meterbill-backend",
		"telemetry.insecure":                false,
		"telemetry.logs_enabled":            false,
		"telemetry.metrics_enabled":         true,
		"telemetry.metrics_export_interval": time.Minute,
		"telemetry.db_trace_enabled":        false,
		"telemetry.db_log_full_sql":         false,
		"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
		"telemetry.profiling_enabled":       false,
		"telemetry.pyroscope_address":       "",
		"telemetry.pyroscope_user":          "",
		"telemetry.pyroscope_password":      "",
		"telemetry.profile_types":           []string{},
	} {
		v.SetDefault(key, value)
	}
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	var err error
	if cfg.Billing.VATRate, err = decimalSetting(v, "billing.vat_rate"); err != nil {
		return nil, err
	}
	if cfg.Billing.OutlierMultiplier, err = decimalSetting(v, "billing.outlier_multiplier"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decimalSetting(v *viper.Viper, key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal number: %w", key, err)
	}
	return d, nil
}

func (c *Config) validate() error {
	db := c.Database
	switch {
	case db.MaxOpenConns <= 0:
		return errors.New("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		return errors.New("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			db.MaxIdleConns, db.MaxOpenConns)
	}

	if !slices.Contains([]string{"memory", "redis"}, c.Lock.Backend) {
		return fmt.Errorf("lock.backend must be memory or redis, got %q", c.Lock.Backend)
	}

	if err := c.Billing.validate(); err != nil {
		return err
	}

	if c.App.Env == "production" {
		switch {
		case db.Password == "":
			return errors.New("database.password is required in production")
		case db.SSLMode == "disable":
			return errors.New("database.sslmode cannot be 'disable' in production")
		case slices.Contains(c.HTTP.CORSAllowOrigins, "*"):
			return errors.New("http.cors_allow_origins cannot be '*' in production")
		case c.Telemetry.DBLogFullSQL:
			return errors.New("telemetry.db_log_full_sql must be false in production")
		}
	}

	t := c.Telemetry
	if t.ProfilingEnabled && t.PyroscopeAddress == "" {
		return errors.New("telemetry.pyroscope_address is required when profiling is enabled")
	}
	if t.SamplingRatio < 0 || t.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", t.SamplingRatio)
	}
	return nil
}

func (b BillingConfig) validate() error {
	switch {
	case b.VATRate.IsNegative() || b.VATRate.GreaterThan(decimal.NewFromInt(1)):
		return fmt.Errorf("billing.vat_rate must be between 0 and 1, got %s", b.VATRate)
	case !b.OutlierMultiplier.IsPositive():
		return errors.New("billing.outlier_multiplier must be positive")
	case b.TrailingWindow < 1:
		return errors.New("billing.trailing_window must be at least 1")
	case b.MinApprovedReadings < 0:
		return errors.New("billing.min_approved_readings cannot be negative")
	case b.MaxRetries < 0:
		return errors.New("billing.max_retries cannot be negative")
	case b.OverpaymentPolicy != "wallet" && b.OverpaymentPolicy != "reject":
		return fmt.Errorf("billing.overpayment_policy must be wallet or reject, got %q", b.OverpaymentPolicy)
	case b.PricingFallback != "none" && b.PricingFallback != "business_default":
		return fmt.Errorf("billing.pricing_fallback must be none or business_default, got %q", b.PricingFallback)
	}
	return nil
}
