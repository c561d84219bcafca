package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "meterbill-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "meterbill", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, int64(2<<20), cfg.HTTP.MaxBodySize)
	assert.Contains(t, cfg.HTTP.CORSAllowHeaders, "Idempotency-Key")
	assert.Equal(t, "memory", cfg.Lock.Backend)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)

	assert.True(t, cfg.Billing.VATRate.Equal(decimal.RequireFromString("0.15")))
	assert.True(t, cfg.Billing.OutlierMultiplier.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 3, cfg.Billing.TrailingWindow)
	assert.Equal(t, "wallet", cfg.Billing.OverpaymentPolicy)
	assert.Equal(t, "none", cfg.Billing.PricingFallback)
	assert.Equal(t, "SAR", cfg.Billing.Currency)
	assert.Zero(t, cfg.Billing.OverdueSweepInterval)

	assert.True(t, cfg.Telemetry.MetricsEnabled)
	assert.Equal(t, time.Minute, cfg.Telemetry.MetricsExportInterval)
	assert.Equal(t, 200*time.Millisecond, cfg.Telemetry.DBSlowQueryThresh)
	assert.InDelta(t, 1.0, cfg.Telemetry.SamplingRatio, 0)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"BILL_APP_NAME":                       "test-app",
		"BILL_APP_PORT":                       "9000",
		"BILL_DATABASE_HOST":                  "testdb.local",
		"BILL_DATABASE_PORT":                  "5433",
		"BILL_DATABASE_MAX_OPEN_CONNS":        "50",
		"BILL_DATABASE_MAX_IDLE_CONNS":        "10",
		"BILL_HTTP_CORS_ALLOW_ORIGINS":        "https://a.example,https://b.example",
		"BILL_LOCK_BACKEND":                   "redis",
		"BILL_BILLING_VAT_RATE":               "0.05",
		"BILL_BILLING_TRAILING_WINDOW":        "6",
		"BILL_BILLING_OVERPAYMENT_POLICY":     "reject",
		"BILL_BILLING_PRICING_FALLBACK":       "business_default",
		"BILL_BILLING_OVERDUE_SWEEP_INTERVAL": "15m",
		"BILL_TELEMETRY_METRICS_ENABLED":      "false",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-app", cfg.App.Name)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "testdb.local", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10, cfg.Database.MaxIdleConns)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSAllowOrigins)
	assert.Equal(t, "redis", cfg.Lock.Backend)
	assert.True(t, cfg.Billing.VATRate.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 6, cfg.Billing.TrailingWindow)
	assert.Equal(t, "reject", cfg.Billing.OverpaymentPolicy)
	assert.Equal(t, "business_default", cfg.Billing.PricingFallback)
	assert.Equal(t, 15*time.Minute, cfg.Billing.OverdueSweepInterval)
	assert.False(t, cfg.Telemetry.MetricsEnabled)
}

func TestLoad_ZeroVATIsKept(t *testing.T) {
	t.Setenv("BILL_BILLING_VAT_RATE", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Billing.VATRate.IsZero())
}

func TestLoad_Rejects(t *testing.T) {
	production := map[string]string{
		"BILL_APP_ENV":           "production",
		"BILL_DATABASE_PASSWORD": "secure-password",
		"BILL_DATABASE_SSLMODE":  "require",
	}
	with := func(base map[string]string, k, v string) map[string]string {
		out := map[string]string{k: v}
		for bk, bv := range base {
			if bk != k {
				out[bk] = bv
			}
		}
		return out
	}

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"idle above open", map[string]string{"BILL_DATABASE_MAX_OPEN_CONNS": "10", "BILL_DATABASE_MAX_IDLE_CONNS": "20"}, "cannot exceed"},
		{"negative idle", map[string]string{"BILL_DATABASE_MAX_IDLE_CONNS": "-1"}, "max_idle_conns cannot be negative"},
		{"vat not a number", map[string]string{"BILL_BILLING_VAT_RATE": "fifteen"}, "billing.vat_rate must be a decimal number"},
		{"vat above one", map[string]string{"BILL_BILLING_VAT_RATE": "1.5"}, "billing.vat_rate must be between 0 and 1"},
		{"negative outlier multiplier", map[string]string{"BILL_BILLING_OUTLIER_MULTIPLIER": "-2"}, "billing.outlier_multiplier must be positive"},
		{"trailing window below one", map[string]string{"BILL_BILLING_TRAILING_WINDOW": "0"}, "billing.trailing_window must be at least 1"},
		{"unknown overpayment policy", map[string]string{"BILL_BILLING_OVERPAYMENT_POLICY": "refund"}, "billing.overpayment_policy"},
		{"unknown pricing fallback", map[string]string{"BILL_BILLING_PRICING_FALLBACK": "cheapest"}, "billing.pricing_fallback"},
		{"unknown lock backend", map[string]string{"BILL_LOCK_BACKEND": "etcd"}, "lock.backend must be memory or redis"},
		{"profiling without address", map[string]string{"BILL_TELEMETRY_PROFILING_ENABLED": "true"}, "pyroscope_address"},
		{"sampling above one", map[string]string{"BILL_TELEMETRY_SAMPLING_RATIO": "1.5"}, "sampling_ratio"},
		{"production without password", with(production, "BILL_DATABASE_PASSWORD", ""), "database.password is required in production"},
		{"production without tls", with(production, "BILL_DATABASE_SSLMODE", "disable"), "database.sslmode cannot be 'disable' in production"},
		{"production wildcard origin", with(production, "BILL_HTTP_CORS_ALLOW_ORIGINS", "*"), "cors_allow_origins"},
		{"production full sql", with(production, "BILL_TELEMETRY_DB_LOG_FULL_SQL", "true"), "db_log_full_sql"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid production config", func(t *testing.T) {
		setEnv(t, production)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("profiling with address", func(t *testing.T) {
		setEnv(t, map[string]string{
			"BILL_TELEMETRY_PROFILING_ENABLED": "true",
			"BILL_TELEMETRY_PYROSCOPE_ADDRESS": "http://pyroscope:4040",
		})

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Telemetry.ProfilingEnabled)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "user", Password: "pass@word#123", DBName: "billing", SSLMode: "require"}

	assert.Equal(t, "postgres://user:pass%40word%23123@db:5432/billing?sslmode=require", cfg.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
