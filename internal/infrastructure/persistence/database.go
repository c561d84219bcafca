package persistence

import (
	"errors"
	"fmt"
	"time"

	"github.com/meterbill/backend/internal/domain/shared"
	"github.com/meterbill/backend/internal/infrastructure/config"
	"github.com/meterbill/backend/internal/infrastructure/logger"
	"github.com/meterbill/backend/internal/infrastructure/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database is an open GORM connection with driver errors translated, so a
// unique violation surfaces as gorm.ErrDuplicatedKey.
type Database struct {
	DB *gorm.DB
}

type options struct {
	log         *zap.Logger
	level       gormlogger.LogLevel
	logOpts     []logger.GormLoggerOption
	tracing     *telemetry.DBTracingConfig
	prepareStmt bool
}

type Option func(*options)

// WithLogger sends GORM output to l through logger.GormLogger
func WithLogger(l *zap.Logger, level gormlogger.LogLevel, opts ...logger.GormLoggerOption) Option {
	return func(o *options) { o.log, o.level, o.logOpts = l, level, opts }
}

// WithTracing registers the otelgorm plugin when cfg.Enabled is set
func WithTracing(cfg telemetry.DBTracingConfig) Option {
	return func(o *options) { o.tracing = &cfg }
}

// NewDatabase connects to PostgreSQL, sizes the pool from cfg and pings the
// server before returning.
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	prepared := func(o *options) { o.prepareStmt = true }
	db, err := Open(postgres.Open(cfg.DSN()), append([]Option{prepared}, opts...)...)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Open works on any dialector; tests use it with SQLite.
func Open(dialector gorm.Dialector, opts ...Option) (*Database, error) {
	o := options{level: gormlogger.Silent}
	for _, opt := range opts {
		opt(&o)
	}

	gormLog := gormlogger.Discard
	if o.log != nil {
		gormLog = logger.NewGormLogger(o.log, o.level, o.logOpts...)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: true,
		PrepareStmt:            o.prepareStmt,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if o.tracing != nil && o.tracing.Enabled {
		if err := telemetry.NewDBTracingPlugin(*o.tracing, o.log).Register(db); err != nil {
			return nil, fmt.Errorf("failed to register db tracing: %w", err)
		}
	}
	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// RegisterPoolMetrics exports the connection pool statistics as the
// go_sql_* series labelled db_name.
func (d *Database) RegisterPoolMetrics(reg prometheus.Registerer, dbName string) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return reg.Register(collectors.NewDBStatsCollector(sqlDB, dbName))
}

// notFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// duplicate maps a unique violation to target and leaves other errors as is
func duplicate(err error, target error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return target
	}
	return err
}
