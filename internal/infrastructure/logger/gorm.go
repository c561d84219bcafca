package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM statements into zap. Bound values stay out of the
// log unless WithFullSQL is set, since they carry customer IDs and amounts.
type GormLogger struct {
	log     *zap.Logger
	level   gormlogger.LogLevel
	slow    time.Duration
	fullSQL bool
}

type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged at warn. Zero disables it.
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(g *GormLogger) { g.slow = d }
}

func WithFullSQL(enabled bool) GormLoggerOption {
	return func(g *GormLogger) { g.fullSQL = enabled }
}

func NewGormLogger(l *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	g := &GormLogger{log: l.Named("gorm"), level: level, slow: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *GormLogger) Info(_ context.Context, msg string, data ...any) {
	g.printf(gormlogger.Info, msg, data)
}

func (g *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	g.printf(gormlogger.Warn, msg, data)
}

func (g *GormLogger) Error(_ context.Context, msg string, data ...any) {
	g.printf(gormlogger.Error, msg, data)
}

func (g *GormLogger) printf(at gormlogger.LogLevel, msg string, data []any) {
	if g.level < at {
		return
	}
	s := g.log.Sugar()
	switch at {
	case gormlogger.Error:
		s.Errorf(msg, data...)
	case gormlogger.Warn:
		s.Warnf(msg, data...)
	default:
		s.Infof(msg, data...)
	}
}

// Trace logs failed statements at error, slow ones at warn and everything else
// at debug when the level is Info. Lookups that find no row are not failures.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		return
	}

	elapsed := time.Since(begin)
	isSlow := g.slow > 0 && elapsed > g.slow

	stmt, rows := fc()
	fields := []zap.Field{zap.Duration("elapsed", elapsed), zap.Int64("rows", rows)}
	if g.fullSQL {
		fields = append(fields, zap.String("sql", stmt))
	} else {
		fields = append(fields, zap.String("operation", statementVerb(stmt)))
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	log := WithTraceContext(ctx, g.log)

	switch {
	case err != nil && g.level >= gormlogger.Error:
		log.Error("SQL Error", append(fields, zap.Error(err))...)
	case isSlow && g.level >= gormlogger.Warn:
		log.Warn("Slow SQL", append(fields, zap.Duration("threshold", g.slow))...)
	case g.level >= gormlogger.Info:
		log.Debug("SQL Query", fields...)
	}
}

// statementVerb is the upper-cased first keyword of a statement
func statementVerb(stmt string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(stmt), " ")
	return strings.ToUpper(verb)
}

// MapGormLogLevel derives the GORM level from log.level; unknown values mean warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	}
	return gormlogger.Warn
}
