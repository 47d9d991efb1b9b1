package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/raine-waitlist/internal/log"
	"github.com/akeren/raine-waitlist/pkg/retry"
	"github.com/akeren/raine-waitlist/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver             string // postgres (default) or sqlite
	SQLitePath         string
	MaxIdleConns       int
	MaxOpenConns       int
	ConnMaxLifetime    time.Duration
	// SSLMode applies when POSTGRES_SSLMODE is unset; "require" unless overridden.
	SSLMode            string
	PingRetry          *retry.Config
	// SlowQueryThreshold marks queries gorm logs as slow.
	SlowQueryThreshold time.Duration
}

const (
	defaultSQLitePath   = "waitlist.db"
	defaultMaxIdleConns = 10
	defaultMaxOpenConns = 100
	defaultConnLifetime = time.Minute
	defaultSSLMode      = "require"
	defaultSlowQuery    = 200 * time.Millisecond
	databasePingTimeout = 30 * time.Second
)

func NewDBConfigFromEnv() *DBConfig {
	return &DBConfig{
		Driver:             strings.ToLower(sanitizeEnv(GetValueFromEnvironmentVariable("DB_DRIVER", DriverPostgres))),
		SQLitePath:         sanitizeEnv(GetValueFromEnvironmentVariable("SQLITE_PATH", defaultSQLitePath)),
		MaxIdleConns:       utils.GetEnvPositiveInt("DB_MAX_IDLE_CONNS", defaultMaxIdleConns),
		MaxOpenConns:       utils.GetEnvPositiveInt("DB_MAX_OPEN_CONNS", defaultMaxOpenConns),
		ConnMaxLifetime:    utils.GetEnvPositiveDuration("DB_CONN_MAX_LIFETIME", defaultConnLifetime),
		SSLMode:            defaultSSLMode,
		SlowQueryThreshold: utils.GetEnvPositiveDuration("DB_SLOW_QUERY_THRESHOLD", defaultSlowQuery),
	}
}

func (cfg *DBConfig) applyDefaults() {
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = defaultSQLitePath
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = defaultConnLifetime
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = defaultSSLMode
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = defaultSlowQuery
	}
	if cfg.PingRetry == nil {
		cfg.PingRetry = &retry.Config{
			MaxAttempts: 5,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Multiplier:  2.0,
		}
	}
}

// gormWriter routes gorm's slow-query and error lines into the application logger.
type gormWriter struct {
	logger *log.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn("gorm", "detail", fmt.Sprintf(format, args...))
}

func newGormLogger(logger *log.Logger, cfg *DBConfig) gormlogger.Interface {
	return gormlogger.New(gormWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             cfg.SlowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func NewDatabase(logger *log.Logger, cfg *DBConfig) (*gorm.DB, error) {
	if cfg == nil {
		cfg = NewDBConfigFromEnv()
	}
	cfg.applyDefaults()

	dialector, err := buildDialector(logger, cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger, cfg),
		TranslateError: true,
	})
	if err != nil {
		logger.Error("Failed to connect to database", "driver", cfg.Driver, "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Error("Failed to get database instance", "error", err)
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite serialises writers; one connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), databasePingTimeout)
	defer cancel()

	pingRetry := *cfg.PingRetry
	pingRetry.OnRetry = func(attempt int, delay time.Duration, pingErr error) {
		logger.Warn("Database ping failed, retrying", "attempt", attempt, "retry_in", delay, "error", pingErr)
	}
	err = retry.NewExponentialBackoff(&pingRetry).ExecuteContext(ctx, func() error {
		return sqlDB.PingContext(ctx)
	})
	if err != nil {
		logger.Error("Database ping failed", "error", err)
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Database connection established successfully", "driver", cfg.Driver)
	return gdb, nil
}

func buildDialector(logger *log.Logger, cfg *DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		logger.Info("Using SQLite database", "path", cfg.SQLitePath)
		return sqlite.Open(cfg.SQLitePath), nil
	case DriverPostgres:
		dsn, err := buildDSNFromEnv(sanitizeEnv(GetValueFromEnvironmentVariable("APP_DATABASE_URL", "")), logger, cfg)
		if err != nil {
			return nil, err
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (allowed: postgres, sqlite)", cfg.Driver)
	}
}

// postgresParams are the discrete POSTGRES_* variables used when APP_DATABASE_URL is unset.
type postgresParams struct {
	host, port, user, password, dbName, sslMode string
}

func postgresParamsFromEnv(defaultSSLMode string) postgresParams {
	env := func(key string) string { return sanitizeEnv(GetValueFromEnvironmentVariable(key, "")) }

	p := postgresParams{
		host:     env("POSTGRES_HOST"),
		port:     env("POSTGRES_PORT"),
		user:     env("POSTGRES_USER"),
		password: env("POSTGRES_PASSWORD"),
		dbName:   env("POSTGRES_DB_NAME"),
		sslMode:  env("POSTGRES_SSLMODE"),
	}
	if p.sslMode == "" {
		p.sslMode = defaultSSLMode
	}
	return p
}

func (p postgresParams) missing() []string {
	var missing []string
	for _, required := range []struct{ name, value string }{
		{"POSTGRES_HOST", p.host},
		{"POSTGRES_PORT", p.port},
		{"POSTGRES_USER", p.user},
		{"POSTGRES_DB_NAME", p.dbName},
	} {
		if required.value == "" {
			missing = append(missing, required.name)
		}
	}
	return missing
}

// dsn renders a libpq keyword/value string. Values are single-quoted so passwords may hold spaces.
func (p postgresParams) dsn() (string, error) {
	if missing := p.missing(); len(missing) > 0 {
		return "", fmt.Errorf("missing required database env vars: %s", strings.Join(missing, ", "))
	}
	if _, err := strconv.Atoi(p.port); err != nil {
		return "", fmt.Errorf("invalid POSTGRES_PORT %q: %w", p.port, err)
	}

	pairs := []string{
		"host=" + quoteDSNValue(p.host),
		"port=" + p.port,
		"user=" + quoteDSNValue(p.user),
		"password=" + quoteDSNValue(p.password),
		"dbname=" + quoteDSNValue(p.dbName),
		"sslmode=" + quoteDSNValue(p.sslMode),
	}
	return strings.Join(pairs, " "), nil
}

func quoteDSNValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func buildDSNFromEnv(appDatabaseURL string, logger *log.Logger, cfg *DBConfig) (string, error) {
	if strings.TrimSpace(appDatabaseURL) != "" {
		logger.Info("Using APP_DATABASE_URL for database connection")
		return appDatabaseURL, nil
	}

	params := postgresParamsFromEnv(cfg.SSLMode)
	dsn, err := params.dsn()
	if err != nil {
		logger.Error("Invalid PostgreSQL settings", "error", err)
		return "", err
	}

	logger.Info("Connecting to PostgreSQL",
		"host", params.host,
		"port", params.port,
		"user", params.user,
		"dbname", params.dbName,
		"sslmode", params.sslMode,
	)
	return dsn, nil
}

func sanitizeEnv(v string) string {
	s := strings.TrimSpace(v)

	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}

	return s
}

func AutoMigrate(logger *log.Logger, db *gorm.DB, models ...interface{}) error {
	if db == nil {
		logger.Error("Cannot migrate: db is empty")
		return fmt.Errorf("cannot migrate: db is empty")
	}

	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Database migration failed", "error", err)
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	logger.Info("Database migration completed successfully")

	return nil
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance", "error", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	} else {
		logger.Info("Database closed successfully")
	}
}
