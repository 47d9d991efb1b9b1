package config

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/akeren/raine-waitlist/internal/log"
	"github.com/akeren/raine-waitlist/internal/models"
	"github.com/akeren/raine-waitlist/pkg/retry"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWaitlistConfig_Defaults(t *testing.T) {
	t.Setenv("APP_SLUG", "")
	t.Setenv("IS_WAITLIST", "")
	t.Setenv("WAITLIST_SUBMISSION_LIMIT", "")
	t.Setenv("WAITLIST_SUBMISSION_WINDOW", "")
	t.Setenv("STATS_CACHE_TTL", "")

	cfg := NewWaitlistConfig()

	assert.Equal(t, "raine", cfg.AppSlug)
	assert.False(t, cfg.WaitlistMode)
	assert.Equal(t, 5, cfg.SubmissionLimit)
	assert.Equal(t, 24*time.Hour, cfg.SubmissionWindow)
	assert.Equal(t, 30*time.Second, cfg.StatsCacheTTL)
}

func TestNewWaitlistConfig_Overrides(t *testing.T) {
	t.Setenv("APP_SLUG", " tinker ")
	t.Setenv("IS_WAITLIST", "true")
	t.Setenv("WAITLIST_SUBMISSION_LIMIT", "3")
	t.Setenv("WAITLIST_SUBMISSION_WINDOW", "1h")
	t.Setenv("STATS_CACHE_TTL", "5s")

	cfg := NewWaitlistConfig()

	assert.Equal(t, "tinker", cfg.AppSlug)
	assert.True(t, cfg.WaitlistMode)
	assert.Equal(t, 3, cfg.SubmissionLimit)
	assert.Equal(t, time.Hour, cfg.SubmissionWindow)
	assert.Equal(t, 5*time.Second, cfg.StatsCacheTTL)
}

func TestNewWaitlistConfig_WaitlistModeRequiresExactTrue(t *testing.T) {
	for _, raw := range []string{"TRUE", "1", "yes", "True"} {
		t.Setenv("IS_WAITLIST", raw)
		assert.False(t, NewWaitlistConfig().WaitlistMode, "IS_WAITLIST=%q", raw)
	}
}

func TestNewWaitlistConfig_IgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("WAITLIST_SUBMISSION_LIMIT", "-2")
	t.Setenv("WAITLIST_SUBMISSION_WINDOW", "soon")

	cfg := NewWaitlistConfig()

	assert.Equal(t, 5, cfg.SubmissionLimit)
	assert.Equal(t, 24*time.Hour, cfg.SubmissionWindow)
}

func TestNewDatabase_SQLite(t *testing.T) {
	logger := log.NewDiscardLogger()
	db, err := NewDatabase(logger, &DBConfig{
		Driver:     DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "waitlist.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { CloseDatabase(db, logger) })

	require.NoError(t, AutoMigrate(logger, db, models.ModelRegistry...))
	assert.True(t, db.Migrator().HasTable(&models.WaitlistEntry{}))
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(log.NewDiscardLogger(), &DBConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported DB_DRIVER")
}

func TestNewDatabase_PostgresMissingEnv(t *testing.T) {
	t.Setenv("APP_DATABASE_URL", "")
	t.Setenv("POSTGRES_HOST", "")
	t.Setenv("POSTGRES_PORT", "")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_DB_NAME", "")

	_, err := NewDatabase(log.NewDiscardLogger(), &DBConfig{
		Driver:    DriverPostgres,
		PingRetry: &retry.Config{MaxAttempts: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_HOST")
}

func TestSanitizeEnv(t *testing.T) {
	assert.Equal(t, "value", sanitizeEnv(` "value" `))
	assert.Equal(t, "value", sanitizeEnv(`'value'`))
	assert.Equal(t, `"value`, sanitizeEnv(`"value`))
}

func TestNewAppConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "250")
	t.Setenv("RATE_LIMIT_WINDOW", "bogus")
	t.Setenv("REQUEST_TIMEOUT", "10s")

	cfg := NewAppConfig()

	assert.Equal(t, 250, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestOpenCache(t *testing.T) {
	logger := log.NewDiscardLogger()

	t.Run("unconfigured", func(t *testing.T) {
		t.Setenv("REDIS_HOST", "")
		assert.Nil(t, OpenCache(logger, NewCacheConfigFromEnv()))
	})

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		host, port, err := net.SplitHostPort(mr.Addr())
		require.NoError(t, err)

		t.Setenv("REDIS_HOST", host)
		t.Setenv("REDIS_PORT", port)
		t.Setenv("REDIS_DB", "")

		cache := OpenCache(logger, NewCacheConfigFromEnv())
		require.NotNil(t, cache)
		t.Cleanup(func() { closeCache(cache, logger) })

		require.NoError(t, cache.Set(context.Background(), "k", "v", time.Minute))
		got, err := mr.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		host, port, err := net.SplitHostPort(mr.Addr())
		require.NoError(t, err)
		mr.Close()

		assert.Nil(t, OpenCache(logger, &CacheConfig{Host: host, Port: port, DialTimeout: 200 * time.Millisecond}))
	})
}

func TestApplicationConfig_CleanupPartial(t *testing.T) {
	app := &ApplicationConfig{Logger: log.NewDiscardLogger()}
	assert.NotPanics(t, app.Cleanup)
}

func TestPostgresParams_DSN(t *testing.T) {
	p := postgresParams{host: "db", port: "5432", user: "raine", password: "s3cret pass'", dbName: "waitlist", sslMode: "disable"}

	dsn, err := p.dsn()
	require.NoError(t, err)
	assert.Equal(t, `host='db' port=5432 user='raine' password='s3cret pass\'' dbname='waitlist' sslmode='disable'`, dsn)

	_, err = postgresParams{host: "db", port: "x", user: "u", dbName: "d"}.dsn()
	assert.ErrorContains(t, err, "invalid POSTGRES_PORT")

	_, err = postgresParams{}.dsn()
	assert.ErrorContains(t, err, "POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_DB_NAME")
}

func TestPostgresParamsFromEnv_DefaultsSSLMode(t *testing.T) {
	t.Setenv("POSTGRES_HOST", `"db.internal"`)
	t.Setenv("POSTGRES_SSLMODE", "")

	p := postgresParamsFromEnv("require")

	assert.Equal(t, "db.internal", p.host)
	assert.Equal(t, "require", p.sslMode)
}

func TestNewDBConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", " SQLite ")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_SLOW_QUERY_THRESHOLD", "1s")

	cfg := NewDBConfigFromEnv()

	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "", cfg.SQLitePath, "an explicitly empty SQLITE_PATH is kept until applyDefaults")
	assert.Equal(t, 7, cfg.MaxOpenConns)
	assert.Equal(t, time.Second, cfg.SlowQueryThreshold)

	cfg.applyDefaults()
	assert.Equal(t, "waitlist.db", cfg.SQLitePath)
}
