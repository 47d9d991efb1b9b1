package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/akeren/raine-waitlist/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAutoMigrateAllowed(t *testing.T) {
	for _, env := range []string{"", "dev", "development", "local", "test", "testing", "DEV", "  Local  "} {
		assert.NoError(t, ValidateAutoMigrateAllowed(env), "env=%q", env)
	}

	for _, env := range []string{"prod", "production", "staging", "preprod", " Production ", "qa"} {
		assert.Error(t, ValidateAutoMigrateAllowed(env), "env=%q", env)
	}
}

func TestGetAppEnv(t *testing.T) {
	t.Setenv(AppEnvKey, "  Staging ")
	assert.Equal(t, "staging", GetAppEnv())
}

func TestInitializeEnvFile_LoadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("APP_SLUG=from-file\nWAITLIST_SUBMISSION_LIMIT=9\n"), 0o600))
	chdirForTest(t, dir)

	t.Setenv("SKIP_DOTENV", "")
	t.Setenv("ENV_FILE", "")
	t.Setenv("APP_SLUG", "from-env")
	t.Setenv("WAITLIST_SUBMISSION_LIMIT", "")
	require.NoError(t, os.Unsetenv("WAITLIST_SUBMISSION_LIMIT"))

	InitializeEnvFile(log.NewDiscardLogger())

	assert.Equal(t, "from-env", os.Getenv("APP_SLUG"))
	assert.Equal(t, "9", os.Getenv("WAITLIST_SUBMISSION_LIMIT"))
	assert.Equal(t, 9, NewWaitlistConfig().SubmissionLimit)
}

func TestInitializeEnvFile_Skip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STATS_CACHE_TTL=1m\n"), 0o600))
	chdirForTest(t, dir)

	t.Setenv("SKIP_DOTENV", "true")
	t.Setenv("STATS_CACHE_TTL", "")
	require.NoError(t, os.Unsetenv("STATS_CACHE_TTL"))

	InitializeEnvFile(log.NewDiscardLogger())

	_, set := os.LookupEnv("STATS_CACHE_TTL")
	assert.False(t, set)
}

func TestInitializeEnvFile_CustomPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waitlist.env")
	require.NoError(t, os.WriteFile(path, []byte("IS_WAITLIST=true\n"), 0o600))

	t.Setenv("SKIP_DOTENV", "")
	t.Setenv("ENV_FILE", path)
	t.Setenv("IS_WAITLIST", "")
	require.NoError(t, os.Unsetenv("IS_WAITLIST"))

	InitializeEnvFile(log.NewDiscardLogger())

	assert.True(t, NewWaitlistConfig().WaitlistMode)
}

func TestGetValueFromEnvironmentVariable(t *testing.T) {
	t.Setenv("WAITLIST_TEST_VALUE", "")
	assert.Equal(t, "", GetValueFromEnvironmentVariable("WAITLIST_TEST_VALUE", "fallback"))

	require.NoError(t, os.Unsetenv("WAITLIST_TEST_VALUE"))
	assert.Equal(t, "fallback", GetValueFromEnvironmentVariable("WAITLIST_TEST_VALUE", "fallback"))
}

// chdirForTest mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
