package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/akeren/raine-waitlist/internal/log"
	"github.com/akeren/raine-waitlist/pkg/utils"
	"github.com/joho/godotenv"
)

const (
	AppEnvKey      = "APP_ENV"
	defaultEnvFile = ".env"
)

// developmentEnvs may run --auto-migrate. An unset APP_ENV counts as development.
var developmentEnvs = map[string]bool{
	"":            true,
	"dev":         true,
	"development": true,
	"local":       true,
	"test":        true,
	"testing":     true,
}

// InitializeEnvFile loads ENV_FILE (default .env) into the process environment.
// Variables already set win over the file. SKIP_DOTENV=true disables loading.
func InitializeEnvFile(logger *log.Logger) {
	if utils.IsEnvTrue("SKIP_DOTENV") {
		logger.Info("Skipping env file (SKIP_DOTENV=true)")
		return
	}

	path := utils.GetEnvTrimmedOrDefault("ENV_FILE", defaultEnvFile)

	err := godotenv.Load(path)
	switch {
	case err == nil:
		logger.Info("Loaded environment from file", "path", path)
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("No env file found; using process environment", "path", path)
	default:
		logger.Warn("Failed to load env file", "path", path, "error", err)
	}
}

// GetValueFromEnvironmentVariable distinguishes unset from empty: an empty value is returned as is.
func GetValueFromEnvironmentVariable(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func GetAppEnv() string {
	return strings.ToLower(utils.GetEnvTrimmed(AppEnvKey))
}

func ValidateAutoMigrateAllowed(appEnv string) error {
	env := strings.ToLower(strings.TrimSpace(appEnv))
	if developmentEnvs[env] {
		return nil
	}
	return fmt.Errorf("--auto-migrate is not allowed when %s=%q; run `cli migrate` instead", AppEnvKey, env)
}
