package configuration

import (
	"os"

	"multipost/infrastructure/logger"

	"github.com/joho/godotenv"
)

// LoadEnvFromFile loads KEY=VALUE pairs from one or more files (e.g., config.env, .env).
// Existing env vars are not overridden.
func LoadEnvFromFile(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logger.GetLogger().WithField("file", p).WithField("error", err).Warn("Failed to load env file")
			continue
		}
		logger.GetLogger().WithField("file", p).Info("Loaded env file")
	}
}
