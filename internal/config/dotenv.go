package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file.
// If path is empty, it loads ".env" from the current directory.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// LoadConfig loads an optional .env file, then reads unprefixed environment
// variables. Variables already set in the environment win over the file.
func LoadConfig(envPath string) (AppConfig, error) {
	return LoadConfigWithPrefix(envPath, "")
}

// LoadConfigWithPrefix is LoadConfig for a prefixed variable set.
func LoadConfigWithPrefix(envPath, prefix string) (AppConfig, error) {
	if err := LoadDotEnv(envPath); err != nil {
		return AppConfig{}, err
	}
	envCfg, err := LoadFromEnvWithPrefix(prefix)
	if err != nil {
		return AppConfig{}, err
	}
	return envCfg.ToAppConfig(), nil
}
