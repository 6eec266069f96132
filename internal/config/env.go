package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// TokenEnv is the environment variable holding the output dataset token.
const TokenEnv = "PP_DATASET_TOKEN"

// DefaultEnvFile is loaded when present and no other file is given.
const DefaultEnvFile = ".env"

// LoadEnv loads environment files without overriding variables that are
// already set. With no files it loads .env if it exists.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(DefaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		files = []string{DefaultEnvFile}
	}
	return godotenv.Load(files...)
}

// TokenFromEnv returns the output dataset token from the environment.
func TokenFromEnv() string {
	return os.Getenv(TokenEnv)
}
