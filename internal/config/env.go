package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// envFiles are tried in order; every file found is loaded.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads environment variables from .env/.env.local in the current
// directory. Existing process environment variables are never overwritten.
func loadEnvFiles() error {
	loaded := 0
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return err
		}
		loaded++
	}
	if loaded == 0 {
		return errNoEnvFile
	}
	return nil
}

var errNoEnvFile = errors.New("no .env file found")
