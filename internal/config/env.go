package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// envFiles are tried in order; every file found is loaded.
var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads environment variables from .env/.env.local files.
// Existing process environment variables are not overwritten.
func loadEnvFile() error {
	loaded := 0
	for _, envPath := range envFiles {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("parse %s: %w", envPath, err)
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no .env file found")
	}
	return nil
}
