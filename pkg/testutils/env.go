package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/joho/godotenv"
)

// LoadEnv loads the .env file from the project root directory
func LoadEnv() error {
	_, filename, _, _ := runtime.Caller(0)
	envPath := filepath.Join(filepath.Dir(filename), "..", "..", ".env")

	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}

	return godotenv.Load(envPath)
}

// GetEnvOrDefault gets an environment variable with a default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// RequireEnv loads .env and skips t unless every key is set. It returns the
// values in the order of keys.
func RequireEnv(t *testing.T, keys ...string) []string {
	t.Helper()
	if err := LoadEnv(); err != nil {
		t.Fatalf("failed to load .env file: %v", err)
	}

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		v := os.Getenv(k)
		if v == "" {
			t.Skipf("%s not set, skipping integration test", k)
		}
		values = append(values, v)
	}
	return values
}
