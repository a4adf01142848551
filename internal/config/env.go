package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override the main configuration.
const (
	EnvInputDir       = "INVOICE_INPUT_DIR"
	EnvOutputDir      = "INVOICE_OUTPUT_DIR"
	EnvLogLevel       = "INVOICE_LOG_LEVEL"
	EnvMaxConcurrency = "INVOICE_MAX_CONCURRENCY"
)

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment. Variables already set are kept. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides copies INVOICE_* environment variables over the matching
// configuration fields.
func ApplyEnvOverrides(config *MainConfig) error {
	if v := os.Getenv(EnvInputDir); v != "" {
		config.InputDir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		config.OutputDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.LogLevel = v
	}
	if v := os.Getenv(EnvMaxConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxConcurrency, v, err)
		}
		config.MaxConcurrency = n
	}
	return nil
}
