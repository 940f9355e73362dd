package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	LogLevel string
	Mode     string

	// default interleave block size in bytes for new containers, 0 for none
	InterleaveSize int
	// channels encoded in parallel
	Workers int
}

// Load reads envFile into the environment if it exists and builds the config
// from GCADPCM_* variables
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{
		LogLevel:       getEnv("GCADPCM_LOG_LEVEL", "info"),
		Mode:           getEnv("GCADPCM_MODE", "development"),
		InterleaveSize: getEnvInt("GCADPCM_INTERLEAVE_SIZE", 0),
		Workers:        getEnvInt("GCADPCM_WORKERS", runtime.NumCPU()),
	}

	if cfg.InterleaveSize < 0 {
		return nil, fmt.Errorf("GCADPCM_INTERLEAVE_SIZE must not be negative, got %d", cfg.InterleaveSize)
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := cast.ToIntE(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}
