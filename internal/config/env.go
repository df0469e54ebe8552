package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the first .env file found.
// A missing file is not an error; variables may be set system-wide.
func LoadEnv() (string, error) {
	envPaths := []string{
		".env",
		".env.local",
		"../.env",
		"../../.env",
	}

	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return "", fmt.Errorf("error loading %s file: %w", envPath, err)
			}
			return envPath, nil
		}
	}
	return "", nil
}

// GetProjectRoot finds the project root directory by looking for go.mod
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find project root (go.mod not found)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// applyEnvOverrides lets deployments inject secrets and site identity without editing the file.
func (c *Config) applyEnvOverrides() error {
	c.SiteID = getEnvOrDefault("CONVD_SITE_ID", c.SiteID)
	c.TenantPrefix = getEnvOrDefault("CONVD_TENANT_PREFIX", c.TenantPrefix)
	c.Database.Driver = getEnvOrDefault("CONVD_DATABASE_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnvOrDefault("CONVD_DATABASE_DSN", c.Database.DSN)
	c.Storage.AccessKey = getEnvOrDefault("CONVD_STORAGE_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnvOrDefault("CONVD_STORAGE_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.APIToken = getEnvOrDefault("CONVD_STORAGE_API_TOKEN", c.Storage.APIToken)
	c.StatusStore.RedisPassword = getEnvOrDefault("CONVD_REDIS_PASSWORD", c.StatusStore.RedisPassword)
	c.Queue.AMQPURL = getEnvOrDefault("CONVD_AMQP_URL", c.Queue.AMQPURL)
	c.HTTP.Addr = getEnvOrDefault("CONVD_HTTP_ADDR", c.HTTP.Addr)

	if v := os.Getenv("CONVD_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONVD_CONCURRENCY: %w", err)
		}
		c.Engine.Concurrency = n
	}
	if v := os.Getenv("CONVD_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CONVD_INTERVAL: %w", err)
		}
		c.Engine.Interval = d
	}
	if v := os.Getenv("CONVD_LOG_DEVELOPMENT"); v != "" {
		c.Log.Development = v == "true" || v == "1"
	}
	return nil
}
