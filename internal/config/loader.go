package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the bridge
// service.
type Config struct {
	HTTPPort          int
	RegistryPath      string
	DirectoryDSN      string
	Driver            string
	AdminUser         string
	AdminPasswordHash string
	PoolMaxPerNode    int
	PoolBorrowTimeout time.Duration
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields while collecting every
// missing or invalid entry so operators see the full list at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		DirectoryDSN:      "file:calbridge.db?_foreign_keys=on",
		Driver:            "memory",
		PoolMaxPerNode:    4,
		PoolBorrowTimeout: 30 * time.Second,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CALBRIDGE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "CALBRIDGE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := strings.TrimSpace(os.Getenv("CALBRIDGE_REGISTRY_PATH")); path == "" {
		missing = append(missing, "CALBRIDGE_REGISTRY_PATH")
	} else {
		cfg.RegistryPath = path
	}

	if dsn := strings.TrimSpace(os.Getenv("CALBRIDGE_DIRECTORY_DSN")); dsn != "" {
		cfg.DirectoryDSN = dsn
	}

	if driver := strings.TrimSpace(os.Getenv("CALBRIDGE_DRIVER")); driver != "" {
		cfg.Driver = driver
	}

	if user := strings.TrimSpace(os.Getenv("CALBRIDGE_ADMIN_USER")); user == "" {
		missing = append(missing, "CALBRIDGE_ADMIN_USER")
	} else {
		cfg.AdminUser = user
	}

	if hash := strings.TrimSpace(os.Getenv("CALBRIDGE_ADMIN_PASSWORD_HASH")); hash == "" {
		missing = append(missing, "CALBRIDGE_ADMIN_PASSWORD_HASH")
	} else {
		cfg.AdminPasswordHash = hash
	}

	if maxValue := strings.TrimSpace(os.Getenv("CALBRIDGE_POOL_MAX_PER_NODE")); maxValue != "" {
		max, err := strconv.Atoi(maxValue)
		if err != nil || max <= 0 {
			invalid = append(invalid, "CALBRIDGE_POOL_MAX_PER_NODE")
		} else {
			cfg.PoolMaxPerNode = max
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("CALBRIDGE_POOL_BORROW_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout < 0 {
			invalid = append(invalid, "CALBRIDGE_POOL_BORROW_TIMEOUT")
		} else {
			cfg.PoolBorrowTimeout = timeout
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
