package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	envConnectionTimeout = "PINAS_CONNECTION_TIMEOUT"
	envDownloadDir       = "PINAS_DOWNLOAD_DIR"
	envLogLevel          = "PINAS_LOG_LEVEL"
)

// applyEnv lets the environment override the file. The connection timeout
// is given in whole minutes; an invalid value keeps what the file said and
// is reported through Warnings, since logging is not set up yet.
func applyEnv(cfg *Config) {
	if timeout := os.Getenv(envConnectionTimeout); timeout != "" {
		minutes, err := strconv.Atoi(timeout)
		if err == nil && minutes > 0 {
			cfg.Server.ConnectionTimeout = time.Duration(minutes) * time.Minute
		} else {
			cfg.warnings = append(cfg.warnings, fmt.Sprintf("$%s (%v) is not a valid number of minutes, keeping %s",
				envConnectionTimeout, timeout, cfg.Server.ConnectionTimeout))
		}
	}

	if dir := os.Getenv(envDownloadDir); dir != "" {
		cfg.Download.Dir = dir
	}

	if level := os.Getenv(envLogLevel); level != "" {
		cfg.Log.Level = level
	}
}

// Warnings returns the problems found while loading that did not stop it.
// They are meant to be logged once logging is initialized.
func (c *Config) Warnings() []string {
	return c.warnings
}
