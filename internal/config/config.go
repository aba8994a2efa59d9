package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// IdleAction selects what the idle monitor does when the server has been
// unattended longer than the idle timeout.
type IdleAction string

const (
	// IdleActionSleep puts the server into the sleeping state; protected
	// endpoints reject requests until a wakeup call arrives.
	IdleActionSleep IdleAction = "sleep"
	// IdleActionShutdown terminates the process instead of sleeping.
	IdleActionShutdown IdleAction = "shutdown"
)

// Config holds all server settings, read from the environment.
type Config struct {
	Host              string
	Port              string
	DownloadDir       string
	IdleTimeout       time.Duration
	IdleCheckInterval time.Duration
	IdleAction        IdleAction
	HistoryDB         string // empty disables the download history store
	LogLevel          string
}

// Load reads configuration from environment variables, applying defaults
// and creating the download directory if it does not exist.
func Load() (*Config, error) {
	cfg := &Config{
		Host:       getenv("HOST", "127.0.0.1"),
		Port:       getenv("PORT", "5000"),
		IdleAction: IdleAction(getenv("IDLE_ACTION", string(IdleActionSleep))),
		LogLevel:   getenv("LOG_LEVEL", "info"),
	}

	switch cfg.IdleAction {
	case IdleActionSleep, IdleActionShutdown:
	default:
		return nil, fmt.Errorf("invalid IDLE_ACTION %q (want %q or %q)",
			cfg.IdleAction, IdleActionSleep, IdleActionShutdown)
	}

	var err error
	if cfg.IdleTimeout, err = getenvSeconds("IDLE_TIMEOUT", 600*time.Second); err != nil {
		return nil, err
	}
	if cfg.IdleCheckInterval, err = getenvSeconds("IDLE_CHECK_INTERVAL", 60*time.Second); err != nil {
		return nil, err
	}

	cfg.DownloadDir = os.Getenv("DOWNLOAD_DIR")
	if cfg.DownloadDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DownloadDir = filepath.Join(home, "Downloads")
	}
	if err := os.MkdirAll(cfg.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	cfg.HistoryDB = getenv("HISTORY_DB", filepath.Join(cfg.DownloadDir, ".snatch", "history.db"))

	return cfg, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive number of seconds", key, v)
	}
	return time.Duration(secs) * time.Second, nil
}
