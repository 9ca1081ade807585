// Package config assembles the runtime configuration from environment
// variables and an optional YAML profile file. Environment variables carry
// deployment wiring (addresses, credentials, schedules); the profile file
// carries the operator's classification policy and hardware declaration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/notify"
)

// Config is the process-wide runtime configuration.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// Timezone keys ledger windows and the report trigger. The NAS ships
	// to the China market, so the firmware default applies.
	Timezone string
	Location *time.Location

	SampleInterval time.Duration
	ReportHour     int
	ReportMinute   int

	WatchDirs    []string
	ProfilePath  string
	StorageMount string

	Mail notify.MailConfig
}

// FromEnv builds the configuration from environment variables, applying
// defaults and validating the result.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8484"),
		MetricsAddr:  getEnv("METRICS_ADDR", ":9184"),
		Timezone:     getEnv("TIMEZONE", "Asia/Shanghai"),
		ProfilePath:  getEnv("PROFILE_PATH", ""),
		StorageMount: getEnv("STORAGE_MOUNT", "/"),
		Mail: notify.MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("EMAIL_FROM"),
			To:       os.Getenv("EMAIL_TO"),
		},
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	cfg.SampleInterval, err = getEnvDuration("SAMPLE_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.ReportHour, err = getEnvInt("REPORT_HOUR", 0)
	if err != nil {
		return nil, err
	}
	cfg.ReportMinute, err = getEnvInt("REPORT_MINUTE", 30)
	if err != nil {
		return nil, err
	}

	cfg.Mail.Port, err = getEnvInt("SMTP_PORT", 465)
	if err != nil {
		return nil, err
	}
	cfg.Mail.UseTLS, err = getEnvBool("SMTP_TLS", true)
	if err != nil {
		return nil, err
	}

	for _, dir := range strings.Split(os.Getenv("WATCH_DIRS"), ",") {
		if dir = strings.TrimSpace(dir); dir != "" {
			cfg.WatchDirs = append(cfg.WatchDirs, dir)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SampleInterval < time.Second {
		return fmt.Errorf("SAMPLE_INTERVAL must be at least 1s, got %s", c.SampleInterval)
	}
	if c.ReportHour < 0 || c.ReportHour > 23 {
		return fmt.Errorf("REPORT_HOUR must be in [0,23], got %d", c.ReportHour)
	}
	if c.ReportMinute < 0 || c.ReportMinute > 59 {
		return fmt.Errorf("REPORT_MINUTE must be in [0,59], got %d", c.ReportMinute)
	}
	if c.Mail.Port < 0 || c.Mail.Port > 65535 {
		return fmt.Errorf("SMTP_PORT must be a valid port, got %d", c.Mail.Port)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
