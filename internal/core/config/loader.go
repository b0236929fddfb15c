package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Tracking.MaxDeliveryAttempts < 0 {
		return nil, fmt.Errorf("tracking.max_delivery_attempts must not be negative: %d", cfg.Tracking.MaxDeliveryAttempts)
	}
	if cfg.Tracking.MaxAgeMinutes < 0 {
		return nil, fmt.Errorf("tracking.max_age_minutes must not be negative: %v", cfg.Tracking.MaxAgeMinutes)
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Tracking.MaxDeliveryAttempts == 0 {
		cfg.Tracking.MaxDeliveryAttempts = 5
	}
	if cfg.Tracking.MaxAgeMinutes == 0 {
		cfg.Tracking.MaxAgeMinutes = 10
	}
	if cfg.Tracking.SweepIntervalSeconds == 0 {
		cfg.Tracking.SweepIntervalSeconds = 10
	}
	if cfg.Dispatch.WorkerConcurrency == 0 {
		cfg.Dispatch.WorkerConcurrency = 4
	}
	if cfg.Dispatch.BaseBackoffMS == 0 {
		cfg.Dispatch.BaseBackoffMS = 200
	}
	if cfg.Dispatch.MaxBackoffMS == 0 {
		cfg.Dispatch.MaxBackoffMS = 30_000
	}
	if cfg.Dispatch.QueueCapacity == 0 {
		cfg.Dispatch.QueueCapacity = 1024
	}
}
