package config

import "time"

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Queues   QueueConfig    `yaml:"queues"`
	Tracking TrackingConfig `yaml:"tracking"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// QueueConfig names the queues this endpoint works with. A blank input
// address means the process only sends and never receives, so no error
// tracking or sweeping is needed.
type QueueConfig struct {
	InputAddress string `yaml:"input_address"`
	ErrorAddress string `yaml:"error_address"`
}

// TrackingConfig holds error tracker settings.
type TrackingConfig struct {
	MaxDeliveryAttempts  int     `yaml:"max_delivery_attempts"`  // deliveries before dead-lettering
	MaxAgeMinutes        float64 `yaml:"max_age_minutes"`        // staleness window for the sweeper
	SweepIntervalSeconds int     `yaml:"sweep_interval_seconds"` // how often the sweeper runs
}

// MaxAge returns the staleness window as a duration.
func (c TrackingConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeMinutes * float64(time.Minute))
}

// SweepInterval returns the sweep interval as a duration.
func (c TrackingConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// DispatchConfig holds delivery worker settings.
type DispatchConfig struct {
	WorkerConcurrency int `yaml:"worker_concurrency"`
	BaseBackoffMS     int `yaml:"base_backoff_ms"` // first redelivery delay
	MaxBackoffMS      int `yaml:"max_backoff_ms"`  // redelivery delay cap
	QueueCapacity     int `yaml:"queue_capacity"`
}

// BaseBackoff returns the initial redelivery delay as a duration.
func (c DispatchConfig) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffMS) * time.Millisecond
}

// MaxBackoff returns the redelivery delay cap as a duration.
func (c DispatchConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMS) * time.Millisecond
}
