package config

import "time"

// Config is the full application configuration. Components receive the
// slice of it they need through their constructors; nothing reads the
// environment after startup.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Predict  PredictConfig  `mapstructure:"predict"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

type WorkerConfig struct {
	// ReconcileInterval is how often the worker looks for waiting tasks
	// whose queue message was lost; StaleAfter is how old a waiting task
	// must be before it is republished.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval" validate:"required,gt=0"`
	StaleAfter        time.Duration `mapstructure:"stale_after" validate:"required,gt=0"`
}

type PredictConfig struct {
	// Endpoint of an HTTP model server. Empty runs the built-in model.
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
	// Timeout bounds one prediction call; hitting it fails the task and
	// refunds the spend like any other processing failure.
	Timeout       time.Duration `mapstructure:"timeout" validate:"required,gt=0"`
	MaxInputBytes int           `mapstructure:"max_input_bytes" validate:"required,gt=0"`
}
