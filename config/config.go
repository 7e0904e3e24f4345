// Package config loads EngineConfig from the environment, the way the
// teacher loads its Config: caarlos0/env for binding, go-playground/validator
// for constraints.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ErlanBelekov/jobcore/internal/domain"
)

// EngineConfig holds everything the engine, worker pool and metrics server
// need at startup (spec §6 "Configuration options").
type EngineConfig struct {
	InstanceName string `env:"INSTANCE_NAME" envDefault:"jobcore"`
	// InstanceID identifies this process among cooperating instances. "AUTO"
	// resolves to hostname-pid, mirroring the teacher's worker id scheme.
	InstanceID string `env:"INSTANCE_ID" envDefault:"AUTO"`

	ThreadPoolSize     int `env:"THREAD_POOL_SIZE" envDefault:"10" validate:"min=1,max=1000"`
	BatchTimeWindowMS  int `env:"BATCH_TIME_WINDOW_MS" envDefault:"0" validate:"min=0"`
	MaxBatchSize       int `env:"MAX_BATCH_SIZE" envDefault:"1" validate:"min=1"`
	MisfireThresholdMS int `env:"MISFIRE_THRESHOLD_MS" envDefault:"60000" validate:"min=0"`
	IdleWaitMS         int `env:"IDLE_WAIT_MS" envDefault:"30000" validate:"min=1"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
}

// Load reads EngineConfig from the environment and validates it, resolving
// InstanceID="AUTO" along the way.
func Load() (*EngineConfig, error) {
	cfg := &EngineConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSchedulerConfiguration, err)
	}

	if cfg.InstanceID == "AUTO" {
		cfg.InstanceID = autoInstanceID()
	}

	return cfg, nil
}

func autoInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = uuid.NewString()[:8]
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// SlogLevel converts LogLevel to a slog.Level.
func (c *EngineConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BatchTimeWindow, MisfireThreshold, IdleWait convert the millisecond env
// fields to time.Duration for the engine.
func (c *EngineConfig) BatchTimeWindow() time.Duration {
	return time.Duration(c.BatchTimeWindowMS) * time.Millisecond
}

func (c *EngineConfig) MisfireThreshold() time.Duration {
	return time.Duration(c.MisfireThresholdMS) * time.Millisecond
}

func (c *EngineConfig) IdleWait() time.Duration {
	return time.Duration(c.IdleWaitMS) * time.Millisecond
}
