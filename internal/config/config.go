// Package config loads service configuration from an optional YAML file with
// environment-variable overrides. Env wins over file, file wins over
// defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	yaml "gopkg.in/yaml.v3"
)

type Config struct {
	Port        string        `yaml:"port"`
	DatabaseURL string        `yaml:"database_url"`
	RedisURL    string        `yaml:"redis_url"`
	Auth        AuthConfig    `yaml:"auth"`
	Rate        RateConfig    `yaml:"rate"`
	Solver      SolverConfig  `yaml:"solver"`
	Webhooks    WebhookConfig `yaml:"webhooks"`
}

type AuthConfig struct {
	Mode       string `yaml:"mode"` // dev, hmac
	HMACSecret string `yaml:"hmac_secret"`
}

type RateConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type SolverConfig struct {
	Default       string `yaml:"default"`
	TimeBudgetMs  int    `yaml:"time_budget_ms"`
	MaxJobs       int    `yaml:"max_jobs"`
	MaxVehicles   int    `yaml:"max_vehicles"`
	MaxPartitions uint64 `yaml:"max_partitions"`
	Workers       int    `yaml:"workers"`
}

type WebhookConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

func defaults() *Config {
	return &Config{
		Port: "8080",
		Auth: AuthConfig{Mode: "dev"},
		Rate: RateConfig{RPS: 50, Burst: 100},
		Solver: SolverConfig{
			Default:      "exact",
			TimeBudgetMs: 2000,
		},
		Webhooks: WebhookConfig{MaxAttempts: 10},
	}
}

// Load reads CONFIG_PATH (when set) and applies env overrides.
func Load() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("AUTH_MODE"); v != "" {
		c.Auth.Mode = v
	}
	if v := os.Getenv("AUTH_HMAC_SECRET"); v != "" {
		c.Auth.HMACSecret = v
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Rate.RPS = f
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Rate.Burst = n
		}
	}
	if v := os.Getenv("SOLVER_DEFAULT"); v != "" {
		c.Solver.Default = v
	}
	if v := os.Getenv("SOLVER_TIME_BUDGET_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Solver.TimeBudgetMs = n
		}
	}
	if v := os.Getenv("SOLVER_MAX_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Solver.MaxJobs = n
		}
	}
	if v := os.Getenv("SOLVER_MAX_VEHICLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Solver.MaxVehicles = n
		}
	}
	if v := os.Getenv("SOLVER_MAX_PARTITIONS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			c.Solver.MaxPartitions = n
		}
	}
	if v := os.Getenv("SOLVER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Solver.Workers = n
		}
	}
	if v := os.Getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Webhooks.MaxAttempts = n
		}
	}
}
