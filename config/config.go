// Copyright (c) 2024 Elisamuel Resto Donate <sam@samresto.dev>
// SPDX-License-Identifier: MIT

// Package config handles YAML configuration file parsing and validation
// for the resolver: server list, per-query timeout, logging level, and
// metrics endpoints.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Resolver ResolverConfig `yaml:"resolver"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ResolverConfig lists the upstream servers to query, in order, and
// the per-query timeout applied when a ctx carries no deadline.
type ResolverConfig struct {
	Servers []string `yaml:"servers"`
	Timeout int      `yaml:"timeout"` // seconds
}

type MetricsConfig struct {
	PrometheusEndpoint string `yaml:"prometheus_endpoint"`
	OTELEndpoint       string `yaml:"otel_endpoint"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig loads and parses a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{
		Resolver: ResolverConfig{
			Servers: []string{"1.1.1.1", "8.8.8.8"},
			Timeout: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.Resolver.Servers) == 0 {
		return nil, fmt.Errorf("config: resolver.servers must list at least one server")
	}

	return cfg, nil
}

// Example returns a YAML example config.
func Example() string {
	return `# dnswire resolver configuration

resolver:
  servers:
    - 1.1.1.1
    - udp://8.8.8.8
    - tcp://9.9.9.9:53
  timeout: 5   # seconds

metrics:
  prometheus_endpoint: "localhost:9090"
  otel_endpoint: "localhost:4318"

logging:
  level: "info"
`
}
