package config

import (
	"fmt"
	"net"
)

// MetricsConfig defines the configuration for metrics server
type MetricsConfig struct {
	// Host is the IP address or hostname of the metrics server
	Host string `mapstructure:"host"`
	// Port is the port number of the metrics server
	Port int `mapstructure:"port"`
}

func (cfg *MetricsConfig) Validate() error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("metrics server port must be between 0 and 65535 (inclusive)")
	}

	ip := net.ParseIP(cfg.Host)
	if ip == nil {
		return fmt.Errorf("invalid metrics server host: %v", cfg.Host)
	}

	return nil
}

func (cfg *MetricsConfig) GetMetricsPort() int {
	return cfg.Port
}
