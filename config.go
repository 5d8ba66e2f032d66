package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// duration lets YAML carry values like "30s"; yaml.v3 has no native
// time.Duration support.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = duration(parsed)
	return nil
}

// config holds everything both modes need at startup. Values come from
// an optional YAML file; command-line flags override file values.
type config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	HistoryLimit    int           `yaml:"history_limit"`
	IdleTimeout     duration      `yaml:"idle_timeout"`
	MetricsInterval duration      `yaml:"metrics_interval"`
	Gateway         gatewayConfig `yaml:"gateway"`
}

// gatewayConfig enables the push-mode websocket gateway when Addr is
// set. Origin, when set, restricts websocket upgrades to that origin.
type gatewayConfig struct {
	Addr   string `yaml:"addr"`
	Origin string `yaml:"origin"`
}

func defaultConfig() config {
	return config{
		Host:            "0.0.0.0",
		Port:            8005,
		HistoryLimit:    100,
		IdleTimeout:     0,
		MetricsInterval: duration(60 * time.Second),
	}
}

// loadConfig reads path over the defaults. An empty path is not an
// error; it just means defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
