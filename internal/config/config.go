// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	TransportTCP = "tcp"
	TransportWS  = "ws"

	FramingRaw    = "raw"
	FramingLength = "length"
)

type Config struct {
	Target struct {
		Address    string `yaml:"address"`
		Port       int    `yaml:"port"`
		Transport  string `yaml:"transport"`
		Framing    string `yaml:"framing"`
		BufferSize int    `yaml:"buffer_size"`
		WSPath     string `yaml:"ws_path"`
	} `yaml:"target"`

	Dispatch struct {
		MessageCount int `yaml:"message_count"`
		BatchSize    int `yaml:"batch_size"`
		MaxWorkers   int `yaml:"max_workers"`
	} `yaml:"dispatch"`

	Timeouts struct {
		Dial  time.Duration `yaml:"dial"`
		Read  time.Duration `yaml:"read"`
		Write time.Duration `yaml:"write"`
	} `yaml:"timeouts"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Interactive bool `yaml:"interactive"`

	API struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"api"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	RabbitMQ struct {
		URL           string `yaml:"url"`
		EventsQueue   string `yaml:"events_queue"`
		RequestsQueue string `yaml:"requests_queue"`
	} `yaml:"rabbitmq"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
}

// Default returns the configuration used when no file is given. Batch size
// and worker ceiling match one worker per message.
func Default() *Config {
	cfg := &Config{}
	cfg.Target.Address = "127.0.0.1"
	cfg.Target.Port = 8080
	cfg.Target.Transport = TransportTCP
	cfg.Target.Framing = FramingRaw
	cfg.Target.BufferSize = 1024
	cfg.Target.WSPath = "/ws"
	cfg.Dispatch.MessageCount = 100
	cfg.Dispatch.BatchSize = 1
	cfg.Dispatch.MaxWorkers = 1000000
	cfg.Timeouts.Dial = 10 * time.Second
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Interactive = true
	cfg.API.Addr = ":8090"
	cfg.RabbitMQ.EventsQueue = "loadgen_runs"
	cfg.RabbitMQ.RequestsQueue = "loadgen_requests"
	return cfg
}

// LoadConfig reads path on top of Default. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Target.Port < 0 || c.Target.Port > 65535 {
		return fmt.Errorf("target.port %d out of range", c.Target.Port)
	}
	switch c.Target.Transport {
	case TransportTCP, TransportWS:
	default:
		return fmt.Errorf("unknown target.transport %q", c.Target.Transport)
	}
	switch c.Target.Framing {
	case FramingRaw, FramingLength:
	default:
		return fmt.Errorf("unknown target.framing %q", c.Target.Framing)
	}
	if c.Target.BufferSize < 1 {
		return errors.New("target.buffer_size must be positive")
	}
	if c.Dispatch.BatchSize < 1 {
		return errors.New("dispatch.batch_size must be positive")
	}
	if c.Dispatch.MaxWorkers < 1 {
		return errors.New("dispatch.max_workers must be positive")
	}
	if !c.Interactive && c.Dispatch.MessageCount < 1 {
		return errors.New("dispatch.message_count must be positive when interactive is off")
	}
	if c.API.Enabled && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required when api is enabled")
	}
	return nil
}

// TargetAddr joins the configured address and port.
func (c *Config) TargetAddr() string {
	return net.JoinHostPort(c.Target.Address, strconv.Itoa(c.Target.Port))
}
