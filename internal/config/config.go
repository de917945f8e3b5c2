package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the station clients
type Config struct {
	Server ServerConfig `yaml:"server"`
	Push   PushConfig   `yaml:"push"`
	Device DeviceConfig `yaml:"device"`
}

// ServerConfig holds REST API connection configuration
type ServerConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PushConfig holds push-channel configuration. Transport selects between
// the AMQP event bus and the WebSocket gateway.
type PushConfig struct {
	Transport string `yaml:"transport"`
	URL       string `yaml:"url"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
}

// DeviceConfig holds locally persisted device settings
type DeviceConfig struct {
	StatePath              string `yaml:"state_path"`
	RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
func Load(filename string) (*Config, error) {
	config := defaults()

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	var currentSection string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Check for section headers
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			currentSection = strings.TrimSuffix(line, ":")
			continue
		}

		// Parse key-value pairs
		if strings.Contains(line, ":") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), "\"")

			if err := config.setValue(currentSection, key, value); err != nil {
				return nil, fmt.Errorf("failed to set config value %s.%s: %w", currentSection, key, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnvOverrides()

	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:        "http://localhost:8080",
			TimeoutSeconds: 10,
		},
		Push: PushConfig{
			Transport: "amqp",
			Host:      "localhost",
			Port:      5672,
			User:      "guest",
			Password:  "guest",
		},
		Device: DeviceConfig{
			StatePath:              "",
			RefreshIntervalSeconds: 30,
		},
	}
}

// setValue sets a configuration value based on section and key
func (c *Config) setValue(section, key, value string) error {
	switch section {
	case "server":
		return c.setServerValue(key, value)
	case "push":
		return c.setPushValue(key, value)
	case "device":
		return c.setDeviceValue(key, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) setServerValue(key, value string) error {
	switch key {
	case "base_url":
		c.Server.BaseURL = value
	case "timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid timeout_seconds value: %w", err)
		}
		c.Server.TimeoutSeconds = n
	default:
		return fmt.Errorf("unknown server key: %s", key)
	}
	return nil
}

func (c *Config) setPushValue(key, value string) error {
	switch key {
	case "transport":
		if value != "amqp" && value != "websocket" {
			return fmt.Errorf("transport must be amqp or websocket")
		}
		c.Push.Transport = value
	case "url":
		c.Push.URL = value
	case "host":
		c.Push.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.Push.Port = port
	case "user":
		c.Push.User = value
	case "password":
		c.Push.Password = value
	default:
		return fmt.Errorf("unknown push key: %s", key)
	}
	return nil
}

func (c *Config) setDeviceValue(key, value string) error {
	switch key {
	case "state_path":
		c.Device.StatePath = value
	case "refresh_interval_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid refresh_interval_seconds value: %w", err)
		}
		c.Device.RefreshIntervalSeconds = n
	default:
		return fmt.Errorf("unknown device key: %s", key)
	}
	return nil
}

// applyEnvOverrides lets deployment environments override file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TABLESIDE_API_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("TABLESIDE_PUSH_TRANSPORT"); v == "amqp" || v == "websocket" {
		c.Push.Transport = v
	}
	if v := os.Getenv("TABLESIDE_PUSH_URL"); v != "" {
		c.Push.URL = v
	}
	if v := os.Getenv("RABBITMQ_HOST"); v != "" {
		c.Push.Host = v
	}
	if v := os.Getenv("RABBITMQ_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Push.Port = port
		}
	}
	if v := os.Getenv("RABBITMQ_USER"); v != "" {
		c.Push.User = v
	}
	if v := os.Getenv("RABBITMQ_PASS"); v != "" {
		c.Push.Password = v
	}
}

// AMQPURL returns an AMQP connection URL for the push event bus.
func (c *Config) AMQPURL() string {
	if c.Push.URL != "" && c.Push.Transport == "amqp" {
		return c.Push.URL
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.Push.User, c.Push.Password, c.Push.Host, c.Push.Port)
}

// WebSocketURL returns the push gateway WebSocket URL.
func (c *Config) WebSocketURL() string {
	if c.Push.URL != "" && c.Push.Transport == "websocket" {
		return c.Push.URL
	}
	return fmt.Sprintf("ws://%s:%d/socket", c.Push.Host, c.Push.Port)
}
