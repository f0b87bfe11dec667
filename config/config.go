package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Broker types accepted in BrokerConfig.Type
const (
	BrokerNone = "none"
	BrokerMQTT = "mqtt"
	BrokerNATS = "nats"
)

type Config struct {
	Broker  BrokerConfig  `json:"broker"`
	MQTT    MQTTConfig    `json:"mqtt"`
	NATS    NATSConfig    `json:"nats"`
	Rules   RulesConfig   `json:"rules"`
	Logging LogConfig     `json:"logging"`
	Metrics MetricsConfig `json:"metrics"`
}

// BrokerConfig selects the transport notifications arrive on
type BrokerConfig struct {
	Type  string `json:"type"`  // none, mqtt or nats
	Topic string `json:"topic"` // Topic notifications are received on
}

type TLSConfig struct {
	Enable   bool   `json:"enable"`
	CertFile string `json:"certFile"`
	KeyFile  string `json:"keyFile"`
	CAFile   string `json:"caFile"`
}

type MQTTConfig struct {
	Broker   string    `json:"broker"`
	ClientID string    `json:"clientId"` // Generated when empty
	Username string    `json:"username"`
	Password string    `json:"password"`
	QoS      byte      `json:"qos"`
	TLS      TLSConfig `json:"tls"`
}

type NATSConfig struct {
	URLs     []string  `json:"urls"`
	ClientID string    `json:"clientId"`
	Username string    `json:"username"`
	Password string    `json:"password"`
	TLS      TLSConfig `json:"tls"`
}

type RulesConfig struct {
	Path string `json:"path"` // Directory of .json/.yaml rule files
}

type LogConfig struct {
	Level      string `json:"level"`      // debug, info, warn, error
	OutputPath string `json:"outputPath"` // file path or "stdout"
	Encoding   string `json:"encoding"`   // json or console
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
	Path    string `json:"path"`
}

// Default returns a configuration with no broker attached and every default applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Broker.Type == "" {
		config.Broker.Type = BrokerNone
	}
	if config.Broker.Topic == "" {
		config.Broker.Topic = "notifications"
	}
	if config.Rules.Path == "" {
		config.Rules.Path = "rules"
	}

	// Set defaults for logging
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.OutputPath == "" {
		config.Logging.OutputPath = "stdout"
	}
	if config.Logging.Encoding == "" {
		config.Logging.Encoding = "json"
	}

	// Set defaults for metrics
	if config.Metrics.Address == "" {
		config.Metrics.Address = ":2112"
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = "/metrics"
	}
}

// Validate re-runs validation, used after overrides are applied
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig performs validation of all configuration values
func validateConfig(cfg *Config) error {
	switch cfg.Broker.Type {
	case BrokerNone:
	case BrokerMQTT:
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt broker address is required")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt qos must be 0, 1, or 2")
		}
		if err := validateTLS("mqtt", cfg.MQTT.TLS); err != nil {
			return err
		}
	case BrokerNATS:
		if len(cfg.NATS.URLs) == 0 {
			return fmt.Errorf("at least one nats url is required")
		}
		if err := validateTLS("nats", cfg.NATS.TLS); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid broker type: %s", cfg.Broker.Type)
	}

	if cfg.Broker.Type != BrokerNone && cfg.Broker.Topic == "" {
		return fmt.Errorf("broker topic is required")
	}

	// Validate logging config
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	switch cfg.Logging.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log encoding: %s", cfg.Logging.Encoding)
	}

	return nil
}

func validateTLS(name string, tls TLSConfig) error {
	if !tls.Enable {
		return nil
	}
	if tls.CertFile == "" {
		return fmt.Errorf("%s tls cert file is required when tls is enabled", name)
	}
	if tls.KeyFile == "" {
		return fmt.Errorf("%s tls key file is required when tls is enabled", name)
	}
	if tls.CAFile == "" {
		return fmt.Errorf("%s tls ca file is required when tls is enabled", name)
	}
	return nil
}

// ApplyOverrides applies command line flag overrides to the configuration
func (c *Config) ApplyOverrides(brokerType, topic, rulesPath, metricsAddr string) {
	if brokerType != "" {
		c.Broker.Type = brokerType
	}
	if topic != "" {
		c.Broker.Topic = topic
	}
	if rulesPath != "" {
		c.Rules.Path = rulesPath
	}
	if metricsAddr != "" {
		c.Metrics.Enabled = true
		c.Metrics.Address = metricsAddr
	}
}

// ShutdownTimeout bounds graceful shutdown of the run command
const ShutdownTimeout = 10 * time.Second
