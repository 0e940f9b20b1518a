package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wekeepgrowing/grantpay/pkg/logger"
)

// Config is the full service configuration. It is loaded once at start-up
// and handed to constructors by value; nothing reads the environment after
// LoadConfig returns.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Log       logger.Config   `yaml:"log"`
	JWT       JWTConfig       `yaml:"jwt"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Providers ProvidersConfig `yaml:"providers"`
	Fraud     FraudConfig     `yaml:"fraud"`
	Batch     BatchConfig     `yaml:"batch"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	Banks     []BankConfig    `yaml:"banks"`
	Webhook   WebhookConfig   `yaml:"webhook"`
}

func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/grantpay.yaml"
	}

	return LoadConfigFile(configPath)
}

// LoadConfigFile reads and validates the YAML file at path.
func LoadConfigFile(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fills defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		c.Service.Name = "grantpay"
	}
	if c.Service.Currency == "" {
		c.Service.Currency = "ZAR"
	}
	if c.Log.Service == "" {
		c.Log.Service = c.Service.Name
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "payments.status"
	}

	c.Batch.applyDefaults()
	c.Sweeper.applyDefaults()
	c.Providers.applyDefaults()

	if err := c.Fraud.applyDefaults(); err != nil {
		return err
	}

	for i, bank := range c.Banks {
		if bank.Code == "" {
			return fmt.Errorf("banks[%d]: code is required", i)
		}
	}

	return nil
}
