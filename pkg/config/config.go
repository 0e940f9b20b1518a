// Package config loads layered settings for command line tools with viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config gives read access to loaded settings.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat64(key string) float64
	GetStringSlice(key string) []string
	GetStringMap(key string) map[string]interface{}
	GetAll() map[string]interface{}
	// ConfigFile returns the path of the file that was read, if any.
	ConfigFile() string
}

type viperConfig struct {
	v *viper.Viper
}

func (c *viperConfig) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *viperConfig) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *viperConfig) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *viperConfig) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

func (c *viperConfig) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

func (c *viperConfig) GetStringMap(key string) map[string]interface{} {
	return c.v.GetStringMap(key)
}

func (c *viperConfig) GetAll() map[string]interface{} {
	return c.v.AllSettings()
}

func (c *viperConfig) ConfigFile() string {
	return c.v.ConfigFileUsed()
}

const configDir = "configs"

// Load reads {serviceName}.yaml from CONFIG_PATH, configs/{APP_ENV} or
// configs, in that order. Environment variables prefixed with the upper-case
// service name override file values, with dots replaced by underscores.
func Load(serviceName string) (Config, error) {
	return LoadFile(serviceName, os.Getenv("CONFIG_PATH"))
}

// LoadFile is Load with an explicit path. An empty path falls back to the
// configs directory lookup.
func LoadFile(serviceName, path string) (Config, error) {
	v := viper.New()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix(strings.ToUpper(serviceName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			v.SetConfigFile(path)
		} else {
			v.SetConfigName(serviceName)
			v.AddConfigPath(path)
		}
	} else {
		v.SetConfigName(serviceName)
		v.AddConfigPath(filepath.Join(configDir, env))
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	return &viperConfig{v: v}, nil
}
