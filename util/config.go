package util

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const Name = "pictodon"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

// AppConfig is the immutable configuration snapshot passed into handlers
// and workers. It is read once at startup; a restart picks up changes.
type AppConfig struct {
	Conf struct {
		Host            string `yaml:"host"`
		HttpPort        int    `yaml:"httpPort"`
		Domain          string `yaml:"domain"`
		QueueDriver     string `yaml:"queueDriver"` // "sqlite" or "echo"
		OpenReg         bool   `yaml:"openRegistrations"`
		WithJournald    bool   `yaml:"withJournald"`
		WithPprof       bool   `yaml:"withPprof"`
		DeliveryTimeout int    `yaml:"deliveryTimeoutSec"`
	}
}

// ReadConf loads the configuration file (local dir first, then user config
// dir, then embedded defaults) and applies PICTODON_* environment overrides.
func ReadConf() (*AppConfig, error) {
	c := &AppConfig{}

	configPath := ResolveFilePath(ConfigFileName)

	buf, err := os.ReadFile(configPath)
	if err != nil {
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			if writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644); writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	applyEnvOverrides(c)

	if c.Conf.DeliveryTimeout <= 0 {
		c.Conf.DeliveryTimeout = 30
	}
	if c.Conf.QueueDriver == "" {
		c.Conf.QueueDriver = "sqlite"
	}

	return c, nil
}

func applyEnvOverrides(c *AppConfig) {
	if v := os.Getenv("PICTODON_HOST"); v != "" {
		c.Conf.Host = v
	}
	if v := os.Getenv("PICTODON_HTTPPORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Warning: invalid PICTODON_HTTPPORT %q: %v", v, err)
		} else {
			c.Conf.HttpPort = port
		}
	}
	if v := os.Getenv("PICTODON_DOMAIN"); v != "" {
		c.Conf.Domain = v
	}
	if v := os.Getenv("PICTODON_QUEUE_DRIVER"); v != "" {
		c.Conf.QueueDriver = v
	}
	if os.Getenv("PICTODON_OPEN_REGISTRATIONS") == "true" {
		c.Conf.OpenReg = true
	}
	if os.Getenv("PICTODON_WITH_JOURNALD") == "true" {
		c.Conf.WithJournald = true
	}
	if os.Getenv("PICTODON_WITH_PPROF") == "true" {
		c.Conf.WithPprof = true
	}
	if v := os.Getenv("PICTODON_DELIVERY_TIMEOUT"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Warning: invalid PICTODON_DELIVERY_TIMEOUT %q: %v", v, err)
		} else {
			c.Conf.DeliveryTimeout = sec
		}
	}
}
