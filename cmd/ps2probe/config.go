package main

import (
	"fmt"
	"os"

	"github.com/tinyrange/ps2"
	"gopkg.in/yaml.v3"
)

// Config holds tool settings that are awkward as flags, like a
// site-specific poll budget for slow controllers.
type Config struct {
	// Timeout is the number of status polls before a read or write
	// gives up.
	Timeout int `yaml:"timeout,omitempty"`

	// NonBlocking makes data reads fail immediately when the output
	// buffer is empty instead of polling.
	NonBlocking bool `yaml:"non_blocking,omitempty"`

	// Backend selects the register port: "devport" or "emu".
	Backend string `yaml:"backend,omitempty"`
}

func (c *Config) normalize() error {
	if c.Timeout == 0 {
		c.Timeout = ps2.DefaultTimeout
	}
	if c.Backend == "" {
		c.Backend = "devport"
	}
	switch c.Backend {
	case "devport", "emu":
	default:
		return fmt.Errorf("unknown backend %q (want devport or emu)", c.Backend)
	}
	return nil
}

// LoadConfig reads a YAML config file. A missing file yields defaults.
func LoadConfig(path string) (Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := config.normalize(); err != nil {
			return Config{}, err
		}
		return config, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := config.normalize(); err != nil {
		return Config{}, err
	}
	return config, nil
}
