// Package config handles configuration loading and validation for the Paseo
// desktop backend.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/paseo-app/desktopd/internal/attachments"
)

// UpdateConfig holds configuration for the application updater.
type UpdateConfig struct {
	Owner string `yaml:"owner"` // GitHub repository owner
	Repo  string `yaml:"repo"`  // GitHub repository name
}

// Config holds configuration for the desktop backend daemon.
type Config struct {
	DataDir       string       `yaml:"data_dir"`       // Managed attachment directory
	SocketPath    string       `yaml:"socket_path"`    // Control socket path
	Shell         string       `yaml:"shell"`          // Login shell override (default: $SHELL)
	LogLevel      string       `yaml:"log_level"`      // zerolog level (default: "info")
	MetricsListen string       `yaml:"metrics_listen"` // Prometheus listen address (empty = disabled)
	Update        UpdateConfig `yaml:"update"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "paseo-desktopd.yaml"
	}
	return filepath.Join(home, ".paseo", "desktopd.yaml")
}

// DefaultSocketPath returns the default control socket path.
func DefaultSocketPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "paseo-desktopd.sock"
	}
	return filepath.Join(home, ".paseo", "desktopd.sock")
}

// Load reads configuration from a YAML file and applies defaults. A missing
// file is not an error: defaults are returned so the daemon runs without any
// configuration at all.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.DataDir == "" {
		dir, err := attachments.DefaultDir()
		if err != nil {
			return err
		}
		c.DataDir = dir
	}
	c.DataDir = expandHome(c.DataDir)

	if c.SocketPath == "" {
		c.SocketPath = DefaultSocketPath()
	}
	c.SocketPath = expandHome(c.SocketPath)

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Update.Owner == "" {
		c.Update.Owner = "paseo-app"
	}
	if c.Update.Repo == "" {
		c.Update.Repo = "paseo-desktop"
	}
	return nil
}

// expandHome expands a leading "~/" to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
