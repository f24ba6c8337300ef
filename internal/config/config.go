package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Output  Output  `yaml:"output"`
	Schema  Schema  `yaml:"schema"`
	Trends  Trends  `yaml:"trends"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

type Output struct {
	Dir string `yaml:"dir"`
}

type Schema struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

type Trends struct {
	Feed string `yaml:"feed"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	File string `yaml:"file"`
}

// ConfigDir returns the XDG config directory for supportmail.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "supportmail")
}

// DataDir returns the XDG data directory for supportmail.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "supportmail")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/supportmail/config.yaml > ./config.yaml.
// No config file at all is fine; the defaults cover everything.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields the
// defaults, so the tool works without any setup.
func Load(path string) (*Config, error) {
	if path == "" {
		return parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Schema: Schema{
			URL: "https://schemas.pressroom.dev/support_mail.schema.json",
		},
		Server: Server{Port: 7500},
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	return cfg, nil
}

// GetOutputDir returns the effective artifact directory; empty config
// means the current working directory.
func (c *Config) GetOutputDir() string {
	if c.Output.Dir != "" {
		return c.Output.Dir
	}
	return "."
}

// GetSchemaPath returns the effective local schema path, defaulting to
// the copy `supportmail init` writes into the config directory.
func (c *Config) GetSchemaPath() string {
	if c.Schema.Path != "" {
		return c.Schema.Path
	}
	return filepath.Join(ConfigDir(), "support_mail.schema.json")
}

// GetLogFile returns the effective diagnostic log path.
func (c *Config) GetLogFile() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(DataDir(), "supportmail.log")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
