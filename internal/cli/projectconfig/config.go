package projectconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nidhal-dev/authfront/internal/config"
)

const ConfigFileName = "authfront.yaml"

// Config represents the per-project CLI configuration file. Empty fields
// leave the environment configuration untouched.
type Config struct {
	APIURL   string `yaml:"api_url"`
	Storage  string `yaml:"storage,omitempty"`
	StateDir string `yaml:"state_dir,omitempty"`
}

// FindConfigFile searches for authfront.yaml in the current directory and
// its parents
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found in %s or any parent directory", ConfigFileName, currentDir)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads the config from the current directory or a parent.
// A missing file is not an error; it yields nil.
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, nil
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Apply overlays the project settings onto the environment configuration
func (c *Config) Apply(cfg *config.Config) {
	if c == nil {
		return
	}
	if c.APIURL != "" {
		cfg.API.URL = strings.TrimRight(c.APIURL, "/")
	}
	if c.Storage != "" {
		cfg.Storage.Backend = c.Storage
	}
	if c.StateDir != "" {
		if cfg.Storage.DatabaseURL == filepath.Join(cfg.Storage.Dir, "authfront.sqlite") {
			cfg.Storage.DatabaseURL = filepath.Join(c.StateDir, "authfront.sqlite")
		}
		cfg.Storage.Dir = c.StateDir
	}
}
