package ezid

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds client defaults loaded from a YAML file, so credentials
// do not have to be repeated on every invocation.
type Config struct {
	// Server is a known server name (production, staging) or a base URL.
	Server string `yaml:"server,omitempty"`

	// Credentials in the same forms the -c flag accepts.
	Credentials string `yaml:"credentials,omitempty"`
}

// DefaultConfigPath returns ~/.ezid-batch.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ezid-batch.yaml"), nil
}

// LoadConfig loads a config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return &cfg, nil
}

// LoadDefaultConfig loads the default config file. A missing file is
// not an error; it yields an empty config.
func LoadDefaultConfig() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return &Config{}, nil
	}
	cfg, err := LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
