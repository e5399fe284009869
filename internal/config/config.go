package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type StorageConfig struct {
	// Type selects the backend: memory, embedded
	Type string `yaml:"type"`
	// Path is the data directory for the embedded backend
	Path string `yaml:"path"`
}

type BootstrapConfig struct {
	// Seed loads the sample reference data on first start
	Seed bool `yaml:"seed"`
}

const (
	StorageMemory   = "memory"
	StorageEmbedded = "embedded"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = StorageEmbedded
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./data"
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Type {
	case StorageMemory, StorageEmbedded:
		return nil
	default:
		return fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
