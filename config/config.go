package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Policy holds the keyword sets driving removal and deduplication.
type Policy struct {
	DisallowedKeywords        []string `toml:"disallowed_keywords"`
	PreciseDateKeywords       []string `toml:"precise_date_keywords"`
	SensorTemperatureKeywords []string `toml:"sensor_temperature_keywords"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Verify  bool    `toml:"verify"`
	Lock    bool    `toml:"lock"`
	Policy  Policy  `toml:"policy"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath is the file Load reads when no path is given.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "fitsnorm", "config.toml"), nil
}

// Load reads the TOML file at path on top of the defaults. An empty path
// falls back to DefaultConfigPath, which may be absent. It returns the
// resolved path and whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, "", false, err
		}
	}

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, "", false, fmt.Errorf("open config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, path, file != nil, nil
}

// Sample returns the commented sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path, creating parent
// directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists: %s", path)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
