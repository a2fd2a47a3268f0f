package config

import (
	"fmt"
	"regexp"
)

var keywordRegex = regexp.MustCompile(`^[A-Z0-9_\-]{1,8}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePolicy(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePolicy() error {
	sets := []struct {
		name string
		keys []string
	}{
		{"policy.disallowed_keywords", c.Policy.DisallowedKeywords},
		{"policy.precise_date_keywords", c.Policy.PreciseDateKeywords},
		{"policy.sensor_temperature_keywords", c.Policy.SensorTemperatureKeywords},
	}
	for _, set := range sets {
		for _, key := range set.keys {
			if !keywordRegex.MatchString(key) {
				return fmt.Errorf("%s: invalid FITS keyword %q", set.name, key)
			}
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
