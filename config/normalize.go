package config

import "strings"

func (c *Config) normalize() {
	c.Policy.DisallowedKeywords = normalizeKeywords(c.Policy.DisallowedKeywords)
	c.Policy.PreciseDateKeywords = normalizeKeywords(c.Policy.PreciseDateKeywords)
	c.Policy.SensorTemperatureKeywords = normalizeKeywords(c.Policy.SensorTemperatureKeywords)
	c.normalizeLogging()
}

// normalizeKeywords upper-cases and trims keywords, dropping repeats.
func normalizeKeywords(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.ToUpper(strings.TrimSpace(key))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
