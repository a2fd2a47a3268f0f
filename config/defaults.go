package config

const (
	defaultVerify    = true
	defaultLock      = true
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

var (
	defaultDisallowedKeywords        = []string{"XPIXELSZ", "XPIXSZ", "YPIXELSZ", "YPIXSZ"}
	defaultPreciseDateKeywords       = []string{"DATE"}
	defaultSensorTemperatureKeywords = []string{"CCD-TEMP"}
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Verify: defaultVerify,
		Lock:   defaultLock,
		Policy: Policy{
			DisallowedKeywords:        append([]string(nil), defaultDisallowedKeywords...),
			PreciseDateKeywords:       append([]string(nil), defaultPreciseDateKeywords...),
			SensorTemperatureKeywords: append([]string(nil), defaultSensorTemperatureKeywords...),
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
