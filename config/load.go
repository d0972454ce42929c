package config

import (
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/stella-systems/stellanow-sdk-go/errors"
)

// Load reads the configuration from the YAML file at path, then applies
// STELLANOW_* environment overrides. With an empty path only the environment
// and defaults are used. The result is not validated.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, errors.WrapFatal(err, "Config", "Load", "read environment")
		}
		return cfg, nil
	}

	// ReadConfig applies env overrides after the file
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, errors.WrapFatal(err, "Config", "Load", "read "+path)
	}
	return cfg, nil
}

// Usage describes every environment variable Load understands
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
