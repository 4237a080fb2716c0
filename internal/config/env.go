package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// RuntimeEnv holds process overrides read once at startup. Empty fields
// leave the file configuration untouched.
type RuntimeEnv struct {
	LogLevel     string `env:"KEPLERFIT_LOG_LEVEL"`
	Kernel       string `env:"KEPLERFIT_KERNEL"`
	OutputFormat string `env:"KEPLERFIT_OUTPUT_FORMAT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseRuntimeEnv reads the KEPLERFIT_* overrides.
func ParseRuntimeEnv() (RuntimeEnv, error) {
	var re RuntimeEnv
	if err := ParseEnv(&re); err != nil {
		return RuntimeEnv{}, err
	}
	return re, nil
}

// override copies the non-empty overrides into c.
func (re RuntimeEnv) override(c *Configuration) {
	if re.LogLevel != "" {
		c.Logging.Level = re.LogLevel
	}
	if re.Kernel != "" {
		c.Model.Kernel = re.Kernel
	}
	if re.OutputFormat != "" {
		c.Output.Format = re.OutputFormat
	}
}
