// Package config defines the data structures related to configuration and
// includes functions for loading, normalizing and validating it.
package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/iwvelando/keplerfit/pkg/basis"
	"github.com/iwvelando/keplerfit/pkg/constants"
	"github.com/iwvelando/keplerfit/pkg/epoch"
	"github.com/iwvelando/keplerfit/pkg/kepler"
	"github.com/iwvelando/keplerfit/pkg/lightcurve"
	"github.com/iwvelando/keplerfit/pkg/params"
	"github.com/iwvelando/keplerfit/pkg/validation"
)

// ErrInvalidConfiguration is returned when a configuration cannot describe a
// model.
var ErrInvalidConfiguration = errors.New("config: invalid configuration")

// Configuration holds all configuration for keplerfit.
type Configuration struct {
	System     SystemConfig           `yaml:"system" mapstructure:"system"`
	Params     map[string]ParamConfig `yaml:"params" mapstructure:"params"`
	Stellar    StellarConfig          `yaml:"stellar,omitempty" mapstructure:"stellar"`
	Data       DataConfig             `yaml:"data,omitempty" mapstructure:"data"`
	Photometry []PhotometryConfig     `yaml:"photometry,omitempty" mapstructure:"photometry"`
	Model      ModelConfig            `yaml:"model,omitempty" mapstructure:"model"`
	Logging    LoggingConfig          `yaml:"logging,omitempty" mapstructure:"logging"`
	Output     OutputConfig           `yaml:"output,omitempty" mapstructure:"output"`
}

// SystemConfig describes the planetary system being modeled.
type SystemConfig struct {
	StarName     string   `yaml:"starName,omitempty" mapstructure:"starName"`
	Planets      int      `yaml:"planets" mapstructure:"planets"`
	Instruments  []string `yaml:"instruments,omitempty" mapstructure:"instruments"`
	Basis        string   `yaml:"basis" mapstructure:"basis"`
	FittingBasis string   `yaml:"fittingBasis,omitempty" mapstructure:"fittingBasis"`
	// TimeBase is the reference time of the trend terms. Unset means the
	// midpoint of the RV baseline. A calendar date is reduced by BJD0.
	TimeBase *float64 `yaml:"timeBase,omitempty" mapstructure:"-"`
	// BJD0 is the reference epoch already subtracted from data times. It
	// is added back when reporting calendar dates. A Julian date or a
	// calendar date.
	BJD0          float64  `yaml:"bjd0,omitempty" mapstructure:"-"`
	PlanetLetters []string `yaml:"planetLetters,omitempty" mapstructure:"planetLetters"`
}

// ParamConfig is one named parameter. Vary defaults to true.
type ParamConfig struct {
	Value  float64 `yaml:"value" mapstructure:"value"`
	Vary   *bool   `yaml:"vary,omitempty" mapstructure:"vary"`
	Linear bool    `yaml:"linear,omitempty" mapstructure:"linear"`
}

// StellarConfig holds stellar metadata passed through to the output.
type StellarConfig struct {
	Mass    float64 `yaml:"mass,omitempty" mapstructure:"mass"`
	MassErr float64 `yaml:"massErr,omitempty" mapstructure:"massErr"`
}

// DataConfig holds dataset paths. Empty paths are skipped.
type DataConfig struct {
	RV      string `yaml:"rv,omitempty" mapstructure:"rv"`
	Transit string `yaml:"transit,omitempty" mapstructure:"transit"`
	Eclipse string `yaml:"eclipse,omitempty" mapstructure:"eclipse"`
}

// PhotometryConfig holds one planet's occultation geometry. Inc is in
// degrees.
type PhotometryConfig struct {
	Planet    int     `yaml:"planet" mapstructure:"planet"`
	Flux      float64 `yaml:"flux" mapstructure:"flux"`
	Ars       float64 `yaml:"ars" mapstructure:"ars"`
	Rprs      float64 `yaml:"rprs" mapstructure:"rprs"`
	Inc       float64 `yaml:"inc" mapstructure:"inc"`
	FluxRatio float64 `yaml:"fluxRatio,omitempty" mapstructure:"fluxRatio"`
}

// ModelConfig holds numerical settings.
type ModelConfig struct {
	Kernel              string  `yaml:"kernel,omitempty" mapstructure:"kernel"`                           // auto, native, interpreted
	KeplerTolerance     float64 `yaml:"keplerTolerance,omitempty" mapstructure:"keplerTolerance"`         // radians
	KeplerMaxIterations int     `yaml:"keplerMaxIterations,omitempty" mapstructure:"keplerMaxIterations"` // per solve
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format       string `yaml:"format,omitempty" mapstructure:"format"`             // pretty, csv
	ExportParams string `yaml:"exportParams,omitempty" mapstructure:"exportParams"` // optional YAML path
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	return LoadConfigurationWithEnv(configPath, RuntimeEnv{})
}

// LoadConfigurationWithEnv loads the configuration at configPath and applies
// the environment overrides before validating it.
func LoadConfigurationWithEnv(configPath string, re RuntimeEnv) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()

	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}

	var configuration Configuration
	err := v.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := configuration.resolveEpochs(v); err != nil {
		return nil, err
	}

	re.override(&configuration)
	configuration.Normalize()
	if err := configuration.Validate(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// resolveEpochs reads system.bjd0 and system.timeBase, which take either a
// Julian date or a calendar date.
func (c *Configuration) resolveEpochs(v *viper.Viper) error {
	if v.IsSet("system.bjd0") {
		jd, err := epoch.Parse(v.GetString("system.bjd0"))
		if err != nil {
			return fmt.Errorf("%w: system.bjd0: %w", ErrInvalidConfiguration, err)
		}
		c.System.BJD0 = jd
	}
	if v.IsSet("system.timeBase") {
		t, err := epoch.ParseReduced(v.GetString("system.timeBase"), c.System.BJD0)
		if err != nil {
			return fmt.Errorf("%w: system.timeBase: %w", ErrInvalidConfiguration, err)
		}
		c.System.TimeBase = &t
	}
	return nil
}

// Normalize lower-cases instrument tags and parameter names and fills
// defaults.
func (c *Configuration) Normalize() {
	for i, inst := range c.System.Instruments {
		c.System.Instruments[i] = strings.ToLower(strings.TrimSpace(inst))
	}
	if len(c.Params) > 0 {
		normalized := make(map[string]ParamConfig, len(c.Params))
		for name, p := range c.Params {
			normalized[strings.ToLower(strings.TrimSpace(name))] = p
		}
		c.Params = normalized
	}
	c.System.Basis = strings.Join(strings.Fields(c.System.Basis), " ")
	c.System.FittingBasis = strings.Join(strings.Fields(c.System.FittingBasis), " ")
	if c.System.FittingBasis == "" {
		c.System.FittingBasis = c.System.Basis
	}
	c.Model.Kernel = strings.ToLower(strings.TrimSpace(c.Model.Kernel))
	if c.Model.Kernel == "" {
		c.Model.Kernel = constants.KernelAuto
	}
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
}

// Validate returns an error describing every problem that prevents the
// configuration from being used. Suspicious but usable values are reported
// by ValidateConfiguration instead.
func (c *Configuration) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfiguration}, args...)...))
	}

	if c.System.Planets < 1 {
		add("system.planets must be at least 1, got %d", c.System.Planets)
	}
	reg := basis.Default()
	if _, err := reg.Lookup(c.System.Basis); err != nil {
		errs = append(errs, fmt.Errorf("system.basis: %w", err))
	}
	if _, err := reg.Lookup(c.System.FittingBasis); err != nil {
		errs = append(errs, fmt.Errorf("system.fittingBasis: %w", err))
	}

	seen := make(map[string]bool)
	for _, inst := range c.System.Instruments {
		if err := params.ValidateInstrument(inst); err != nil {
			errs = append(errs, fmt.Errorf("system.instruments: %w", err))
		}
		if seen[inst] {
			add("system.instruments: duplicate instrument %q", inst)
		}
		seen[inst] = true
	}

	if n := len(c.System.PlanetLetters); n > 0 && n != c.System.Planets {
		add("system.planetLetters has %d entries for %d planets", n, c.System.Planets)
	}

	photometryPlanets := make(map[int]int)
	for i, p := range c.Photometry {
		if p.Planet < 1 || p.Planet > c.System.Planets {
			add("photometry[%d].planet %d is out of range 1..%d", i, p.Planet, c.System.Planets)
		}
		if j, ok := photometryPlanets[p.Planet]; ok {
			add("photometry[%d].planet %d already has a block at photometry[%d]", i, p.Planet, j)
		} else {
			photometryPlanets[p.Planet] = i
		}
		if !(p.Flux > 0) {
			add("photometry[%d].flux must be positive, got %g", i, p.Flux)
		}
	}
	if c.Data.Transit != "" && !seen[constants.TransitInstrument] {
		add("data.transit requires instrument %q", constants.TransitInstrument)
	}
	if c.Data.Eclipse != "" && !seen[constants.EclipseInstrument] {
		add("data.eclipse requires instrument %q", constants.EclipseInstrument)
	}

	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidateKernelMode(c.Model.Kernel); err != nil {
		errs = append(errs, err)
	}
	if c.Model.KeplerTolerance < 0 || c.Model.KeplerMaxIterations < 0 {
		add("model.keplerTolerance and model.keplerMaxIterations must not be negative")
	}

	return errors.Join(errs...)
}

// ParameterSet builds the parameter set in the input basis.
func (c *Configuration) ParameterSet() (*params.Set, error) {
	b, err := basis.Default().Lookup(c.System.Basis)
	if err != nil {
		return nil, err
	}
	builder := params.NewBuilder(b, c.System.Planets, c.System.Instruments)

	names := make([]string, 0, len(c.Params))
	for name := range c.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := c.Params[name]
		vary := p.Vary == nil || *p.Vary
		builder.Set(name, params.Parameter{Value: p.Value, Vary: vary, Linear: p.Linear})
	}
	return builder.Build()
}

// Solver returns the Kepler solver settings.
func (c *Configuration) Solver() kepler.Solver {
	return kepler.Solver{Tolerance: c.Model.KeplerTolerance, MaxIterations: c.Model.KeplerMaxIterations}
}

// KernelMode returns the light-curve kernel mode.
func (c *Configuration) KernelMode() (lightcurve.Mode, error) {
	return lightcurve.ParseMode(c.Model.Kernel)
}

// PlanetLetter returns the display label of planet n (1-based). Without
// configured letters planets are labelled b, c, d, ...
func (c *Configuration) PlanetLetter(n int) string {
	if n >= 1 && n <= len(c.System.PlanetLetters) {
		return c.System.PlanetLetters[n-1]
	}
	return string(rune('a' + n))
}

// PlanetPhotometry returns the photometry block of planet n, if any.
func (c *Configuration) PlanetPhotometry(n int) (PhotometryConfig, bool) {
	for _, p := range c.Photometry {
		if p.Planet == n {
			return p, true
		}
	}
	return PhotometryConfig{}, false
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	cv := validation.ConfigValidator{}

	if set, err := c.ParameterSet(); err == nil {
		if els, err := basis.AllElements(set); err == nil {
			for i, el := range els {
				pc := validation.PlanetConfig{Name: c.PlanetLetter(i + 1), Per: el.Per, E: el.E}
				if phot, ok := c.PlanetPhotometry(i + 1); ok {
					pc.Ars, pc.Rprs = phot.Ars, phot.Rprs
				}
				cv.Planets = append(cv.Planets, pc)
			}
		}
		for _, inst := range set.Instruments() {
			jit, _ := set.Value(params.JitterName(inst))
			cv.Instruments = append(cv.Instruments, validation.InstrumentConfig{Name: inst, Jitter: jit})
		}
		ti, errTi := set.Value(params.NameTi)
		tf, errTf := set.Value(params.NameTf)
		if errTi == nil && errTf == nil {
			cv.Window = &validation.TimeWindow{Start: ti, End: tf}
		}
	}

	warnings := cv.ValidateAll()
	for _, p := range c.Photometry {
		if p.Inc < 0 || p.Inc > 180 || math.IsNaN(p.Inc) {
			warnings = append(warnings, fmt.Sprintf("Planet '%s' inclination %g is outside [0, 180] degrees",
				c.PlanetLetter(p.Planet), p.Inc))
		}
	}
	return warnings
}
