package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/keplerfit/pkg/basis"
	"github.com/iwvelando/keplerfit/pkg/constants"
	"github.com/iwvelando/keplerfit/pkg/lightcurve"
	"github.com/iwvelando/keplerfit/pkg/params"
)

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Invalid configuration",
			configPath: "testdata/invalid.yaml",
			wantError:  true,
		},
		{
			name:       "Minimal configuration",
			configPath: "testdata/minimal.yaml",
			wantError:  false,
		},
		{
			name:       "K2-24 example",
			configPath: "testdata/k2-24.yaml",
			wantError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationExample(t *testing.T) {
	conf, err := LoadConfiguration("testdata/k2-24.yaml")
	require.NoError(t, err)

	assert.Equal(t, "K2-24", conf.System.StarName)
	assert.Equal(t, 2, conf.System.Planets)
	assert.Equal(t, []string{"hires", "tr"}, conf.System.Instruments)
	assert.Equal(t, "per tc e w k", conf.System.Basis)
	assert.Equal(t, "logper tc secosw sesinw k", conf.System.FittingBasis)
	require.NotNil(t, conf.System.TimeBase)
	assert.Equal(t, 2457367.852646, *conf.System.TimeBase)
	assert.Equal(t, []string{"b", "c"}, conf.System.PlanetLetters)
	assert.Equal(t, 1.07, conf.Stellar.Mass)
	assert.Equal(t, "../../testdata/k2-24_rv.txt", conf.Data.RV)
	assert.Empty(t, conf.Data.Eclipse)

	require.Len(t, conf.Photometry, 1)
	assert.Equal(t, PhotometryConfig{Planet: 1, Flux: 1, Ars: 27.1, Rprs: 0.0547, Inc: 89.25}, conf.Photometry[0])

	assert.Equal(t, constants.KernelAuto, conf.Model.Kernel)
	assert.Equal(t, 1e-12, conf.Model.KeplerTolerance)
	assert.Equal(t, 100, conf.Model.KeplerMaxIterations)
	assert.Equal(t, "console", conf.Logging.Format)
	assert.Equal(t, constants.OutputFormatPretty, conf.Output.Format)

	gamma := conf.Params["gamma_hires"]
	require.NotNil(t, gamma.Vary)
	assert.False(t, *gamma.Vary)
	assert.True(t, gamma.Linear)
	assert.Nil(t, conf.Params["per1"].Vary)
}

func TestLoadConfigurationNormalizes(t *testing.T) {
	conf, err := LoadConfiguration("testdata/minimal.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"harps"}, conf.System.Instruments)
	assert.Contains(t, conf.Params, "gamma_harps")
	assert.Equal(t, "per tp e w k", conf.System.FittingBasis, "fitting basis defaults to the input basis")
	assert.Equal(t, constants.KernelAuto, conf.Model.Kernel)
	assert.Equal(t, constants.OutputFormatPretty, conf.Output.Format)
	assert.Nil(t, conf.System.TimeBase)
}

func TestLoadConfigurationReportsAllProblems(t *testing.T) {
	_, err := LoadConfiguration("testdata/invalid.yaml")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.ErrorIs(t, err, basis.ErrUnknownBasis)
	msg := err.Error()
	for _, want := range []string{"system.planets", "duplicate instrument", "output format", "kernel"} {
		assert.Contains(t, msg, want)
	}
}

func TestParameterSet(t *testing.T) {
	conf, err := LoadConfiguration("testdata/k2-24.yaml")
	require.NoError(t, err)

	set, err := conf.ParameterSet()
	require.NoError(t, err)
	assert.Equal(t, "per tc e w k", set.Basis().Name())
	assert.Equal(t, 2, set.Planets())

	per1, ok := set.Get("per1")
	require.True(t, ok)
	assert.Equal(t, params.Parameter{Value: 20.8851, Vary: true}, per1)

	gamma, ok := set.Get("gamma_hires")
	require.True(t, ok)
	assert.Equal(t, params.Parameter{Value: 0.1, Vary: false, Linear: true}, gamma)

	ti, err := set.Value(params.NameTi)
	require.NoError(t, err)
	assert.Equal(t, 2456900.0, ti)
}

func TestParameterSetMissingParameter(t *testing.T) {
	conf, err := LoadConfiguration("testdata/minimal.yaml")
	require.NoError(t, err)
	delete(conf.Params, "k1")

	_, err = conf.ParameterSet()
	require.ErrorIs(t, err, params.ErrMissingParameter)
}

func TestPlanetLetter(t *testing.T) {
	conf := &Configuration{System: SystemConfig{Planets: 3}}
	assert.Equal(t, "b", conf.PlanetLetter(1))
	assert.Equal(t, "d", conf.PlanetLetter(3))

	conf.System.PlanetLetters = []string{"b", "c", "e"}
	assert.Equal(t, "e", conf.PlanetLetter(3))
}

func TestSolverAndKernelMode(t *testing.T) {
	conf, err := LoadConfiguration("testdata/minimal.yaml")
	require.NoError(t, err)

	solver := conf.Solver()
	assert.Zero(t, solver.Tolerance, "zero falls back to the solver default")

	mode, err := conf.KernelMode()
	require.NoError(t, err)
	assert.Equal(t, lightcurve.ModeAuto, mode)

	conf.Model.Kernel = "interpreted"
	mode, err = conf.KernelMode()
	require.NoError(t, err)
	assert.Equal(t, lightcurve.ModeInterpreted, mode)
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name            string
		modify          func(c *Configuration)
		expectWarnCount int
	}{
		{
			name:            "Example is clean",
			modify:          func(c *Configuration) {},
			expectWarnCount: 0,
		},
		{
			name: "High eccentricity",
			modify: func(c *Configuration) {
				c.Params["e1"] = ParamConfig{Value: 0.93}
			},
			expectWarnCount: 1,
		},
		{
			name: "Negative jitter and reversed window",
			modify: func(c *Configuration) {
				c.Params["jit_hires"] = ParamConfig{Value: -2}
				c.Params["ti"] = ParamConfig{Value: 2458000}
			},
			expectWarnCount: 2,
		},
		{
			name: "Bad inclination and grazing orbit",
			modify: func(c *Configuration) {
				c.Photometry[0].Inc = 200
				c.Photometry[0].Ars = 1.01
			},
			expectWarnCount: 2,
		},
		{
			name: "Unbuildable parameters give no element warnings",
			modify: func(c *Configuration) {
				delete(c.Params, "k2")
				c.Params["e1"] = ParamConfig{Value: 0.95}
			},
			expectWarnCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := LoadConfiguration("testdata/k2-24.yaml")
			require.NoError(t, err)
			tt.modify(conf)

			warnings := conf.ValidateConfiguration()
			if len(warnings) != tt.expectWarnCount {
				t.Errorf("ValidateConfiguration() returned %d warnings, expected %d: %v",
					len(warnings), tt.expectWarnCount, warnings)
			}
		})
	}
}

func TestValidateRequiresPhotometricInstruments(t *testing.T) {
	conf, err := LoadConfiguration("testdata/k2-24.yaml")
	require.NoError(t, err)

	conf.System.Instruments = []string{"hires"}
	err = conf.Validate()
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), `"tr"`)

	conf.System.Instruments = []string{"hires", "tr"}
	conf.Photometry[0].Planet = 3
	err = conf.Validate()
	require.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestValidateRejectsDuplicatePhotometry(t *testing.T) {
	conf, err := LoadConfiguration("testdata/k2-24.yaml")
	require.NoError(t, err)

	second := conf.Photometry[0]
	second.Rprs = 0.06
	conf.Photometry = append(conf.Photometry, second)
	err = conf.Validate()
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "photometry[1].planet 1 already has a block at photometry[0]")
}

// writeConfig writes minimal.yaml with extra lines added to its system
// block and extra top-level blocks appended.
func writeConfig(t *testing.T, system, blocks string) string {
	t.Helper()
	base, err := os.ReadFile("testdata/minimal.yaml")
	require.NoError(t, err)
	content := strings.Replace(string(base), "system:\n", "system:\n"+system, 1) + blocks
	path := filepath.Join(t.TempDir(), "keplerfit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigurationCalendarEpochs(t *testing.T) {
	tests := []struct {
		name     string
		system   string
		bjd0     float64
		timeBase float64
		wantErr  bool
	}{
		{
			name:     "Julian dates",
			system:   "  bjd0: 2450000\n  timeBase: 4222.5\n",
			bjd0:     2450000,
			timeBase: 4222.5,
		},
		{
			name:     "Calendar dates",
			system:   "  bjd0: \"2000-01-01T12:00:00\"\n  timeBase: \"2000-01-11T12:00:00\"\n",
			bjd0:     2451545,
			timeBase: 10,
		},
		{
			name:     "Calendar time base without bjd0",
			system:   "  timeBase: \"2000-01-01\"\n",
			timeBase: 2451544.5,
		},
		{
			name:    "Unparseable bjd0",
			system:  "  bjd0: last tuesday\n",
			wantErr: true,
		},
		{
			name:    "Unparseable time base",
			system:  "  timeBase: soon\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := LoadConfiguration(writeConfig(t, tt.system, ""))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.bjd0, conf.System.BJD0, 1e-9)
			require.NotNil(t, conf.System.TimeBase)
			assert.InDelta(t, tt.timeBase, *conf.System.TimeBase, 1e-9)
		})
	}
}

func TestLoadConfigurationWithEnvOverridesBeforeValidation(t *testing.T) {
	path := writeConfig(t, "", "model:\n  kernel: gpu\n")

	_, err := LoadConfiguration(path)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	conf, err := LoadConfigurationWithEnv(path, RuntimeEnv{Kernel: "Interpreted"})
	require.NoError(t, err)
	assert.Equal(t, "interpreted", conf.Model.Kernel)
}

func TestExampleElements(t *testing.T) {
	conf, err := LoadConfiguration("testdata/k2-24.yaml")
	require.NoError(t, err)
	set, err := conf.ParameterSet()
	require.NoError(t, err)

	els, err := basis.AllElements(set)
	require.NoError(t, err)
	require.Len(t, els, 2)
	// w = π/2 puts periastron at transit.
	assert.InDelta(t, 2456905.8855, els[0].Tp, 1e-6)
	assert.InDelta(t, math.Pi/2, els[0].W, 1e-12)
}
