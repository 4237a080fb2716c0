// Package constants provides shared constants for the keplerfit application.
package constants

import "math"

// Angular constants
const (
	// TwoPi is a full revolution in radians.
	TwoPi = 2 * math.Pi

	// HalfPi is a quarter revolution in radians.
	HalfPi = math.Pi / 2
)

// Kepler solver defaults
const (
	// DefaultKeplerTolerance is the convergence threshold on successive
	// eccentric anomaly iterates, in radians.
	DefaultKeplerTolerance = 1e-12

	// DefaultKeplerMaxIterations caps the Newton-Raphson loop.
	DefaultKeplerMaxIterations = 100

	// MaxEccentricity is the exclusive upper bound for bound orbits.
	MaxEccentricity = 1.0
)

// AbsoluteTolerance guards relative comparisons of values near zero.
const AbsoluteTolerance = 1e-12

// Light-curve kernel modes
const (
	// KernelAuto uses the native kernel when one is registered.
	KernelAuto = "auto"

	// KernelNative requires the native kernel.
	KernelNative = "native"

	// KernelInterpreted forces the portable kernel.
	KernelInterpreted = "interpreted"
)

// Photometric instrument tags, matching the gamma_tr / jit_tr and
// gamma_ecl / jit_ecl parameter names.
const (
	TransitInstrument = "tr"
	EclipseInstrument = "ecl"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"
)

// JulianUnixEpoch is the Julian date of 1970-01-01T00:00:00Z.
const JulianUnixEpoch = 2440587.5

// SecondsPerDay is the number of SI seconds in a day.
const SecondsPerDay = 86400.0
