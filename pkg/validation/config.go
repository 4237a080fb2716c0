// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"slices"
)

// HighEccentricity is the eccentricity above which a warning is issued.
const HighEccentricity = 0.9

// ValidateEccentricity warns about eccentricities that are valid but make
// the fit fragile.
func ValidateEccentricity(planet string, e float64) string {
	if e >= HighEccentricity && e < 1 {
		return fmt.Sprintf("Planet '%s' has eccentricity %.3f >= %.2f - Kepler solutions converge slowly near periastron",
			planet, e, HighEccentricity)
	}
	return ""
}

// ValidateJitter warns about negative jitter values. Jitter enters the
// likelihood squared, so the sign is meaningless.
func ValidateJitter(instrument string, jitter float64) string {
	if jitter < 0 {
		return fmt.Sprintf("Instrument '%s' has negative jitter (%g) - only its magnitude is used", instrument, jitter)
	}
	return ""
}

// ValidateTimeWindow checks that the ti/tf window is ordered.
func ValidateTimeWindow(ti, tf float64) string {
	if ti >= tf {
		return fmt.Sprintf("Time window is empty or reversed (ti %g >= tf %g)", ti, tf)
	}
	return ""
}

// ValidateTimeBase warns when the trend reference time lies outside the
// observations.
func ValidateTimeBase(timeBase, first, last float64) string {
	if timeBase < first || timeBase > last {
		return fmt.Sprintf("Time base %g is outside the data baseline [%g, %g] - trend terms will be strongly correlated with gamma",
			timeBase, first, last)
	}
	return ""
}

// ValidatePeriodCoverage warns when the data span less than one orbit.
func ValidatePeriodCoverage(planet string, per, first, last float64) string {
	if span := last - first; span > 0 && per > span {
		return fmt.Sprintf("Planet '%s' period %g exceeds the data baseline of %g - the orbit is not fully sampled",
			planet, per, span)
	}
	return ""
}

// ValidateInstrumentCoverage warns when a configured instrument has no
// observations.
func ValidateInstrumentCoverage(instrument string, observed []string) string {
	if !slices.Contains(observed, instrument) {
		return fmt.Sprintf("Instrument '%s' has no observations - its offset and jitter are unconstrained", instrument)
	}
	return ""
}

// ValidateOccultation warns when the planet's orbit would graze or cross the
// stellar surface.
func ValidateOccultation(planet string, ars, rprs float64) string {
	if ars > 0 && ars <= 1+rprs {
		return fmt.Sprintf("Planet '%s' semi-major axis (%g stellar radii) is inside the star plus planet radius (%g)",
			planet, ars, 1+rprs)
	}
	return ""
}

// ConfigValidator collects the values needed to validate a configuration.
type ConfigValidator struct {
	Planets     []PlanetConfig
	Instruments []InstrumentConfig
	TimeBase    float64
	// Window is the optional ti/tf pair.
	Window *TimeWindow
	// Data is the optional observation baseline.
	Data *TimeWindow
	// Observed lists the instrument tags present in the data. Instruments
	// named in Instruments but missing here are reported when Data is set.
	Observed []string
}

// PlanetConfig holds one planet's values in canonical form.
type PlanetConfig struct {
	Name string
	Per  float64
	E    float64
	Ars  float64
	Rprs float64
}

// InstrumentConfig holds one instrument's values.
type InstrumentConfig struct {
	Name   string
	Jitter float64
}

// TimeWindow is a pair of times.
type TimeWindow struct {
	Start float64
	End   float64
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string
	add := func(w string) {
		if w != "" {
			warnings = append(warnings, w)
		}
	}

	for _, p := range cv.Planets {
		add(ValidateEccentricity(p.Name, p.E))
		add(ValidateOccultation(p.Name, p.Ars, p.Rprs))
		if cv.Data != nil {
			add(ValidatePeriodCoverage(p.Name, p.Per, cv.Data.Start, cv.Data.End))
		}
	}

	for _, inst := range cv.Instruments {
		add(ValidateJitter(inst.Name, inst.Jitter))
	}

	if cv.Window != nil {
		add(ValidateTimeWindow(cv.Window.Start, cv.Window.End))
	}
	if cv.Data != nil {
		add(ValidateTimeBase(cv.TimeBase, cv.Data.Start, cv.Data.End))
		for _, inst := range cv.Instruments {
			add(ValidateInstrumentCoverage(inst.Name, cv.Observed))
		}
	}

	return warnings
}
