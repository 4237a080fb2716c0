package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Shared (non-planet) parameter names.
const (
	NameDvdt = "dvdt"
	NameCurv = "curv"
	NameTi   = "ti"
	NameTf   = "tf"

	gammaPrefix  = "gamma_"
	jitterPrefix = "jit_"
)

// Parameter is one named quantity together with its fitting flags.
type Parameter struct {
	Value float64 `yaml:"value"`
	// Vary is false for parameters held fixed during optimization.
	Vary bool `yaml:"vary"`
	// Linear marks parameters, such as velocity zero-points, that an outer
	// fitter may solve for analytically instead of sampling.
	Linear bool `yaml:"linear"`
}

// Free returns a varying parameter with the given value.
func Free(value float64) Parameter {
	return Parameter{Value: value, Vary: true}
}

// Fixed returns a parameter held constant during optimization.
func Fixed(value float64) Parameter {
	return Parameter{Value: value}
}

// ElementName returns the external name of a per-planet element, e.g.
// ElementName(LogK, 2) == "logk2".
func ElementName(kind ElementKind, planet int) string {
	return kind.String() + strconv.Itoa(planet)
}

// GammaName returns the zero-point parameter name for an instrument.
func GammaName(inst string) string {
	return gammaPrefix + inst
}

// JitterName returns the jitter parameter name for an instrument.
func JitterName(inst string) string {
	return jitterPrefix + inst
}

// ParseElementName splits "secosw2" into (SecosW, 2). ok is false for names
// that are not per-planet elements.
func ParseElementName(name string) (kind ElementKind, planet int, ok bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(name) {
		return 0, 0, false
	}
	kind, ok = ParseElementKind(name[:i])
	if !ok {
		return 0, 0, false
	}
	planet, err := strconv.Atoi(name[i:])
	if err != nil || planet < 1 {
		return 0, 0, false
	}
	return kind, planet, true
}

// InstrumentOf returns the instrument tag of a gamma_* or jit_* name.
func InstrumentOf(name string) (string, bool) {
	for _, prefix := range []string{gammaPrefix, jitterPrefix} {
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			return name[len(prefix):], true
		}
	}
	return "", false
}

// ValidateInstrument checks that a tag can be used inside parameter names.
func ValidateInstrument(inst string) error {
	if inst == "" {
		return fmt.Errorf("%w: empty instrument tag", ErrUnknownParameter)
	}
	if strings.ContainsAny(inst, " \t\n") {
		return fmt.Errorf("%w: instrument tag %q contains whitespace", ErrUnknownParameter, inst)
	}
	return nil
}
