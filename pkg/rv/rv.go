// Package rv evaluates the radial-velocity forward model: a sum of
// Keplerian signals plus per-instrument zero-points and a quadratic trend.
//
// Sign convention: w is the argument of periastron of the star's orbit and
// each planet contributes k·(cos(f+w) + e·cos w). At transit (f = π/2 - w)
// the contribution is k·e·cos w, and the maximum k·(1 + e·cos w) is reached
// at f = -w. Velocities are positive for motion away from the observer.
//
// The model is noiseless. Instrument jitter is exposed through Variance for
// the likelihood layer and never added to predictions.
package rv

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/keplerfit/pkg/kepler"
	"github.com/iwvelando/keplerfit/pkg/orbit"
)

var (
	// ErrUnknownInstrument is returned when an observation is tagged with an
	// instrument that has no zero-point.
	ErrUnknownInstrument = errors.New("rv: unknown instrument")

	// ErrLengthMismatch is returned when per-observation slices differ in
	// length.
	ErrLengthMismatch = errors.New("rv: slice length mismatch")
)

// Inputs holds everything the model needs besides the observation times.
type Inputs struct {
	Planets []orbit.Elements
	// Offsets maps instrument tag to velocity zero-point (gamma).
	Offsets map[string]float64
	// Jitter maps instrument tag to excess scatter. Not used by Evaluate.
	Jitter map[string]float64

	Dvdt     float64
	Curv     float64
	TimeBase float64

	Solver kepler.Solver
}

// Keplerian returns the velocity contribution of one planet at time t.
func Keplerian(t float64, el orbit.Elements, solver kepler.Solver) (float64, error) {
	ecc, err := solver.Solve(orbit.MeanAnomaly(t, el.Tp, el.Per), el.E)
	if err != nil {
		return math.NaN(), err
	}
	f := 2 * math.Atan2(math.Sqrt(1+el.E)*math.Sin(ecc/2), math.Sqrt(1-el.E)*math.Cos(ecc/2))
	return el.K * (math.Cos(f+el.W) + el.E*math.Cos(el.W)), nil
}

// Evaluate returns the predicted velocity at each time. instruments gives
// the tag of each observation; a nil slice means no zero-point is applied.
func Evaluate(times []float64, instruments []string, in Inputs) ([]float64, error) {
	dst := make([]float64, len(times))
	if err := EvaluateInto(dst, times, instruments, in); err != nil {
		return nil, err
	}
	return dst, nil
}

// EvaluateInto writes predictions into dst, which must be as long as times.
func EvaluateInto(dst, times []float64, instruments []string, in Inputs) error {
	if len(dst) != len(times) {
		return fmt.Errorf("%w: dst %d, times %d", ErrLengthMismatch, len(dst), len(times))
	}
	if instruments != nil && len(instruments) != len(times) {
		return fmt.Errorf("%w: instruments %d, times %d", ErrLengthMismatch, len(instruments), len(times))
	}
	for i, el := range in.Planets {
		if err := el.Validate(); err != nil {
			return fmt.Errorf("planet %d: %w", i+1, err)
		}
	}

	for i, t := range times {
		var v float64
		for j, el := range in.Planets {
			kep, err := Keplerian(t, el, in.Solver)
			if err != nil {
				return fmt.Errorf("planet %d at t=%v: %w", j+1, t, err)
			}
			v += kep
		}
		if instruments != nil {
			gamma, ok := in.Offsets[instruments[i]]
			if !ok {
				return fmt.Errorf("%w: %q at index %d", ErrUnknownInstrument, instruments[i], i)
			}
			v += gamma
		}
		dt := t - in.TimeBase
		v += in.Dvdt*dt + in.Curv*dt*dt
		dst[i] = v
	}
	return nil
}

// Variance writes σᵢ² + jitᵢ² into dst for each observation. An instrument
// without a jitter entry contributes no excess variance.
func Variance(dst, uncertainties []float64, instruments []string, jitter map[string]float64) error {
	if len(dst) != len(uncertainties) {
		return fmt.Errorf("%w: dst %d, uncertainties %d", ErrLengthMismatch, len(dst), len(uncertainties))
	}
	if instruments != nil && len(instruments) != len(uncertainties) {
		return fmt.Errorf("%w: instruments %d, uncertainties %d", ErrLengthMismatch, len(instruments), len(uncertainties))
	}
	for i, sigma := range uncertainties {
		v := sigma * sigma
		if instruments != nil {
			jit := jitter[instruments[i]]
			v += jit * jit
		}
		dst[i] = v
	}
	return nil
}
