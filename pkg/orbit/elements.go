// Package orbit holds the canonical orbital elements that the forward
// models compute against, and the analytic conversions between the time of
// periastron passage, the time of transit (inferior conjunction) and the time
// of eclipse (superior conjunction).
//
// Angles are in radians. w is the argument of periastron of the star's
// orbit, so at transit the planet sits at true anomaly f = π/2 - w.
package orbit

import (
	"errors"
	"fmt"

	"github.com/iwvelando/keplerfit/pkg/constants"
	"github.com/iwvelando/keplerfit/pkg/mathutil"
)

// ErrInvalidElements is returned when orbital elements are outside their
// physical domain.
var ErrInvalidElements = errors.New("orbit: invalid orbital elements")

// Elements is one planet's orbit in the canonical {per, tp, e, w, k} form.
type Elements struct {
	Per float64 // orbital period, same unit as observation times
	Tp  float64 // time of periastron passage
	E   float64 // eccentricity, [0, 1)
	W   float64 // argument of periastron of the star, radians
	K   float64 // velocity semi-amplitude
}

// NewElements validates and returns a set of orbital elements.
func NewElements(per, tp, e, w, k float64) (Elements, error) {
	el := Elements{Per: per, Tp: tp, E: e, W: w, K: k}
	if err := el.Validate(); err != nil {
		return Elements{}, err
	}
	return el, nil
}

// Validate checks the physical constraints on the elements.
func (el Elements) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{{"per", el.Per}, {"tp", el.Tp}, {"e", el.E}, {"w", el.W}, {"k", el.K}} {
		if !mathutil.IsFinite(v.val) {
			return fmt.Errorf("%w: %s is not finite (%v)", ErrInvalidElements, v.name, v.val)
		}
	}
	if el.Per <= 0 {
		return fmt.Errorf("%w: period must be positive, got %v", ErrInvalidElements, el.Per)
	}
	if el.E < 0 || el.E >= constants.MaxEccentricity {
		return fmt.Errorf("%w: eccentricity must be in [0, 1), got %v", ErrInvalidElements, el.E)
	}
	return nil
}

// TransitTime returns the time of inferior conjunction nearest Tp.
func (el Elements) TransitTime() float64 {
	return PeriastronToTransit(el.Tp, el.Per, el.E, el.W)
}

// EclipseTime returns the time of superior conjunction in [Tp, Tp+Per).
func (el Elements) EclipseTime() float64 {
	return PeriastronToEclipse(el.Tp, el.Per, el.E, el.W)
}
