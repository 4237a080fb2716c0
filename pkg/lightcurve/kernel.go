// Package lightcurve evaluates analytic transit and secondary-eclipse light
// curves (uniform stellar disk, Mandel & Agol 2002) for an orbit.
//
// The per-point arithmetic lives behind the Kernel interface. The package
// ships a portable Interpreted kernel; an accelerated kernel can be
// registered once at program start with RegisterNative, usually from the
// init function of a package imported for its side effects:
//
//	import _ "github.com/iwvelando/keplerfit/pkg/lightcurve/accel"
//
// Both kernels must pass lightcurvetest.RunConformance.
package lightcurve

import (
	"math"

	"github.com/iwvelando/keplerfit/pkg/constants"
	"github.com/iwvelando/keplerfit/pkg/mathutil"
)

// Geometry describes one planet's occultation.
type Geometry struct {
	Per  float64 // orbital period
	T0   float64 // time of conjunction: transit or eclipse
	Flux float64 // out-of-occultation system flux
	Ars  float64 // semi-major axis in stellar radii
	Rprs float64 // planet radius in stellar radii
	Inc  float64 // inclination, radians
}

// Kernel computes relative flux for a batch of times. Implementations must
// be safe for concurrent use and must write every element of dst.
// Callers guarantee len(dst) == len(times) and a validated Geometry.
type Kernel interface {
	Name() string
	Transit(dst, times []float64, g Geometry)
	Eclipse(dst, times []float64, g Geometry, fluxRatio float64)
}

// Interpreted is the portable reference kernel. It evaluates each point
// independently with no precomputation.
type Interpreted struct{}

// Name implements Kernel.
func (Interpreted) Name() string { return constants.KernelInterpreted }

// Transit implements Kernel.
func (Interpreted) Transit(dst, times []float64, g Geometry) {
	for i, t := range times {
		dst[i] = TransitFlux(t, g)
	}
}

// Eclipse implements Kernel.
func (Interpreted) Eclipse(dst, times []float64, g Geometry, fluxRatio float64) {
	for i, t := range times {
		dst[i] = EclipseFlux(t, g, fluxRatio)
	}
}

// Separation returns the sky-projected star-planet separation z, in stellar
// radii, at time t for a circular-orbit approximation around conjunction.
// For phases more than a quarter period from conjunction the planet is on
// the far side of its orbit and z is taken as ars.
func Separation(t float64, g Geometry) float64 {
	phase := (t - g.T0) - math.Floor((t-g.T0)/g.Per)*g.Per
	if phase > g.Per/4 && phase < 3*g.Per/4 {
		return g.Ars
	}
	theta := constants.TwoPi * (g.T0 - t) / g.Per
	s := math.Sin(theta)
	c := math.Cos(g.Inc) * math.Cos(theta)
	return g.Ars * math.Sqrt(s*s+c*c)
}

// OverlapFraction returns the fraction of the planet's disk area, in units of
// π·rprs², that covers the star at separation z.
func OverlapFraction(z, rprs float64) float64 {
	switch {
	case z <= 1-rprs:
		return 1
	case z > 1+rprs:
		return 0
	}
	return overlapArea(z, rprs) / (rprs * rprs)
}

// overlapArea is the area of the lens shared by the unit stellar disk and
// the planet disk, divided by π.
func overlapArea(z, rprs float64) float64 {
	k0 := mathutil.SafeAcos((rprs*rprs + z*z - 1) / (2 * rprs * z))
	k1 := mathutil.SafeAcos((1 - rprs*rprs + z*z) / (2 * z))
	root := 4*z*z - (1+z*z-rprs*rprs)*(1+z*z-rprs*rprs)
	if root < 0 {
		root = 0
	}
	return (k0*rprs*rprs + k1 - math.Sqrt(root)/2) / math.Pi
}

// TransitFlux is the flux at one time while the planet crosses the star.
func TransitFlux(t float64, g Geometry) float64 {
	z := Separation(t, g)
	y := 1.0
	switch {
	case z <= 1-g.Rprs:
		y = 1 - g.Rprs*g.Rprs
	case z <= 1+g.Rprs:
		y = 1 - overlapArea(z, g.Rprs)
	}
	return y * g.Flux
}

// EclipseFlux is the flux at one time while the star hides the planet.
// fluxRatio is the planet-to-star flux ratio; zero short-circuits to the
// system flux.
func EclipseFlux(t float64, g Geometry, fluxRatio float64) float64 {
	if fluxRatio == 0 {
		return g.Flux
	}
	z := Separation(t, g)
	y := 1.0
	switch {
	case z <= 1-g.Rprs:
		y = 1 - fluxRatio
	case z <= 1+g.Rprs:
		y = 1 - fluxRatio*overlapArea(z, g.Rprs)/(g.Rprs*g.Rprs)
	}
	return y * g.Flux
}
