package orbit

import (
	"math"

	"github.com/iwvelando/keplerfit/pkg/constants"
	"github.com/iwvelando/keplerfit/pkg/mathutil"
)

// MeanAnomalyAtTrueAnomaly converts a true anomaly to the mean anomaly,
// returned in [-π, π]. This direction is closed-form.
func MeanAnomalyAtTrueAnomaly(f, e float64) float64 {
	f = mathutil.WrapAngle(f)
	half := f / 2
	// cos(half) >= 0 for f in (-π, π], so atan2 stays in [-π/2, π/2].
	ecc := 2 * math.Atan2(math.Sqrt(1-e)*math.Sin(half), math.Sqrt(1+e)*math.Cos(half))
	return ecc - e*math.Sin(ecc)
}

// TimeOfTrueAnomaly returns the time within (tp-per/2, tp+per/2] at which
// the orbit reaches true anomaly f.
func TimeOfTrueAnomaly(f, tp, per, e float64) float64 {
	return tp + per*MeanAnomalyAtTrueAnomaly(f, e)/constants.TwoPi
}

// MeanAnomaly returns 2π·frac((t-tp)/per), in [0, 2π).
func MeanAnomaly(t, tp, per float64) float64 {
	return constants.TwoPi * mathutil.Frac((t-tp)/per)
}

func transitMeanAnomaly(e, w float64) float64 {
	return MeanAnomalyAtTrueAnomaly(constants.HalfPi-w, e)
}

// eclipseMeanAnomaly is kept in [0, 2π) so the eclipse lands in the
// period following periastron.
func eclipseMeanAnomaly(e, w float64) float64 {
	return mathutil.WrapPositive(MeanAnomalyAtTrueAnomaly(3*constants.HalfPi-w, e))
}

// PeriastronToTransit returns the time of inferior conjunction nearest tp.
func PeriastronToTransit(tp, per, e, w float64) float64 {
	return tp + per*transitMeanAnomaly(e, w)/constants.TwoPi
}

// TransitToPeriastron is the exact inverse of PeriastronToTransit.
func TransitToPeriastron(tc, per, e, w float64) float64 {
	return tc - per*transitMeanAnomaly(e, w)/constants.TwoPi
}

// PeriastronToEclipse returns the time of superior conjunction in
// [tp, tp+per).
func PeriastronToEclipse(tp, per, e, w float64) float64 {
	return tp + per*eclipseMeanAnomaly(e, w)/constants.TwoPi
}

// EclipseToPeriastron is the exact inverse of PeriastronToEclipse.
func EclipseToPeriastron(te, per, e, w float64) float64 {
	return te - per*eclipseMeanAnomaly(e, w)/constants.TwoPi
}

// TransitToEclipse converts a transit time directly to the eclipse time of
// the same orbit.
func TransitToEclipse(tc, per, e, w float64) float64 {
	return PeriastronToEclipse(TransitToPeriastron(tc, per, e, w), per, e, w)
}
