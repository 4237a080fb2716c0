package orbit

import (
	"math"
	"testing"

	"github.com/iwvelando/keplerfit/pkg/kepler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewElementsValidation(t *testing.T) {
	tests := []struct {
		name    string
		per     float64
		e       float64
		wantErr bool
	}{
		{"Circular", 10, 0, false},
		{"Eccentric", 10, 0.95, false},
		{"Parabolic", 10, 1, true},
		{"Hyperbolic", 10, 1.3, true},
		{"Negative eccentricity", 10, -0.1, true},
		{"Zero period", 0, 0.1, true},
		{"Negative period", -2, 0.1, true},
		{"NaN period", math.NaN(), 0.1, true},
		{"NaN eccentricity", 10, math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewElements(tt.per, 2450000, tt.e, 0.3, 5)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidElements)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCircularTransitEclipseHalfPeriod(t *testing.T) {
	const per = 3.7
	for _, w := range []float64{-2.5, -math.Pi / 2, 0, 0.4, math.Pi / 2, 2.9, math.Pi} {
		tc := PeriastronToTransit(100, per, 0, w)
		te := PeriastronToEclipse(100, per, 0, w)
		diff := math.Mod(te-tc, per)
		if diff < 0 {
			diff += per
		}
		assert.InDelta(t, per/2, diff, 1e-10, "w=%v", w)
	}
}

func TestTimeConversionInverse(t *testing.T) {
	triples := []struct {
		per, e, w float64
	}{
		{20.8851, 0.06, math.Pi / 2},
		{42.36342, 0, math.Pi / 2},
		{2.64394, 0.170115, -0.648143},
		{365.25, 0.9, 2.8},
		{1.1, 0.5, -math.Pi / 2},
		{7.0, 0.3, math.Pi},
	}
	const tp = 2454222.61588

	for _, tr := range triples {
		tc := PeriastronToTransit(tp, tr.per, tr.e, tr.w)
		assert.InDelta(t, tp, TransitToPeriastron(tc, tr.per, tr.e, tr.w), 1e-8, "%+v", tr)

		te := PeriastronToEclipse(tp, tr.per, tr.e, tr.w)
		assert.InDelta(t, tp, EclipseToPeriastron(te, tr.per, tr.e, tr.w), 1e-8, "%+v", tr)

		// tc -> tp -> tc as well.
		back := PeriastronToTransit(TransitToPeriastron(tc, tr.per, tr.e, tr.w), tr.per, tr.e, tr.w)
		assert.InDelta(t, tc, back, 1e-8, "%+v", tr)
	}
}

func TestTransitAtExpectedTrueAnomaly(t *testing.T) {
	const (
		tp  = 1000.0
		per = 12.5
		e   = 0.4
		w   = 0.7
	)
	tc := PeriastronToTransit(tp, per, e, w)
	te := PeriastronToEclipse(tp, per, e, w)

	assert.InDelta(t, math.Pi/2, trueAnomalyAt(t, tc, tp, per, e)+w, 1e-9)
	assert.InDelta(t, -math.Pi/2, trueAnomalyAt(t, te, tp, per, e)+w, 1e-9)
	assert.GreaterOrEqual(t, te, tp)
	assert.Less(t, te, tp+per)
	assert.LessOrEqual(t, math.Abs(tc-tp), per/2)
}

func TestTransitAtPeriastronWhenOmegaIsQuarterTurn(t *testing.T) {
	tc := PeriastronToTransit(2450965.7948, 20.8851, 0.06, math.Pi/2)
	assert.Equal(t, 2450965.7948, tc)
}

func TestEclipseForEccentricOrbitIsNotHalfPeriod(t *testing.T) {
	// e·cos w != 0 shifts the secondary away from phase 0.5.
	tc := PeriastronToTransit(0, 10, 0.5, 0)
	te := TransitToEclipse(tc, 10, 0.5, 0)
	assert.Greater(t, math.Abs(math.Mod(te-tc+10, 10)-5), 0.1)
}

func TestMeanAnomalyRange(t *testing.T) {
	for _, dt := range []float64{-25, -0.1, 0, 3, 9.999, 40} {
		m := MeanAnomaly(100+dt, 100, 10)
		assert.GreaterOrEqual(t, m, 0.0)
		assert.Less(t, m, 2*math.Pi)
	}
}

// trueAnomalyAt solves the orbit at time t and returns f in [-π, π].
func trueAnomalyAt(t *testing.T, at, tp, per, e float64) float64 {
	t.Helper()
	ecc, err := kepler.Default.Solve(MeanAnomaly(at, tp, per), e)
	require.NoError(t, err)
	f := 2 * math.Atan2(math.Sqrt(1+e)*math.Sin(ecc/2), math.Sqrt(1-e)*math.Cos(ecc/2))
	return math.Remainder(f, 2*math.Pi)
}
