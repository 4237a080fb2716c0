package rv

import (
	"math"
	"sync"
	"testing"

	"github.com/iwvelando/keplerfit/pkg/kepler"
	"github.com/iwvelando/keplerfit/pkg/orbit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// k2-24 b
const (
	perB = 20.8851
	tcB  = 2450965.7948
	eB   = 0.06
	kB   = 4.5
)

func k224b(t *testing.T) orbit.Elements {
	t.Helper()
	w := math.Pi / 2
	el, err := orbit.NewElements(perB, orbit.TransitToPeriastron(tcB, perB, eB, w), eB, w, kB)
	require.NoError(t, err)
	return el
}

func timeGrid(start, span float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + span*float64(i)/float64(n)
	}
	return out
}

func TestK224bAtTransit(t *testing.T) {
	el := k224b(t)

	// At transit the Keplerian term is k·e·cos w, zero for w = π/2.
	v, err := Keplerian(tcB, el, kepler.Default)
	require.NoError(t, err)
	assert.InDelta(t, kB*eB*math.Cos(math.Pi/2), v, 1e-9)
	assert.InDelta(t, 0, v, 1e-9)
}

func TestK224bMaximumVelocity(t *testing.T) {
	el := k224b(t)

	// The maximum, k(1 + e cos w) = k, is reached at f = -w.
	tMax := orbit.TimeOfTrueAnomaly(-el.W, el.Tp, el.Per, el.E)
	v, err := Keplerian(tMax, el, kepler.Default)
	require.NoError(t, err)
	assert.InDelta(t, kB, v, 1e-6)

	// and nothing on a dense grid exceeds it.
	vs, err := Evaluate(timeGrid(el.Tp, el.Per, 4000), nil, Inputs{Planets: []orbit.Elements{el}})
	require.NoError(t, err)
	for _, x := range vs {
		assert.LessOrEqual(t, x, kB+1e-9)
	}
}

func TestOffsetAdditivity(t *testing.T) {
	el := k224b(t)
	times := timeGrid(tcB-30, 90, 50)
	tags := make([]string, len(times))
	for i := range tags {
		tags[i] = "hires"
	}

	const gamma = -12.75
	got, err := Evaluate(times, tags, Inputs{
		Planets: []orbit.Elements{el},
		Offsets: map[string]float64{"hires": gamma},
	})
	require.NoError(t, err)

	for i, tm := range times {
		kep, err := Keplerian(tm, el, kepler.Default)
		require.NoError(t, err)
		assert.Equal(t, kep+gamma, got[i])
	}
}

func TestJitterIsNotApplied(t *testing.T) {
	el := k224b(t)
	times := []float64{tcB, tcB + 3, tcB + 7}
	tags := []string{"hires", "hires", "hires"}

	base := Inputs{Planets: []orbit.Elements{el}, Offsets: map[string]float64{"hires": 1}}
	withJitter := base
	withJitter.Jitter = map[string]float64{"hires": 50}

	a, err := Evaluate(times, tags, base)
	require.NoError(t, err)
	b, err := Evaluate(times, tags, withJitter)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTrendTerms(t *testing.T) {
	in := Inputs{Dvdt: 0.5, Curv: 0.01, TimeBase: 100}
	got, err := Evaluate([]float64{90, 100, 110}, nil, in)
	require.NoError(t, err)
	assert.InDelta(t, -5+1, got[0], 1e-12)
	assert.InDelta(t, 0, got[1], 1e-12)
	assert.InDelta(t, 5+1, got[2], 1e-12)
}

func TestPlanetsAreSummed(t *testing.T) {
	b := k224b(t)
	c, err := orbit.NewElements(42.36342, 2456915.6251, 0, math.Pi/2, 4.6)
	require.NoError(t, err)

	times := timeGrid(2456900, 60, 25)
	both, err := Evaluate(times, nil, Inputs{Planets: []orbit.Elements{b, c}})
	require.NoError(t, err)
	onlyB, err := Evaluate(times, nil, Inputs{Planets: []orbit.Elements{b}})
	require.NoError(t, err)
	onlyC, err := Evaluate(times, nil, Inputs{Planets: []orbit.Elements{c}})
	require.NoError(t, err)

	for i := range times {
		assert.InDelta(t, onlyB[i]+onlyC[i], both[i], 1e-12)
	}
}

func TestCircularOrbitIsSinusoid(t *testing.T) {
	el, err := orbit.NewElements(10, 0, 0, 0.3, 2)
	require.NoError(t, err)
	for _, tm := range []float64{0, 1.3, 4.4, 9.9, 25} {
		v, err := Keplerian(tm, el, kepler.Default)
		require.NoError(t, err)
		want := 2 * math.Cos(2*math.Pi*tm/10+0.3)
		assert.InDelta(t, want, v, 1e-9)
	}
}

func TestEvaluateErrors(t *testing.T) {
	el := k224b(t)

	_, err := Evaluate([]float64{1, 2}, []string{"hires", "harps"}, Inputs{
		Planets: []orbit.Elements{el},
		Offsets: map[string]float64{"hires": 0},
	})
	assert.ErrorIs(t, err, ErrUnknownInstrument)

	_, err = Evaluate([]float64{1, 2}, []string{"hires"}, Inputs{})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	err = EvaluateInto(make([]float64, 1), []float64{1, 2}, nil, Inputs{})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	bad := el
	bad.E = 1.2
	_, err = Evaluate([]float64{1}, nil, Inputs{Planets: []orbit.Elements{bad}})
	assert.ErrorIs(t, err, orbit.ErrInvalidElements)
}

func TestSolverFailureAbortsEvaluation(t *testing.T) {
	el, err := orbit.NewElements(10, 0, 0.9, 0.3, 2)
	require.NoError(t, err)
	_, err = Evaluate([]float64{1.7}, nil, Inputs{
		Planets: []orbit.Elements{el},
		Solver:  kepler.Solver{Tolerance: 1e-300, MaxIterations: 1},
	})
	assert.ErrorIs(t, err, kepler.ErrConvergence)
}

func TestVariance(t *testing.T) {
	dst := make([]float64, 3)
	err := Variance(dst, []float64{1, 2, 3}, []string{"a", "b", "c"}, map[string]float64{"a": 1, "b": 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 9}, dst)

	assert.ErrorIs(t, Variance(dst, []float64{1}, nil, nil), ErrLengthMismatch)
}

func TestConcurrentEvaluation(t *testing.T) {
	el := k224b(t)
	times := timeGrid(tcB, 200, 500)
	want, err := Evaluate(times, nil, Inputs{Planets: []orbit.Elements{el}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]float64, 8)
	errs := make([]error, 8)
	for g := range results {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			results[g], errs[g] = Evaluate(times, nil, Inputs{Planets: []orbit.Elements{el}})
		}(g)
	}
	wg.Wait()
	for g := range results {
		require.NoError(t, errs[g])
		assert.Equal(t, want, results[g])
	}
}
