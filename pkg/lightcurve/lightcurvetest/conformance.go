// Package lightcurvetest holds the conformance suite every light-curve
// kernel must pass.
package lightcurvetest

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/keplerfit/pkg/lightcurve"
)

// Tolerance is the largest allowed deviation from the reference
// per-point functions, relative to the system flux.
const Tolerance = 1e-10

// Cases are the geometries exercised by RunConformance.
var Cases = []struct {
	Name      string
	Geometry  lightcurve.Geometry
	FluxRatio float64
}{
	{
		Name:      "central",
		Geometry:  lightcurve.Geometry{Per: 3.5, T0: 2454000.25, Flux: 1, Ars: 10, Rprs: 0.1, Inc: math.Pi / 2},
		FluxRatio: 0.002,
	},
	{
		Name:      "k2-24 b",
		Geometry:  lightcurve.Geometry{Per: 20.8851, T0: 2456905.8855, Flux: 1.0002, Ars: 27.1, Rprs: 0.0547, Inc: 89.25 * math.Pi / 180},
		FluxRatio: 1e-5,
	},
	{
		Name:      "grazing",
		Geometry:  lightcurve.Geometry{Per: 1.2, T0: 0, Flux: 3.2, Ars: 4, Rprs: 0.2, Inc: math.Acos(1.05 / 4)},
		FluxRatio: 0.01,
	},
	{
		Name:      "large planet",
		Geometry:  lightcurve.Geometry{Per: 7, T0: -3, Flux: 0.5, Ars: 6, Rprs: 0.6, Inc: math.Pi / 2},
		FluxRatio: 0.3,
	},
	{
		Name:      "no occultation",
		Geometry:  lightcurve.Geometry{Per: 10, T0: 5, Flux: 1, Ars: 20, Rprs: 0.1, Inc: 80 * math.Pi / 180},
		FluxRatio: 0.001,
	},
}

// RunConformance checks k against the reference formulas of the lightcurve
// package and a set of geometric properties.
func RunConformance(t *testing.T, k lightcurve.Kernel) {
	t.Helper()
	require.NotEmpty(t, k.Name())

	for _, tc := range Cases {
		t.Run(tc.Name, func(t *testing.T) {
			g := tc.Geometry
			times := grid(g.T0-1.5*g.Per, 3*g.Per, 20001)

			t.Run("transit matches reference", func(t *testing.T) {
				got := filled(len(times))
				k.Transit(got, times, g)
				for i, tm := range times {
					require.InDelta(t, lightcurve.TransitFlux(tm, g), got[i], Tolerance*g.Flux, "t=%v", tm)
				}
			})

			t.Run("eclipse matches reference", func(t *testing.T) {
				got := filled(len(times))
				k.Eclipse(got, times, g, tc.FluxRatio)
				for i, tm := range times {
					require.InDelta(t, lightcurve.EclipseFlux(tm, g, tc.FluxRatio), got[i], Tolerance*g.Flux, "t=%v", tm)
				}
			})

			t.Run("flux bounds", func(t *testing.T) {
				tr := make([]float64, len(times))
				ec := make([]float64, len(times))
				k.Transit(tr, times, g)
				k.Eclipse(ec, times, g, tc.FluxRatio)
				for i := range times {
					assert.LessOrEqual(t, tr[i], g.Flux*(1+Tolerance))
					assert.GreaterOrEqual(t, tr[i], g.Flux*(1-g.Rprs*g.Rprs-Tolerance))
					assert.LessOrEqual(t, ec[i], g.Flux*(1+Tolerance))
					assert.GreaterOrEqual(t, ec[i], g.Flux*(1-tc.FluxRatio-Tolerance))
				}
			})

			// Times near a large T0 carry rounding of order 1e-9, hence the
			// looser tolerance.
			t.Run("symmetric about conjunction", func(t *testing.T) {
				offsets := grid(0, g.Per/4, 257)
				before := make([]float64, len(offsets))
				after := make([]float64, len(offsets))
				for i, dt := range offsets {
					before[i] = g.T0 - dt
					after[i] = g.T0 + dt
				}
				a := make([]float64, len(offsets))
				b := make([]float64, len(offsets))
				k.Transit(a, before, g)
				k.Transit(b, after, g)
				for i := range offsets {
					assert.InDelta(t, a[i], b[i], 1e-7*g.Flux)
				}
			})

			t.Run("opposite conjunction is flat", func(t *testing.T) {
				at := []float64{g.T0 + g.Per/2, g.T0 - g.Per/2, g.T0 + 2.5*g.Per}
				got := make([]float64, len(at))
				k.Transit(got, at, g)
				for _, v := range got {
					assert.Equal(t, g.Flux, v)
				}
			})
		})
	}

	t.Run("central transit depth", func(t *testing.T) {
		g := Cases[0].Geometry
		got := make([]float64, 1)
		k.Transit(got, []float64{g.T0}, g)
		assert.InDelta(t, g.Flux*(1-g.Rprs*g.Rprs), got[0], 1e-12)

		k.Eclipse(got, []float64{g.T0}, g, 0.002)
		assert.InDelta(t, g.Flux*(1-0.002), got[0], 1e-12)
	})

	t.Run("zero flux ratio is constant", func(t *testing.T) {
		g := Cases[0].Geometry
		times := grid(g.T0-g.Per, 2*g.Per, 9001)
		got := filled(len(times))
		k.Eclipse(got, times, g, 0)
		for _, v := range got {
			require.Equal(t, g.Flux, v)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		g := Cases[0].Geometry
		assert.NotPanics(t, func() {
			k.Transit(nil, nil, g)
			k.Eclipse([]float64{}, []float64{}, g, 0.1)
		})
	})

	t.Run("concurrent use", func(t *testing.T) {
		g := Cases[1].Geometry
		times := grid(g.T0-0.5, 1, 12000)
		want := make([]float64, len(times))
		k.Transit(want, times, g)

		var wg sync.WaitGroup
		results := make([][]float64, 6)
		for i := range results {
			results[i] = make([]float64, len(times))
			wg.Add(1)
			go func(dst []float64) {
				defer wg.Done()
				k.Transit(dst, times, g)
			}(results[i])
		}
		wg.Wait()
		for _, r := range results {
			assert.Equal(t, want, r)
		}
	})
}

func grid(start, span float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + span*float64(i)/float64(n-1)
	}
	return out
}

// filled returns a NaN-filled slice so unwritten elements fail comparisons.
func filled(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
