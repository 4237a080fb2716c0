// Package accel provides the native light-curve kernel. Importing it for its
// side effects registers the kernel with the lightcurve package:
//
//	import _ "github.com/iwvelando/keplerfit/pkg/lightcurve/accel"
package accel

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/iwvelando/keplerfit/pkg/constants"
	"github.com/iwvelando/keplerfit/pkg/lightcurve"
	"github.com/iwvelando/keplerfit/pkg/mathutil"
)

// Name is the kernel name reported by Kernel.Name.
const Name = "accel"

// DefaultChunkSize is the number of points handled by one goroutine.
const DefaultChunkSize = 4096

func init() {
	lightcurve.RegisterNative(New())
}

// Kernel evaluates the same occultation model as lightcurve.Interpreted with
// per-geometry quantities hoisted out of the loop. Arrays longer than
// ChunkSize are split across goroutines.
type Kernel struct {
	ChunkSize int
	Workers   int
}

// New returns a Kernel with default chunking.
func New() Kernel {
	return Kernel{ChunkSize: DefaultChunkSize, Workers: runtime.GOMAXPROCS(0)}
}

// Name implements lightcurve.Kernel.
func (Kernel) Name() string { return Name }

// Transit implements lightcurve.Kernel.
func (k Kernel) Transit(dst, times []float64, g lightcurve.Geometry) {
	p := prepare(g)
	depth := g.Rprs * g.Rprs
	k.run(dst, times, func(out, ts []float64) {
		for i, t := range ts {
			z := p.separation(t)
			y := 1.0
			switch {
			case z <= p.inner:
				y = 1 - depth
			case z <= p.outer:
				y = 1 - p.overlap(z)
			}
			out[i] = y * g.Flux
		}
	})
}

// Eclipse implements lightcurve.Kernel.
func (k Kernel) Eclipse(dst, times []float64, g lightcurve.Geometry, fluxRatio float64) {
	if fluxRatio == 0 {
		for i := range dst {
			dst[i] = g.Flux
		}
		return
	}
	p := prepare(g)
	scale := fluxRatio / (g.Rprs * g.Rprs)
	k.run(dst, times, func(out, ts []float64) {
		for i, t := range ts {
			z := p.separation(t)
			y := 1.0
			switch {
			case z <= p.inner:
				y = 1 - fluxRatio
			case z <= p.outer:
				y = 1 - scale*p.overlap(z)
			}
			out[i] = y * g.Flux
		}
	})
}

// run applies fn to dst/times in chunks, in parallel when there is more than
// one chunk.
func (k Kernel) run(dst, times []float64, fn func(out, ts []float64)) {
	size := k.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	if len(times) <= size {
		fn(dst, times)
		return
	}

	var eg errgroup.Group
	if k.Workers > 0 {
		eg.SetLimit(k.Workers)
	}
	for lo := 0; lo < len(times); lo += size {
		hi := min(lo+size, len(times))
		out, ts := dst[lo:hi], times[lo:hi]
		eg.Go(func() error {
			fn(out, ts)
			return nil
		})
	}
	// The chunk functions never fail.
	_ = eg.Wait()
}

type prepared struct {
	per, t0, ars float64
	quarter      float64
	omega        float64
	cosInc       float64
	rprs, rprs2  float64
	inner, outer float64
}

func prepare(g lightcurve.Geometry) prepared {
	return prepared{
		per:     g.Per,
		t0:      g.T0,
		ars:     g.Ars,
		quarter: g.Per / 4,
		omega:   constants.TwoPi / g.Per,
		cosInc:  math.Cos(g.Inc),
		rprs:    g.Rprs,
		rprs2:   g.Rprs * g.Rprs,
		inner:   1 - g.Rprs,
		outer:   1 + g.Rprs,
	}
}

func (p prepared) separation(t float64) float64 {
	dt := t - p.t0
	phase := dt - math.Floor(dt/p.per)*p.per
	if phase > p.quarter && phase < 3*p.quarter {
		return p.ars
	}
	s, c := math.Sincos(-p.omega * dt)
	c *= p.cosInc
	return p.ars * math.Sqrt(s*s+c*c)
}

func (p prepared) overlap(z float64) float64 {
	z2 := z * z
	k0 := mathutil.SafeAcos((p.rprs2 + z2 - 1) / (2 * p.rprs * z))
	k1 := mathutil.SafeAcos((1 - p.rprs2 + z2) / (2 * z))
	q := 1 + z2 - p.rprs2
	root := 4*z2 - q*q
	if root < 0 {
		root = 0
	}
	return (k0*p.rprs2 + k1 - math.Sqrt(root)/2) / math.Pi
}
