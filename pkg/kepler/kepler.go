// Package kepler solves Kepler's equation M = E - e·sin(E) for the eccentric
// anomaly E.
//
// The solver is a bracketed Newton-Raphson iteration started from E₀ = M.
// Because |E - M| = e·|sin E| ≤ e, the root always lies in [M-e, M+e]; a
// Newton step that would leave the current bracket is replaced by a
// bisection step, which keeps high-eccentricity solves from diverging.
//
// All functions are pure and allocation-free, so they may be called from
// any number of goroutines.
package kepler

import (
	"errors"
	"fmt"
	"math"

	"github.com/iwvelando/keplerfit/pkg/constants"
	"github.com/iwvelando/keplerfit/pkg/mathutil"
)

var (
	// ErrConvergence is returned when the iteration cap is reached before
	// successive iterates agree to the requested tolerance.
	ErrConvergence = errors.New("kepler: solver did not converge")

	// ErrInvalidEccentricity is returned for e outside [0, 1) or NaN.
	ErrInvalidEccentricity = errors.New("kepler: eccentricity must be in [0, 1)")

	// ErrLengthMismatch is returned when destination and input slices differ
	// in length.
	ErrLengthMismatch = errors.New("kepler: slice length mismatch")
)

// Solver carries the convergence settings for repeated solves.
type Solver struct {
	Tolerance     float64
	MaxIterations int
}

// Default is the solver used when a caller has no specific requirements.
var Default = Solver{
	Tolerance:     constants.DefaultKeplerTolerance,
	MaxIterations: constants.DefaultKeplerMaxIterations,
}

// normalized fills in zero-valued settings with the defaults.
func (s Solver) normalized() Solver {
	if s.Tolerance <= 0 {
		s.Tolerance = Default.Tolerance
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = Default.MaxIterations
	}
	return s
}

// Solve returns the eccentric anomaly for one mean anomaly.
func (s Solver) Solve(m, e float64) (float64, error) {
	s = s.normalized()
	return Solve(m, e, s.Tolerance, s.MaxIterations)
}

// SolveInto solves for every mean anomaly in ms, writing results into dst.
func (s Solver) SolveInto(dst, ms []float64, e float64) error {
	s = s.normalized()
	return SolveInto(dst, ms, e, s.Tolerance, s.MaxIterations)
}

// Solve returns the eccentric anomaly E satisfying M = E - e·sin(E).
//
// e = 0 returns M without iterating. The call fails with ErrConvergence
// rather than returning an unconverged value.
func Solve(m, e, tol float64, maxIter int) (float64, error) {
	if err := checkEccentricity(e); err != nil {
		return math.NaN(), err
	}
	return solve(m, e, tol, maxIter)
}

// SolveInto is the vectorized form of Solve: dst[i] receives the eccentric
// anomaly for ms[i]. dst and ms may be the same slice.
func SolveInto(dst, ms []float64, e, tol float64, maxIter int) error {
	if len(dst) != len(ms) {
		return fmt.Errorf("%w: dst %d, mean anomalies %d", ErrLengthMismatch, len(dst), len(ms))
	}
	if err := checkEccentricity(e); err != nil {
		return err
	}
	if e == 0 {
		copy(dst, ms)
		return nil
	}
	for i, m := range ms {
		ecc, err := solve(m, e, tol, maxIter)
		if err != nil {
			return fmt.Errorf("mean anomaly index %d: %w", i, err)
		}
		dst[i] = ecc
	}
	return nil
}

func checkEccentricity(e float64) error {
	if math.IsNaN(e) || e < 0 || e >= constants.MaxEccentricity {
		return fmt.Errorf("%w: got %v", ErrInvalidEccentricity, e)
	}
	return nil
}

func solve(m, e, tol float64, maxIter int) (float64, error) {
	if e == 0 {
		return m, nil
	}
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return math.NaN(), fmt.Errorf("%w: mean anomaly %v is not finite", ErrConvergence, m)
	}

	lo, hi := m-e, m+e
	ecc := m
	for i := 0; i < maxIter; i++ {
		f := ecc - e*math.Sin(ecc) - m
		if f == 0 {
			return ecc, nil
		}
		// f is increasing in E, so its sign tells which side of the root
		// the iterate is on.
		if f < 0 {
			lo = ecc
		} else {
			hi = ecc
		}

		next := ecc - f/(1-e*math.Cos(ecc))
		newton := next >= lo && next <= hi
		if !newton {
			next = 0.5 * (lo + hi)
		}

		converged := newton && mathutil.WithinTolerance(next, ecc, tol)
		ecc = next
		if converged {
			return ecc, nil
		}
		if hi-lo <= tol {
			return ecc, nil
		}
	}
	return math.NaN(), fmt.Errorf("%w: M=%v e=%v after %d iterations (tolerance %g)",
		ErrConvergence, m, e, maxIter, tol)
}
