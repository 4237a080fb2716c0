// Package session ties a configuration to its datasets and forward models.
// A Session holds the parameter set in the fitting basis; an external
// optimizer proposes new values with WithVector and scores them with
// Residuals.
package session

import (
	"context"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/iwvelando/keplerfit/internal/config"
	"github.com/iwvelando/keplerfit/pkg/basis"
	"github.com/iwvelando/keplerfit/pkg/constants"
	"github.com/iwvelando/keplerfit/pkg/dataset"
	"github.com/iwvelando/keplerfit/pkg/kepler"
	"github.com/iwvelando/keplerfit/pkg/lightcurve"
	"github.com/iwvelando/keplerfit/pkg/orbit"
	"github.com/iwvelando/keplerfit/pkg/params"
	"github.com/iwvelando/keplerfit/pkg/rv"
	"github.com/iwvelando/keplerfit/pkg/validation"
)

// Session is immutable; WithVector and WithParams return new sessions that
// share the loaded datasets.
type Session struct {
	logger   *zap.Logger
	conf     *config.Configuration
	registry *basis.Registry
	input    *params.Set
	params   *params.Set
	solver   kepler.Solver
	lc       *lightcurve.Model
	timeBase float64

	rvData      *dataset.Dataset
	transitData *dataset.Dataset
	eclipseData *dataset.Dataset
}

// New builds the parameter set, converts it to the fitting basis, selects
// the light-curve kernel and loads every configured dataset.
func New(logger *zap.Logger, conf *config.Configuration) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	input, err := conf.ParameterSet()
	if err != nil {
		return nil, fmt.Errorf("failed to build parameter set: %w", err)
	}

	registry := basis.Default()
	fitting, err := registry.Convert(input, conf.System.FittingBasis)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to fitting basis: %w", err)
	}
	logger.Debug(fmt.Sprintf("converted parameters from basis '%s' to '%s'", input.Basis().Name(), fitting.Basis().Name()),
		zap.String("op", "session.New"),
	)

	mode, err := conf.KernelMode()
	if err != nil {
		return nil, err
	}
	lc, err := lightcurve.New(mode)
	if err != nil {
		return nil, err
	}
	logger.Debug("selected light-curve kernel",
		zap.String("op", "session.New"),
		zap.String("mode", mode.String()),
		zap.String("kernel", lc.KernelName()),
	)

	s := &Session{
		logger:   logger,
		conf:     conf,
		registry: registry,
		input:    input,
		params:   fitting,
		solver:   conf.Solver(),
		lc:       lc,
	}

	if err := s.loadData(); err != nil {
		return nil, err
	}

	switch {
	case conf.System.TimeBase != nil:
		s.timeBase = *conf.System.TimeBase
	case s.rvData != nil:
		s.timeBase = s.rvData.Midpoint()
		logger.Debug(fmt.Sprintf("time base defaults to the RV baseline midpoint %f", s.timeBase),
			zap.String("op", "session.New"),
		)
	}

	return s, nil
}

// velocityInstruments returns the configured instruments that are not
// photometric.
func (s *Session) velocityInstruments() []string {
	var out []string
	for _, inst := range s.conf.System.Instruments {
		if inst != constants.TransitInstrument && inst != constants.EclipseInstrument {
			out = append(out, inst)
		}
	}
	return out
}

func (s *Session) loadData() error {
	velocityInstruments := s.velocityInstruments()

	load := func(path string, opts dataset.Options) (*dataset.Dataset, error) {
		if path == "" {
			return nil, nil
		}
		ds, err := dataset.Load(path, opts)
		if err != nil {
			return nil, err
		}
		first, last := ds.Baseline()
		s.logger.Info("loaded dataset",
			zap.String("op", "session.loadData"),
			zap.String("path", path),
			zap.Int("rows", ds.Len()),
			zap.Float64("first", first),
			zap.Float64("last", last),
		)
		return ds, nil
	}

	var err error
	if s.rvData, err = load(s.conf.Data.RV, dataset.Options{Instruments: velocityInstruments}); err != nil {
		return err
	}
	if s.transitData, err = load(s.conf.Data.Transit, dataset.Options{
		DefaultInstrument: constants.TransitInstrument,
		Instruments:       []string{constants.TransitInstrument},
	}); err != nil {
		return err
	}
	if s.eclipseData, err = load(s.conf.Data.Eclipse, dataset.Options{
		DefaultInstrument: constants.EclipseInstrument,
		Instruments:       []string{constants.EclipseInstrument},
	}); err != nil {
		return err
	}
	return nil
}

// Params returns the parameter set in the fitting basis.
func (s *Session) Params() *params.Set {
	return s.params
}

// InputParams returns the parameter set as configured.
func (s *Session) InputParams() *params.Set {
	return s.input
}

// Configuration returns the configuration the session was built from.
func (s *Session) Configuration() *config.Configuration {
	return s.conf
}

// TimeBase returns the reference time of the trend terms.
func (s *Session) TimeBase() float64 {
	return s.timeBase
}

// KernelName names the light-curve kernel in use.
func (s *Session) KernelName() string {
	return s.lc.KernelName()
}

// RVData returns the radial-velocity dataset, or nil.
func (s *Session) RVData() *dataset.Dataset { return s.rvData }

// TransitData returns the transit photometry, or nil.
func (s *Session) TransitData() *dataset.Dataset { return s.transitData }

// EclipseData returns the eclipse photometry, or nil.
func (s *Session) EclipseData() *dataset.Dataset { return s.eclipseData }

// Convert expresses the current parameters in another catalog basis.
func (s *Session) Convert(target string) (*params.Set, error) {
	return s.registry.Convert(s.params, target)
}

// Elements returns the canonical elements of every planet.
func (s *Session) Elements() ([]orbit.Elements, error) {
	return basis.AllElements(s.params)
}

// WithVector returns a session whose varying parameters take the values in
// vec, ordered as Params().VaryNames().
func (s *Session) WithVector(vec []float64) (*Session, error) {
	set, err := s.params.WithVector(vec)
	if err != nil {
		return nil, err
	}
	return s.withSet(set), nil
}

// WithParams returns a session using set, which must be in the fitting
// basis.
func (s *Session) WithParams(set *params.Set) (*Session, error) {
	if set == nil || set.Basis().Name() != s.params.Basis().Name() {
		return nil, fmt.Errorf("%w: parameters must be in basis '%s'", basis.ErrUnknownBasis, s.params.Basis().Name())
	}
	return s.withSet(set), nil
}

func (s *Session) withSet(set *params.Set) *Session {
	next := *s
	next.params = set
	return &next
}

// Warnings returns data-dependent configuration warnings.
func (s *Session) Warnings() []string {
	if s.rvData == nil {
		return nil
	}
	first, last := s.rvData.Baseline()
	cv := validation.ConfigValidator{
		TimeBase: s.timeBase,
		Data:     &validation.TimeWindow{Start: first, End: last},
		Observed: s.rvData.InstrumentTags(),
	}
	for _, inst := range s.velocityInstruments() {
		cv.Instruments = append(cv.Instruments, validation.InstrumentConfig{Name: inst})
	}
	if els, err := s.Elements(); err == nil {
		for i, el := range els {
			cv.Planets = append(cv.Planets, validation.PlanetConfig{Name: s.conf.PlanetLetter(i + 1), Per: el.Per, E: el.E})
		}
	}
	return cv.ValidateAll()
}

// Prediction is a model evaluated on one dataset.
type Prediction struct {
	Data  *dataset.Dataset
	Model []float64

	// Filled by Residuals.
	Residual   []float64
	Sigma      []float64
	ChiSquared float64
}

// Result holds every prediction of one evaluation. Datasets that are not
// configured have nil predictions.
type Result struct {
	Params   *params.Set
	Elements []orbit.Elements
	TimeBase float64

	RV      *Prediction
	Transit *Prediction
	Eclipse *Prediction
}

// Predictions returns the non-nil predictions in RV, transit, eclipse order.
func (r *Result) Predictions() []*Prediction {
	var out []*Prediction
	for _, p := range []*Prediction{r.RV, r.Transit, r.Eclipse} {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// ChiSquared sums the chi-squared of every prediction.
func (r *Result) ChiSquared() float64 {
	var total float64
	for _, p := range r.Predictions() {
		total += p.ChiSquared
	}
	return total
}

// Evaluate runs the forward models on every loaded dataset concurrently.
func (s *Session) Evaluate(ctx context.Context) (*Result, error) {
	els, err := s.Elements()
	if err != nil {
		return nil, err
	}
	res := &Result{Params: s.params, Elements: els, TimeBase: s.timeBase}

	g, ctx := errgroup.WithContext(ctx)
	if s.rvData != nil {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := s.evaluateRV(els)
			if err != nil {
				return fmt.Errorf("radial velocity model: %w", err)
			}
			res.RV = p
			return nil
		})
	}
	if s.transitData != nil {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := s.evaluatePhotometry(s.transitData, els, constants.TransitInstrument)
			if err != nil {
				return fmt.Errorf("transit model: %w", err)
			}
			res.Transit = p
			return nil
		})
	}
	if s.eclipseData != nil {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := s.evaluatePhotometry(s.eclipseData, els, constants.EclipseInstrument)
			if err != nil {
				return fmt.Errorf("eclipse model: %w", err)
			}
			res.Eclipse = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Debug("evaluation failed",
			zap.String("op", "session.Evaluate"),
			zap.Error(err),
		)
		return nil, err
	}
	return res, nil
}

// Residuals evaluates the models and fills observed - model and the total
// per-point uncertainty sqrt(err² + jit²) for every prediction.
func (s *Session) Residuals(ctx context.Context) (*Result, error) {
	res, err := s.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	jitter := s.params.Jitters()
	for _, p := range res.Predictions() {
		n := p.Data.Len()
		p.Residual = make([]float64, n)
		floats.SubTo(p.Residual, p.Data.Values, p.Model)

		p.Sigma = make([]float64, n)
		if err := rv.Variance(p.Sigma, p.Data.Uncertainties, p.Data.Instruments, jitter); err != nil {
			return nil, err
		}
		for i, v := range p.Sigma {
			p.Sigma[i] = math.Sqrt(v)
		}

		scaled := make([]float64, n)
		floats.DivTo(scaled, p.Residual, p.Sigma)
		p.ChiSquared = floats.Dot(scaled, scaled)
	}
	return res, nil
}

func (s *Session) evaluateRV(els []orbit.Elements) (*Prediction, error) {
	model, err := rv.Evaluate(s.rvData.Times, s.rvData.Instruments, rv.Inputs{
		Planets:  els,
		Offsets:  s.params.Offsets(),
		Jitter:   s.params.Jitters(),
		Dvdt:     s.sharedValue(params.NameDvdt),
		Curv:     s.sharedValue(params.NameCurv),
		TimeBase: s.timeBase,
		Solver:   s.solver,
	})
	if err != nil {
		return nil, err
	}
	return &Prediction{Data: s.rvData, Model: model}, nil
}

// evaluatePhotometry multiplies the relative light curves of every planet
// with a photometry block. The system flux is that of the first block, and
// the instrument's gamma is added as a zero-point.
func (s *Session) evaluatePhotometry(ds *dataset.Dataset, els []orbit.Elements, inst string) (*Prediction, error) {
	model := make([]float64, ds.Len())
	systemFlux := math.NaN()

	planets := slices.Clone(s.conf.Photometry)
	slices.SortFunc(planets, func(a, b config.PhotometryConfig) int { return a.Planet - b.Planet })
	for _, phot := range planets {
		el := els[phot.Planet-1]
		inc := phot.Inc * math.Pi / 180

		var (
			curve []float64
			err   error
		)
		if inst == constants.EclipseInstrument {
			curve, err = s.lc.Eclipse(ds.Times, el, phot.Flux, phot.Ars, phot.Rprs, inc, phot.FluxRatio)
		} else {
			curve, err = s.lc.Transit(ds.Times, el, phot.Flux, phot.Ars, phot.Rprs, inc)
		}
		if err != nil {
			return nil, fmt.Errorf("planet %s: %w", s.conf.PlanetLetter(phot.Planet), err)
		}

		if math.IsNaN(systemFlux) {
			systemFlux = phot.Flux
			floats.ScaleTo(model, 1/phot.Flux, curve)
			continue
		}
		floats.Scale(1/phot.Flux, curve)
		floats.Mul(model, curve)
	}

	if math.IsNaN(systemFlux) {
		return nil, fmt.Errorf("%w: %s data is loaded but no planet has a photometry block",
			lightcurve.ErrInvalidGeometry, inst)
	}
	floats.Scale(systemFlux, model)
	floats.AddConst(s.sharedValue(params.GammaName(inst)), model)
	return &Prediction{Data: ds, Model: model}, nil
}

func (s *Session) sharedValue(name string) float64 {
	p, _ := s.params.Shared(name)
	return p.Value
}
