package basis

import (
	"fmt"
	"math"

	"github.com/iwvelando/keplerfit/pkg/mathutil"
	"github.com/iwvelando/keplerfit/pkg/orbit"
	"github.com/iwvelando/keplerfit/pkg/params"
)

// decoded is one planet in canonical form, plus the fitting flags of the
// source parameters each canonical group came from.
type decoded struct {
	el orbit.Elements

	perVary, epochVary, eccVary, ampVary bool
}

// Elements decomposes one planet of a set, in any basis, into canonical
// orbital elements. It is called on every model evaluation.
func Elements(src *params.Set, planet int) (orbit.Elements, error) {
	d, err := decompose(src, planet)
	if err != nil {
		return orbit.Elements{}, err
	}
	return d.el, nil
}

// AllElements returns the canonical elements of every planet in the set.
func AllElements(src *params.Set) ([]orbit.Elements, error) {
	out := make([]orbit.Elements, src.Planets())
	for i := range out {
		el, err := Elements(src, i+1)
		if err != nil {
			return nil, err
		}
		out[i] = el
	}
	return out, nil
}

func decompose(src *params.Set, planet int) (decoded, error) {
	b := src.Basis()
	get := func(kind params.ElementKind) (params.Parameter, error) {
		p, ok := src.Element(kind, planet)
		if !ok {
			return params.Parameter{}, fmt.Errorf("%w: %s (basis %q)", params.ErrMissingParameter, params.ElementName(kind, planet), b.Name())
		}
		return p, nil
	}

	var d decoded

	if b.Has(params.LogPer) {
		p, err := get(params.LogPer)
		if err != nil {
			return d, err
		}
		d.el.Per, d.perVary = math.Pow(10, p.Value), p.Vary
	} else {
		p, err := get(params.Per)
		if err != nil {
			return d, err
		}
		d.el.Per, d.perVary = p.Value, p.Vary
	}

	if b.Has(params.SecosW) {
		c, err := get(params.SecosW)
		if err != nil {
			return d, err
		}
		s, err := get(params.SesinW)
		if err != nil {
			return d, err
		}
		d.el.E = c.Value*c.Value + s.Value*s.Value
		if d.el.E == 0 {
			// w is undefined on a circular orbit; 0 by convention.
			d.el.W = 0
		} else {
			d.el.W = math.Atan2(s.Value, c.Value)
		}
		d.eccVary = c.Vary || s.Vary
	} else {
		e, err := get(params.Ecc)
		if err != nil {
			return d, err
		}
		w, err := get(params.Omega)
		if err != nil {
			return d, err
		}
		d.el.E, d.el.W = e.Value, w.Value
		d.eccVary = e.Vary || w.Vary
	}

	if b.Has(params.LogK) {
		p, err := get(params.LogK)
		if err != nil {
			return d, err
		}
		d.el.K, d.ampVary = math.Pow(10, p.Value), p.Vary
	} else {
		p, err := get(params.K)
		if err != nil {
			return d, err
		}
		d.el.K, d.ampVary = p.Value, p.Vary
	}

	// Validate before the epoch conversion, which needs e < 1.
	if err := d.el.Validate(); err != nil {
		return d, fmt.Errorf("%w: planet %d: %w", ErrInvalidValue, planet, err)
	}

	if b.Has(params.Tc) {
		p, err := get(params.Tc)
		if err != nil {
			return d, err
		}
		d.el.Tp = orbit.TransitToPeriastron(p.Value, d.el.Per, d.el.E, d.el.W)
		d.epochVary = p.Vary
	} else {
		p, err := get(params.Tp)
		if err != nil {
			return d, err
		}
		d.el.Tp = p.Value
		d.epochVary = p.Vary
	}
	if !mathutil.IsFinite(d.el.Tp) {
		return d, fmt.Errorf("%w: planet %d: epoch is not finite", ErrInvalidValue, planet)
	}
	return d, nil
}

// encode expresses d in the target basis. Elements whose kind also exists in
// the source basis keep the source parameter's flags, and their value when
// no arithmetic is needed.
func encode(d decoded, src *params.Set, planet int, to params.Basis) (map[params.ElementKind]params.Parameter, error) {
	out := make(map[params.ElementKind]params.Parameter, len(to.Kinds()))
	el := d.el

	// secosw and sesinw cannot carry w on a circular orbit, so w becomes 0
	// and tp moves to keep the transit where it was.
	circular := to.Has(params.SecosW) && el.E == 0 && el.W != 0
	if circular {
		tc := orbit.PeriastronToTransit(el.Tp, el.Per, 0, el.W)
		el.W = 0
		el.Tp = orbit.TransitToPeriastron(tc, el.Per, 0, 0)
	}

	for _, kind := range to.Kinds() {
		var (
			value float64
			vary  bool
		)
		switch kind {
		case params.Per:
			value, vary = el.Per, d.perVary
		case params.LogPer:
			value, vary = math.Log10(el.Per), d.perVary
		case params.Tp:
			value, vary = el.Tp, d.epochVary
		case params.Tc:
			value, vary = orbit.PeriastronToTransit(el.Tp, el.Per, el.E, el.W), d.epochVary
		case params.Ecc:
			value, vary = el.E, d.eccVary
		case params.Omega:
			value, vary = el.W, d.eccVary
		case params.SecosW:
			value, vary = math.Sqrt(el.E)*math.Cos(el.W), d.eccVary
		case params.SesinW:
			value, vary = math.Sqrt(el.E)*math.Sin(el.W), d.eccVary
		case params.K:
			value, vary = el.K, d.ampVary
		case params.LogK:
			if el.K <= 0 {
				return nil, fmt.Errorf("%w: %s requires k > 0, got %v", ErrInvalidValue, params.ElementName(kind, planet), el.K)
			}
			value, vary = math.Log10(el.K), d.ampVary
		default:
			return nil, fmt.Errorf("%w: element %v", params.ErrUnknownParameter, kind)
		}

		p := params.Parameter{Value: value, Vary: vary}
		if orig, ok := src.Element(kind, planet); ok {
			p.Vary, p.Linear = orig.Vary, orig.Linear
			if !circular || kind != params.Tp {
				p.Value = orig.Value
			}
		}
		out[kind] = p
	}
	return out, nil
}
