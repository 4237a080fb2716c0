// Package basis converts parameter sets between equivalent orbital
// parameterizations.
//
// Every conversion goes through the canonical orbit.Elements form
// {per, tp, e, w, k}: the source set is decomposed planet by planet and the
// result re-encoded in the target basis. Shared instrumental parameters are
// carried over unchanged.
package basis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/iwvelando/keplerfit/pkg/params"
)

var (
	// ErrUnknownBasis is returned for basis names outside the registry's
	// catalog.
	ErrUnknownBasis = errors.New("basis: unknown basis")

	// ErrInvalidValue is returned when a value cannot be represented in the
	// requested basis, e.g. the logarithm of a non-positive amplitude.
	ErrInvalidValue = errors.New("basis: value outside basis domain")
)

// Names is the default catalog.
var Names = []string{
	"per tp e w k",
	"per tc e w k",
	"per tc e w logk",
	"per tp secosw sesinw k",
	"per tc secosw sesinw k",
	"per tc secosw sesinw logk",
	"logper tc secosw sesinw k",
	"logper tc secosw sesinw logk",
}

// Registry is a catalog of known bases. It is read-only after construction
// and safe for concurrent use.
type Registry struct {
	bases map[string]params.Basis
}

// NewRegistry builds a registry from basis names.
func NewRegistry(names ...string) (*Registry, error) {
	r := &Registry{bases: make(map[string]params.Basis, len(names))}
	for _, name := range names {
		b, err := params.ParseBasis(name)
		if err != nil {
			return nil, err
		}
		r.bases[b.Name()] = b
	}
	return r, nil
}

var defaultRegistry = mustRegistry(Names...)

func mustRegistry(names ...string) *Registry {
	r, err := NewRegistry(names...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the registry holding the default catalog.
func Default() *Registry {
	return defaultRegistry
}

// Lookup returns the parsed basis for a catalog name. Whitespace is
// normalized before the lookup.
func (r *Registry) Lookup(name string) (params.Basis, error) {
	parsed, err := params.ParseBasis(name)
	if err != nil {
		return params.Basis{}, fmt.Errorf("%w: %q: %v", ErrUnknownBasis, name, err)
	}
	b, ok := r.bases[parsed.Name()]
	if !ok {
		return params.Basis{}, fmt.Errorf("%w: %q", ErrUnknownBasis, name)
	}
	return b, nil
}

// Names lists the catalog, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.bases))
	for n := range r.bases {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Convert re-expresses src in the target basis and returns a new set; src
// is left untouched.
func (r *Registry) Convert(src *params.Set, target string) (*params.Set, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil parameter set", params.ErrMissingParameter)
	}
	if _, err := r.Lookup(src.Basis().Name()); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	to, err := r.Lookup(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	b := params.NewBuilder(to, src.Planets(), src.Instruments())
	for planet := 1; planet <= src.Planets(); planet++ {
		d, err := decompose(src, planet)
		if err != nil {
			return nil, err
		}
		encoded, err := encode(d, src, planet, to)
		if err != nil {
			return nil, err
		}
		for _, kind := range to.Kinds() {
			b.SetElement(kind, planet, encoded[kind])
		}
	}
	for _, name := range src.Names() {
		if _, _, isElement := params.ParseElementName(name); isElement {
			continue
		}
		p, _ := src.Shared(name)
		b.SetShared(name, p)
	}

	out, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("convert %q to %q: %w", src.Basis().Name(), to.Name(), err)
	}
	return out, nil
}
