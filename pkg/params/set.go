package params

import (
	"fmt"
	"sort"
)

type elementKey struct {
	kind   ElementKind
	planet int
}

// Set is an immutable parameter set tagged with its basis, planet count and
// instrument list. Create one with a Builder; every method that "changes" a
// Set returns a new one.
type Set struct {
	basis       Basis
	planets     int
	instruments []string
	elements    map[elementKey]Parameter
	shared      map[string]Parameter
}

// Basis returns the basis the set is expressed in.
func (s *Set) Basis() Basis {
	return s.basis
}

// Planets returns the number of planets.
func (s *Set) Planets() int {
	return s.planets
}

// Instruments returns a copy of the instrument tags, in declaration order.
func (s *Set) Instruments() []string {
	return append([]string(nil), s.instruments...)
}

// Element returns one per-planet element.
func (s *Set) Element(kind ElementKind, planet int) (Parameter, bool) {
	p, ok := s.elements[elementKey{kind, planet}]
	return p, ok
}

// Shared returns a non-planet parameter such as "dvdt" or "gamma_hires".
func (s *Set) Shared(name string) (Parameter, bool) {
	p, ok := s.shared[name]
	return p, ok
}

// Get looks a parameter up by its external name ("per1", "jit_hires").
func (s *Set) Get(name string) (Parameter, bool) {
	if kind, planet, ok := ParseElementName(name); ok {
		return s.Element(kind, planet)
	}
	return s.Shared(name)
}

// Value returns the value of a named parameter.
func (s *Set) Value(name string) (float64, error) {
	p, ok := s.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingParameter, name)
	}
	return p.Value, nil
}

// Offsets returns the per-instrument velocity zero-points.
func (s *Set) Offsets() map[string]float64 {
	out := make(map[string]float64, len(s.instruments))
	for _, inst := range s.instruments {
		out[inst] = s.shared[GammaName(inst)].Value
	}
	return out
}

// Jitters returns the per-instrument jitter terms.
func (s *Set) Jitters() map[string]float64 {
	out := make(map[string]float64, len(s.instruments))
	for _, inst := range s.instruments {
		out[inst] = s.shared[JitterName(inst)].Value
	}
	return out
}

// Names returns every parameter name in canonical order: planet elements in
// basis order for planets 1..n, then dvdt, curv, the gamma_* and jit_*
// terms in instrument order, then ti and tf when present, then any other
// shared names alphabetically.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.elements)+len(s.shared))
	for planet := 1; planet <= s.planets; planet++ {
		for _, kind := range s.basis.kinds {
			names = append(names, ElementName(kind, planet))
		}
	}

	seen := make(map[string]bool, len(s.shared))
	ordered := []string{NameDvdt, NameCurv}
	for _, inst := range s.instruments {
		ordered = append(ordered, GammaName(inst))
	}
	for _, inst := range s.instruments {
		ordered = append(ordered, JitterName(inst))
	}
	ordered = append(ordered, NameTi, NameTf)
	for _, n := range ordered {
		if _, ok := s.shared[n]; ok {
			names = append(names, n)
			seen[n] = true
		}
	}

	var rest []string
	for n := range s.shared {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// VaryNames returns the names of the free parameters in canonical order.
// This is the coordinate order of Vector and WithVector.
func (s *Set) VaryNames() []string {
	var out []string
	for _, n := range s.Names() {
		if p, _ := s.Get(n); p.Vary {
			out = append(out, n)
		}
	}
	return out
}

// Vector returns the values of the free parameters, ordered as VaryNames.
func (s *Set) Vector() []float64 {
	names := s.VaryNames()
	out := make([]float64, len(names))
	for i, n := range names {
		p, _ := s.Get(n)
		out[i] = p.Value
	}
	return out
}

// WithVector returns a copy of the set with the free parameters replaced by
// the optimizer's candidate vector.
func (s *Set) WithVector(vec []float64) (*Set, error) {
	names := s.VaryNames()
	if len(vec) != len(names) {
		return nil, fmt.Errorf("%w: got %d values for %d free parameters", ErrVectorLength, len(vec), len(names))
	}
	values := make(map[string]float64, len(names))
	for i, n := range names {
		values[n] = vec[i]
	}
	return s.WithValues(values)
}

// WithValues returns a copy of the set with the named values replaced. Flags
// are kept.
func (s *Set) WithValues(values map[string]float64) (*Set, error) {
	out := s.clone()
	for name, v := range values {
		if kind, planet, ok := ParseElementName(name); ok {
			key := elementKey{kind, planet}
			p, exists := out.elements[key]
			if !exists {
				return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
			}
			p.Value = v
			out.elements[key] = p
			continue
		}
		p, exists := out.shared[name]
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
		}
		p.Value = v
		out.shared[name] = p
	}
	return out, nil
}

// Map returns a name-keyed copy of every parameter.
func (s *Set) Map() map[string]Parameter {
	out := make(map[string]Parameter, len(s.elements)+len(s.shared))
	for key, p := range s.elements {
		out[ElementName(key.kind, key.planet)] = p
	}
	for n, p := range s.shared {
		out[n] = p
	}
	return out
}

func (s *Set) clone() *Set {
	out := &Set{
		basis:       s.basis,
		planets:     s.planets,
		instruments: s.instruments,
		elements:    make(map[elementKey]Parameter, len(s.elements)),
		shared:      make(map[string]Parameter, len(s.shared)),
	}
	for k, v := range s.elements {
		out.elements[k] = v
	}
	for k, v := range s.shared {
		out.shared[k] = v
	}
	return out
}
