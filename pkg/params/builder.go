package params

import (
	"errors"
	"fmt"
)

// Builder assembles a Set and validates it against the declared basis,
// planet count and instruments when Build is called.
type Builder struct {
	basis       Basis
	planets     int
	instruments []string
	elements    map[elementKey]Parameter
	shared      map[string]Parameter
	errs        []error
}

// NewBuilder starts a parameter set for the given basis.
func NewBuilder(basis Basis, planets int, instruments []string) *Builder {
	b := &Builder{
		basis:    basis,
		planets:  planets,
		elements: make(map[elementKey]Parameter),
		shared:   make(map[string]Parameter),
	}
	if basis.IsZero() {
		b.errs = append(b.errs, fmt.Errorf("%w: no basis given", ErrInvalidBasis))
	}
	if planets < 1 {
		b.errs = append(b.errs, fmt.Errorf("%w: planet count must be at least 1, got %d", ErrUnknownParameter, planets))
	}
	seen := make(map[string]bool, len(instruments))
	for _, inst := range instruments {
		if err := ValidateInstrument(inst); err != nil {
			b.errs = append(b.errs, err)
			continue
		}
		if seen[inst] {
			continue
		}
		seen[inst] = true
		b.instruments = append(b.instruments, inst)
	}
	return b
}

// SetElement records a per-planet element.
func (b *Builder) SetElement(kind ElementKind, planet int, p Parameter) *Builder {
	switch {
	case !b.basis.Has(kind):
		b.errs = append(b.errs, fmt.Errorf("%w: %s is not part of basis %q", ErrUnknownParameter, ElementName(kind, planet), b.basis.Name()))
	case planet < 1 || planet > b.planets:
		b.errs = append(b.errs, fmt.Errorf("%w: %s refers to planet %d of %d", ErrUnknownParameter, ElementName(kind, planet), planet, b.planets))
	default:
		b.elements[elementKey{kind, planet}] = p
	}
	return b
}

// SetShared records a non-planet parameter.
func (b *Builder) SetShared(name string, p Parameter) *Builder {
	switch name {
	case NameDvdt, NameCurv, NameTi, NameTf:
		b.shared[name] = p
		return b
	}
	inst, ok := InstrumentOf(name)
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("%w: %s", ErrUnknownParameter, name))
		return b
	}
	if !b.hasInstrument(inst) {
		b.errs = append(b.errs, fmt.Errorf("%w: %s names undeclared instrument %q", ErrUnknownParameter, name, inst))
		return b
	}
	b.shared[name] = p
	return b
}

// Set records a parameter by its external name.
func (b *Builder) Set(name string, p Parameter) *Builder {
	if kind, planet, ok := ParseElementName(name); ok {
		return b.SetElement(kind, planet, p)
	}
	return b.SetShared(name, p)
}

// Build validates the collected parameters and returns the Set.
func (b *Builder) Build() (*Set, error) {
	errs := append([]error(nil), b.errs...)

	for planet := 1; planet <= b.planets; planet++ {
		for _, kind := range b.basis.kinds {
			if _, ok := b.elements[elementKey{kind, planet}]; !ok {
				errs = append(errs, fmt.Errorf("%w: %s (basis %q)", ErrMissingParameter, ElementName(kind, planet), b.basis.Name()))
			}
		}
	}
	required := []string{NameDvdt, NameCurv}
	for _, inst := range b.instruments {
		required = append(required, GammaName(inst), JitterName(inst))
	}
	for _, name := range required {
		if _, ok := b.shared[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingParameter, name))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	s := &Set{
		basis:       b.basis,
		planets:     b.planets,
		instruments: append([]string(nil), b.instruments...),
		elements:    make(map[elementKey]Parameter, len(b.elements)),
		shared:      make(map[string]Parameter, len(b.shared)),
	}
	for k, v := range b.elements {
		s.elements[k] = v
	}
	for k, v := range b.shared {
		s.shared[k] = v
	}
	return s, nil
}

func (b *Builder) hasInstrument(inst string) bool {
	for _, i := range b.instruments {
		if i == inst {
			return true
		}
	}
	return false
}
