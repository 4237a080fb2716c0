// Package params defines the typed parameter containers shared by the basis
// registry, the forward models, and the external fitting code.
//
// Per-planet orbital elements are addressed by (ElementKind, planet) pairs;
// shared instrumental terms (dvdt, curv, gamma_<inst>, jit_<inst>, ti, tf)
// live in a small name-keyed table. Names such as "per1" or "gamma_hires"
// are only parsed at the edges, where external prior objects and
// configuration files use them.
package params

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidBasis is returned when a basis name is malformed or does not
	// describe a complete, non-redundant orbit.
	ErrInvalidBasis = errors.New("params: invalid basis")

	// ErrMissingParameter is returned when a required parameter is absent.
	ErrMissingParameter = errors.New("params: missing parameter")

	// ErrUnknownParameter is returned for names that do not belong to the
	// set's basis, planet count, or instrument list.
	ErrUnknownParameter = errors.New("params: unknown parameter")

	// ErrVectorLength is returned when an optimizer vector does not match
	// the number of free parameters.
	ErrVectorLength = errors.New("params: vector length mismatch")
)

// ElementKind is one entry of the fixed per-planet element vocabulary.
type ElementKind int

const (
	Per ElementKind = iota
	LogPer
	Tp
	Tc
	Ecc
	Omega
	SecosW
	SesinW
	K
	LogK
	numElementKinds
)

var elementNames = [numElementKinds]string{
	Per:    "per",
	LogPer: "logper",
	Tp:     "tp",
	Tc:     "tc",
	Ecc:    "e",
	Omega:  "w",
	SecosW: "secosw",
	SesinW: "sesinw",
	K:      "k",
	LogK:   "logk",
}

// String returns the vocabulary name of the element.
func (k ElementKind) String() string {
	if k < 0 || k >= numElementKinds {
		return fmt.Sprintf("ElementKind(%d)", int(k))
	}
	return elementNames[k]
}

// ParseElementKind looks up a vocabulary name.
func ParseElementKind(name string) (ElementKind, bool) {
	for i, n := range elementNames {
		if n == name {
			return ElementKind(i), true
		}
	}
	return 0, false
}

// Basis is an ordered list of element kinds describing one planet's orbit.
type Basis struct {
	name  string
	kinds []ElementKind
}

// ParseBasis parses a space-separated basis name such as
// "per tc secosw sesinw logk".
//
// A basis must encode the period, the epoch, the eccentricity and the
// amplitude exactly once each.
func ParseBasis(name string) (Basis, error) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return Basis{}, fmt.Errorf("%w: empty basis name", ErrInvalidBasis)
	}

	var seen [numElementKinds]bool
	kinds := make([]ElementKind, 0, len(fields))
	for _, f := range fields {
		kind, ok := ParseElementKind(f)
		if !ok {
			return Basis{}, fmt.Errorf("%w: %q: unknown element %q", ErrInvalidBasis, name, f)
		}
		if seen[kind] {
			return Basis{}, fmt.Errorf("%w: %q: element %q repeated", ErrInvalidBasis, name, f)
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}

	count := func(ks ...ElementKind) int {
		n := 0
		for _, k := range ks {
			if seen[k] {
				n++
			}
		}
		return n
	}
	switch {
	case count(Per, LogPer) != 1:
		return Basis{}, fmt.Errorf("%w: %q: need exactly one of per, logper", ErrInvalidBasis, name)
	case count(Tp, Tc) != 1:
		return Basis{}, fmt.Errorf("%w: %q: need exactly one of tp, tc", ErrInvalidBasis, name)
	case count(K, LogK) != 1:
		return Basis{}, fmt.Errorf("%w: %q: need exactly one of k, logk", ErrInvalidBasis, name)
	}
	ew := seen[Ecc] && seen[Omega] && !seen[SecosW] && !seen[SesinW]
	sq := seen[SecosW] && seen[SesinW] && !seen[Ecc] && !seen[Omega]
	if !ew && !sq {
		return Basis{}, fmt.Errorf("%w: %q: eccentricity must be encoded as e,w or secosw,sesinw", ErrInvalidBasis, name)
	}

	return Basis{name: strings.Join(fields, " "), kinds: kinds}, nil
}

// MustParseBasis is ParseBasis for package-level catalogs; it panics on a
// malformed name.
func MustParseBasis(name string) Basis {
	b, err := ParseBasis(name)
	if err != nil {
		panic(err)
	}
	return b
}

// Name returns the canonical, single-spaced basis name.
func (b Basis) Name() string {
	return b.name
}

// String implements fmt.Stringer.
func (b Basis) String() string {
	return b.name
}

// Kinds returns a copy of the ordered element kinds.
func (b Basis) Kinds() []ElementKind {
	return append([]ElementKind(nil), b.kinds...)
}

// Has reports whether the basis includes kind.
func (b Basis) Has(kind ElementKind) bool {
	for _, k := range b.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// IsZero reports whether b is the zero Basis.
func (b Basis) IsZero() bool {
	return len(b.kinds) == 0
}
