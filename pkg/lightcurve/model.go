package lightcurve

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/iwvelando/keplerfit/pkg/constants"
	"github.com/iwvelando/keplerfit/pkg/mathutil"
	"github.com/iwvelando/keplerfit/pkg/orbit"
)

var (
	// ErrUnsupportedConfiguration is returned when the native kernel is
	// requested but none is registered, or the mode is unknown.
	ErrUnsupportedConfiguration = errors.New("lightcurve: unsupported configuration")

	// ErrInvalidGeometry is returned for physically meaningless occultation
	// parameters.
	ErrInvalidGeometry = errors.New("lightcurve: invalid geometry")
)

// Mode selects the kernel used by a Model.
type Mode int

const (
	// ModeAuto uses the native kernel when registered and the interpreted
	// one otherwise.
	ModeAuto Mode = iota
	// ModeNative requires a registered native kernel.
	ModeNative
	// ModeInterpreted always uses the portable kernel.
	ModeInterpreted
)

// String returns the configuration spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return constants.KernelAuto
	case ModeNative:
		return constants.KernelNative
	case ModeInterpreted:
		return constants.KernelInterpreted
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps a configuration string to a Mode. The empty string is ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", constants.KernelAuto:
		return ModeAuto, nil
	case constants.KernelNative:
		return ModeNative, nil
	case constants.KernelInterpreted:
		return ModeInterpreted, nil
	}
	return ModeAuto, fmt.Errorf("%w: unknown kernel mode %q", ErrUnsupportedConfiguration, s)
}

var registry struct {
	mu     sync.Mutex
	native Kernel
	frozen bool
}

// RegisterNative installs the accelerated kernel. It must be called before
// the first Model is created, normally from an init function; it panics if
// called twice, with a nil kernel, or after registration has frozen.
func RegisterNative(k Kernel) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	switch {
	case k == nil:
		panic("lightcurve: RegisterNative kernel is nil")
	case registry.frozen:
		panic("lightcurve: RegisterNative called after first use")
	case registry.native != nil:
		panic("lightcurve: RegisterNative called twice for kernel " + k.Name())
	}
	registry.native = k
}

// NativeAvailable reports whether a native kernel is registered. The answer
// is fixed from the first call onwards.
func NativeAvailable() bool {
	return nativeKernel() != nil
}

func nativeKernel() Kernel {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.frozen = true
	return registry.native
}

// Model evaluates transit and eclipse light curves with one kernel. A Model
// is immutable and safe for concurrent use.
type Model struct {
	kernel Kernel
}

// New returns a Model whose kernel is chosen by mode.
func New(mode Mode) (*Model, error) {
	switch mode {
	case ModeInterpreted:
		return &Model{kernel: Interpreted{}}, nil
	case ModeNative:
		k := nativeKernel()
		if k == nil {
			return nil, fmt.Errorf("%w: native kernel requested but none is registered", ErrUnsupportedConfiguration)
		}
		return &Model{kernel: k}, nil
	case ModeAuto:
		if k := nativeKernel(); k != nil {
			return &Model{kernel: k}, nil
		}
		return &Model{kernel: Interpreted{}}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedConfiguration, mode)
}

// NewWithKernel returns a Model bound to an explicit kernel.
func NewWithKernel(k Kernel) (*Model, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: nil kernel", ErrUnsupportedConfiguration)
	}
	return &Model{kernel: k}, nil
}

// KernelName names the kernel in use.
func (m *Model) KernelName() string {
	return m.kernel.Name()
}

// Transit returns the transit light curve at times. The time of conjunction
// is derived from el.
func (m *Model) Transit(times []float64, el orbit.Elements, flux, ars, rprs, inc float64) ([]float64, error) {
	g, err := geometry(el, el.TransitTime(), flux, ars, rprs, inc)
	if err != nil {
		return nil, err
	}
	dst := make([]float64, len(times))
	m.kernel.Transit(dst, times, g)
	return dst, nil
}

// Eclipse returns the secondary-eclipse light curve at times. fluxRatio is
// the planet-to-star flux ratio.
func (m *Model) Eclipse(times []float64, el orbit.Elements, flux, ars, rprs, inc, fluxRatio float64) ([]float64, error) {
	if !mathutil.IsFinite(fluxRatio) || fluxRatio < 0 {
		return nil, fmt.Errorf("%w: flux ratio %v must be >= 0", ErrInvalidGeometry, fluxRatio)
	}
	g, err := geometry(el, el.EclipseTime(), flux, ars, rprs, inc)
	if err != nil {
		return nil, err
	}
	dst := make([]float64, len(times))
	m.kernel.Eclipse(dst, times, g, fluxRatio)
	return dst, nil
}

func geometry(el orbit.Elements, t0, flux, ars, rprs, inc float64) (Geometry, error) {
	if err := el.Validate(); err != nil {
		return Geometry{}, err
	}
	switch {
	case !mathutil.IsFinite(rprs) || rprs <= 0 || rprs >= 1:
		return Geometry{}, fmt.Errorf("%w: rprs %v must be in (0, 1)", ErrInvalidGeometry, rprs)
	case !mathutil.IsFinite(ars) || ars <= 0:
		return Geometry{}, fmt.Errorf("%w: ars %v must be > 0", ErrInvalidGeometry, ars)
	case !mathutil.IsFinite(flux) || !mathutil.IsFinite(inc):
		return Geometry{}, fmt.Errorf("%w: flux %v and inc %v must be finite", ErrInvalidGeometry, flux, inc)
	}
	return Geometry{Per: el.Per, T0: t0, Flux: flux, Ars: ars, Rprs: rprs, Inc: inc}, nil
}
