package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasis(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Synthesis basis", "per tp e w k", false},
		{"Fitting basis", "per tc secosw sesinw logk", false},
		{"Log period", "logper tc secosw sesinw k", false},
		{"Extra whitespace", "  per  tc e w   k ", false},
		{"Empty", "", true},
		{"Unknown element", "per tc se w k", true},
		{"Two period encodings", "per logper tc e w k", true},
		{"Missing epoch", "per e w k", true},
		{"Two epochs", "per tp tc e w k", true},
		{"Mixed eccentricity encodings", "per tc e sesinw k", true},
		{"Both eccentricity encodings", "per tc e w secosw sesinw k", true},
		{"Missing amplitude", "per tc e w", true},
		{"Repeated element", "per tc e w k k", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBasis(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidBasis)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(b.Kinds()), 5)
		})
	}
}

func TestParseBasisCanonicalName(t *testing.T) {
	b := MustParseBasis("  per  tc e w   k ")
	assert.Equal(t, "per tc e w k", b.Name())
	assert.Equal(t, []ElementKind{Per, Tc, Ecc, Omega, K}, b.Kinds())
}

func TestParseElementName(t *testing.T) {
	tests := []struct {
		input  string
		kind   ElementKind
		planet int
		ok     bool
	}{
		{"per1", Per, 1, true},
		{"logper2", LogPer, 2, true},
		{"e1", Ecc, 1, true},
		{"secosw12", SecosW, 12, true},
		{"logk3", LogK, 3, true},
		{"per", 0, 0, false},
		{"per0", 0, 0, false},
		{"dvdt", 0, 0, false},
		{"gamma_hires", 0, 0, false},
		{"12", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, planet, ok := ParseElementName(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.kind, kind)
				assert.Equal(t, tt.planet, planet)
				assert.Equal(t, tt.input, ElementName(kind, planet))
			}
		})
	}
}

func newK224(t *testing.T) *Set {
	t.Helper()
	set, err := NewBuilder(MustParseBasis("per tc e w k"), 2, []string{"hires"}).
		Set("per1", Free(20.8851)).
		Set("tc1", Free(2450965.7948)).
		Set("e1", Free(0.06)).
		Set("w1", Free(1.5707963267948966)).
		Set("k1", Free(4.5)).
		Set("per2", Free(42.36342)).
		Set("tc2", Free(2456915.6251)).
		Set("e2", Fixed(0)).
		Set("w2", Fixed(1.5707963267948966)).
		Set("k2", Free(4.6)).
		Set("dvdt", Fixed(0)).
		Set("curv", Fixed(0)).
		Set("gamma_hires", Parameter{Value: 0.1, Linear: true}).
		Set("jit_hires", Free(0)).
		Set("ti", Fixed(2100)).
		Set("tf", Fixed(2500)).
		Build()
	require.NoError(t, err)
	return set
}

func TestBuildValidSet(t *testing.T) {
	set := newK224(t)

	assert.Equal(t, 2, set.Planets())
	assert.Equal(t, "per tc e w k", set.Basis().Name())
	assert.Equal(t, []string{
		"per1", "tc1", "e1", "w1", "k1",
		"per2", "tc2", "e2", "w2", "k2",
		"dvdt", "curv", "gamma_hires", "jit_hires", "ti", "tf",
	}, set.Names())

	v, err := set.Value("k2")
	require.NoError(t, err)
	assert.Equal(t, 4.6, v)

	p, ok := set.Shared("gamma_hires")
	require.True(t, ok)
	assert.True(t, p.Linear)
	assert.False(t, p.Vary)

	assert.Equal(t, map[string]float64{"hires": 0.1}, set.Offsets())
	assert.Equal(t, map[string]float64{"hires": 0}, set.Jitters())
}

func TestBuildMissingParameter(t *testing.T) {
	_, err := NewBuilder(MustParseBasis("per tc e w k"), 1, []string{"hires"}).
		Set("per1", Free(1)).
		Set("tc1", Free(1)).
		Set("e1", Free(0)).
		Set("k1", Free(1)).
		Set("dvdt", Fixed(0)).
		Set("curv", Fixed(0)).
		Set("gamma_hires", Fixed(0)).
		Build()
	require.ErrorIs(t, err, ErrMissingParameter)
	assert.Contains(t, err.Error(), "w1")
	assert.Contains(t, err.Error(), "jit_hires")
}

func TestBuildUnknownParameter(t *testing.T) {
	tests := []struct {
		name  string
		param string
	}{
		{"Element outside basis", "secosw1"},
		{"Planet out of range", "per3"},
		{"Undeclared instrument", "gamma_harps"},
		{"Unknown shared name", "slope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(MustParseBasis("per tc e w k"), 2, []string{"hires"}).
				Set(tt.param, Free(1)).
				Build()
			require.ErrorIs(t, err, ErrUnknownParameter)
		})
	}
}

func TestVectorRoundTrip(t *testing.T) {
	set := newK224(t)

	assert.Equal(t, []string{"per1", "tc1", "e1", "w1", "k1", "per2", "tc2", "k2", "jit_hires"}, set.VaryNames())

	vec := set.Vector()
	vec[4] = 9.9
	updated, err := set.WithVector(vec)
	require.NoError(t, err)

	k1, _ := updated.Value("k1")
	assert.Equal(t, 9.9, k1)
	orig, _ := set.Value("k1")
	assert.Equal(t, 4.5, orig, "receiver must not be mutated")

	_, err = set.WithVector(vec[:3])
	require.ErrorIs(t, err, ErrVectorLength)
}

func TestWithValuesUnknownName(t *testing.T) {
	set := newK224(t)
	_, err := set.WithValues(map[string]float64{"logk1": 1})
	require.ErrorIs(t, err, ErrUnknownParameter)
}

func TestInstrumentOf(t *testing.T) {
	inst, ok := InstrumentOf("gamma_hires")
	assert.True(t, ok)
	assert.Equal(t, "hires", inst)

	inst, ok = InstrumentOf("jit_tr")
	assert.True(t, ok)
	assert.Equal(t, "tr", inst)

	_, ok = InstrumentOf("gamma_")
	assert.False(t, ok)
}
