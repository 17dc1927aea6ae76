package units

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traylib/internal/errors"
)

func TestResolve(t *testing.T) {
	sys := NewSystem(map[string]decimal.Decimal{"ru": decimal.RequireFromString("44.5")})

	tests := []struct {
		name      string
		spec      string
		wantName  string
		wantScale string
	}{
		{name: "inches", spec: "in", wantName: "in", wantScale: "25.4"},
		{name: "centimetres", spec: "cm", wantName: "cm", wantScale: "10"},
		{name: "empty falls back to inches", spec: "", wantName: "in", wantScale: "25.4"},
		{name: "table entry from app data", spec: "ru", wantName: "ru", wantScale: "44.5"},
		{name: "name=number", spec: "hp=5.08", wantName: "hp", wantScale: "5.08"},
		{name: "bare number", spec: "12.7", wantName: UnnamedUnit, wantScale: "12.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := sys.Resolve(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, u.Name)
			assert.True(t, u.ScaleMM.Equal(decimal.RequireFromString(tt.wantScale)), "scale %s", u.ScaleMM)
		})
	}
}

func TestResolveRejectsGarbage(t *testing.T) {
	sys := NewSystem(nil)

	for _, spec := range []string{"furlong", "x=abc", "0", "-3"} {
		_, err := sys.Resolve(spec)
		require.Error(t, err, spec)
		assert.True(t, errors.IsType(err, errors.TypeConfig), spec)
	}
}

func TestFromMM(t *testing.T) {
	u, err := NewSystem(nil).Resolve("cm")
	require.NoError(t, err)

	assert.Equal(t, "0.175", u.FromMM(decimal.RequireFromString("1.75")).String())
	assert.False(t, u.InchLike())

	in, _ := NewSystem(nil).Resolve("in")
	assert.True(t, in.InchLike())
}
