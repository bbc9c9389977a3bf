package autochi_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/krotov"
	"github.com/katalvlaran/krotov/autochi"
	"github.com/katalvlaran/krotov/storage"
)

// jtNormSquared returns sum_k |phi_k|^2, whose exact gradient is known:
// d(|psi|^2)/dpsi = conj(psi), so chi = -conj(dJ/dpsi) = -psi.
func jtNormSquared(states []storage.State, _ []krotov.Trajectory) float64 {
	var total float64
	for _, st := range states {
		for _, amp := range st {
			total += real(amp)*real(amp) + imag(amp)*imag(amp)
		}
	}
	return total
}

func TestDefaultMatchesKnownGradient(t *testing.T) {
	chi := autochi.Default(jtNormSquared)

	phi := []storage.State{{1 + 0.5i, 0.2 - 0.3i}}
	out := make([]storage.State, 1)
	chi(context.Background(), out, phi, nil)

	require.Len(t, out, 1)
	require.Len(t, out[0], 2)
	for i := range phi[0] {
		want := -phi[0][i]
		assert.InDelta(t, real(want), real(out[0][i]), 1e-4)
		assert.InDelta(t, imag(want), imag(out[0][i]), 1e-4)
	}
}

func TestDefaultZeroAtOrigin(t *testing.T) {
	chi := autochi.Default(jtNormSquared)
	phi := []storage.State{{0, 0}}
	out := make([]storage.State, 1)
	chi(context.Background(), out, phi, nil)
	for _, amp := range out[0] {
		assert.True(t, math.Abs(real(amp)) < 1e-9)
		assert.True(t, math.Abs(imag(amp)) < 1e-9)
	}
}
