// Package autochi is an optional collaborator that derives a
// krotov.ChiFunc numerically from a krotov.JTFunc, for callers whose
// final-time functional has no convenient closed-form boundary co-state.
// Constructing chi from J_T is explicitly out of scope for package
// krotov's core (spec.md §1): krotov.Optimize never reaches for this
// package on its own, it must be wired explicitly via
// krotov.WithChi(autochi.Default(jt)).
package autochi

import (
	"context"

	"github.com/katalvlaran/krotov"
	"github.com/katalvlaran/krotov/storage"
)

// Eps is the default step used by the central finite difference on each
// real and imaginary state component.
const Eps = 1e-6

// Default returns a krotov.ChiFunc that derives chi_k = -dJ_T/d<phi_k|
// by perturbing each component of each phi_k in turn and re-evaluating
// jt, using Wirtinger calculus: for a real-valued J as a function of a
// complex amplitude psi, dJ/dpsi = 1/2 (dJ/dRe(psi) - i dJ/dIm(psi)), and
// chi = -conj(dJ/dpsi) = -1/2 (dJ/dRe(psi) + i dJ/dIm(psi)) since chi
// contracts against phi from the left as <chi|.
func Default(jt krotov.JTFunc) krotov.ChiFunc {
	return func(ctx context.Context, chiOut []storage.State, phi []storage.State, trajectories []krotov.Trajectory) {
		for k := range phi {
			chiOut[k] = gradient(jt, phi, trajectories, k)
		}
	}
}

func gradient(jt krotov.JTFunc, phi []storage.State, trajectories []krotov.Trajectory, k int) storage.State {
	n := len(phi[k])
	grad := make(storage.State, n)

	work := make([]storage.State, len(phi))
	for i := range phi {
		work[i] = phi[i].Clone()
	}

	for comp := 0; comp < n; comp++ {
		orig := work[k][comp]

		work[k][comp] = orig + complex(Eps, 0)
		jPlusRe := jt(work, trajectories)
		work[k][comp] = orig - complex(Eps, 0)
		jMinusRe := jt(work, trajectories)
		dRe := (jPlusRe - jMinusRe) / (2 * Eps)

		work[k][comp] = orig + complex(0, Eps)
		jPlusIm := jt(work, trajectories)
		work[k][comp] = orig - complex(0, Eps)
		jMinusIm := jt(work, trajectories)
		dIm := (jPlusIm - jMinusIm) / (2 * Eps)

		work[k][comp] = orig

		grad[comp] = -complex(0.5*dRe, 0.5*dIm)
	}

	return grad
}
