package qsys

import (
	"context"
	"math/cmplx"

	"github.com/katalvlaran/krotov"
	"github.com/katalvlaran/krotov/storage"
)

// PopulationTransferJT returns the population-transfer final-time
// functional of spec.md §8 scenario S1: averaged over the N trajectories
// that carry a target, J_T = 1 - |<target|phi(T)>|^2 / N. Each state
// vector is already normalised, so no Hilbert-space-dimension factor
// belongs in the average; N is the ensemble size.
func PopulationTransferJT() krotov.JTFunc {
	return func(states []storage.State, trajectories []krotov.Trajectory) float64 {
		var sum float64
		var n int
		for k, traj := range trajectories {
			target, ok := traj.Target()
			if !ok {
				continue
			}
			tau := innerProduct(target, states[k])
			sum += real(tau)*real(tau) + imag(tau)*imag(tau)
			n++
		}
		if n == 0 {
			return 0
		}
		return 1 - sum/float64(n)
	}
}

// PopulationTransferChi returns the closed-form boundary co-state for
// PopulationTransferJT, derived by Wirtinger calculus:
// chi_k = -dJ_T/d<phi_k| = tau_k / N * target_k, where
// tau_k = <target_k|phi_k(T)> and N is the number of targeted
// trajectories. A trajectory with no target gets a zero chi.
//
// This is an exact alternative to autochi.Default for this one
// collaborator's J_T; either can be wired via krotov.WithChi.
func PopulationTransferChi() krotov.ChiFunc {
	return func(_ context.Context, chiOut []storage.State, phi []storage.State, trajectories []krotov.Trajectory) {
		n := 0
		for _, traj := range trajectories {
			if _, ok := traj.Target(); ok {
				n++
			}
		}
		if n == 0 {
			n = 1
		}
		for k, traj := range trajectories {
			target, ok := traj.Target()
			if !ok {
				chiOut[k] = make(storage.State, len(phi[k]))
				continue
			}
			tau := innerProduct(target, phi[k])
			scale := tau / complex(float64(n), 0)
			out := make(storage.State, len(target))
			for i, v := range target {
				out[i] = scale * v
			}
			chiOut[k] = out
		}
	}
}

// innerProduct computes <a|b> = sum_i conj(a_i)*b_i.
func innerProduct(a, b storage.State) complex128 {
	var acc complex128
	for i := range a {
		acc += cmplx.Conj(a[i]) * b[i]
	}
	return acc
}
