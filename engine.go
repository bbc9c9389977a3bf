package krotov

import (
	"context"
	"math/cmplx"

	"github.com/katalvlaran/krotov/control"
	"github.com/katalvlaran/krotov/propagator"
	"github.com/katalvlaran/krotov/storage"
)

// iterationOutcome is what runIteration hands back to the driver: the new
// forward end-states and the tau-values <target_k|phi_k> of the forward
// end-states the iteration started from (0 for a trajectory with no
// target).
type iterationOutcome struct {
	endStates []storage.State
	tau       []complex128
}

// runIteration executes one Krotov iteration (component C7): a backward
// sweep from the current forward end-states, then a forward sweep that
// couples the pulse update to the forward propagation one interval at a
// time (spec.md §4.7). It mutates w's write buffer and g_a_int in place
// and leaves the read buffer untouched; the caller swaps buffers once
// the iteration is accepted.
func runIteration(ctx context.Context, w *Workspace, chi ChiFunc, prevEnd []storage.State) (iterationOutcome, error) {
	nTraj := len(w.trajectories)
	nT := w.NT()
	L := w.NumControls()

	guessBuf := w.buffers[w.cur]
	writeBuf := w.buffers[w.nxt]

	// --- Backward sweep ---
	chiT := make([]storage.State, nTraj)
	chi(ctx, chiT, prevEnd, w.trajectories)

	tau := computeTau(w.trajectories, prevEnd)

	guessParams := w.paramsFor(guessBuf)
	guessRanges := w.rangesFor(guessBuf, true)

	err := runOverTrajectories(nTraj, w.useThreads, func(k int) error {
		h := w.backward[k]
		if err := h.Rebind(ctx, guessParams); err != nil {
			return err
		}
		if err := h.Reinit(ctx, propagator.Backward, chiT[k], propagator.ReinitOptions{Ranges: guessRanges, Checks: true}); err != nil {
			return err
		}
		if err := w.bwdStorage[k].Write(nT+1, chiT[k]); err != nil {
			return err
		}
		for n := nT; n >= 1; n-- {
			st, err := h.Step(ctx)
			if err != nil {
				return err
			}
			if err := w.bwdStorage[k].Write(n, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return iterationOutcome{}, err
	}

	// --- Forward sweep with pulse update ---
	for l := 0; l < L; l++ {
		w.gaInt[l] = 0
	}

	writeParams := w.paramsFor(writeBuf)
	err = runOverTrajectories(nTraj, w.useThreads, func(k int) error {
		if err := w.forward[k].Rebind(ctx, writeParams); err != nil {
			return err
		}
		return w.forward[k].Reinit(ctx, propagator.Forward, w.trajectories[k].Initial(), propagator.ReinitOptions{Ranges: guessRanges, Checks: true})
	})
	if err != nil {
		return iterationOutcome{}, err
	}

	phi := make([]storage.State, nTraj)
	for k := range w.trajectories {
		phi[k] = w.trajectories[k].Initial().Clone()
		if err := w.fwdStorage[k].Write(1, phi[k]); err != nil {
			return iterationOutcome{}, err
		}
	}

	chiAtN := make([]storage.State, nTraj)
	values := make(map[ControlKey]float64, L)
	deltaUPrime := make([]float64, L)

	for n := 1; n <= nT; n++ {
		idx := n - 1
		t := w.tlist.Midpoint(idx)
		dt := w.tlist.Dt(idx)

		// a) load chi[k] at index n
		for k := range w.trajectories {
			st, err := w.bwdStorage[k].Read(n, chiAtN[k])
			if err != nil {
				return iterationOutcome{}, err
			}
			chiAtN[k] = st
		}

		// b) first-order approximation: eps_n^(i+1) := eps^(i) at n.
		for l := 0; l < L; l++ {
			writeBuf[l][idx] = guessBuf[l][idx]
		}
		for id, key := range w.controlKeys {
			values[key] = writeBuf[id][idx]
		}

		// c) raw update direction per control: Im <chi_k | mu_{k,l} | phi_k>
		// summed over k (Im is additive, so sum the complex dot products
		// first and take the imaginary part once).
		for l := 0; l < L; l++ {
			var acc complex128
			for k := range w.trajectories {
				op, ok := w.derivatives[k][l].at(idx, values)
				if !ok {
					continue
				}
				acc += conjDot(chiAtN[k], op.Apply(phi[k]))
			}
			deltaUPrime[l] = imag(acc)
			if w.pulseOpts[l].IsParametrized() {
				u := w.pulseOpts[l].UOfEps(writeBuf[l][idx])
				deltaUPrime[l] *= w.pulseOpts[l].DEpsDU(u)
			}
		}

		// d, e, f) step size, write update, accumulate g_a_int.
		for l := 0; l < L; l++ {
			alpha := w.pulseOpts[l].Shape(t) / w.pulseOpts[l].LambdaA
			du := alpha * deltaUPrime[l]
			if w.pulseOpts[l].IsParametrized() {
				u := w.pulseOpts[l].UOfEps(guessBuf[l][idx]) + du
				writeBuf[l][idx] = w.pulseOpts[l].EpsOfU(u)
			} else {
				writeBuf[l][idx] = guessBuf[l][idx] + du
			}
			w.gaInt[l] += alpha * deltaUPrime[l] * deltaUPrime[l] * dt
		}

		// g) step forward propagator for each trajectory.
		err := runOverTrajectories(nTraj, w.useThreads, func(k int) error {
			st, err := w.forward[k].Step(ctx)
			if err != nil {
				return err
			}
			phi[k] = st
			return w.fwdStorage[k].Write(n+1, st)
		})
		if err != nil {
			return iterationOutcome{}, err
		}
	}

	return iterationOutcome{endStates: phi, tau: tau}, nil
}

// conjDot computes sum_i conj(a_i) * b_i, the complex inner product
// <a|b>. Implemented directly with complex128 arithmetic rather than
// gonum/cmplxs.Dot: cmplxs.Dot follows the BLAS zdotu (non-conjugating)
// convention, and this is the one hot-loop quantity whose correctness
// depends on conjugating the left argument, so it is kept as a plain,
// easily-audited loop (see DESIGN.md).
func conjDot(a, b storage.State) complex128 {
	var acc complex128
	for i := range a {
		acc += cmplx.Conj(a[i]) * b[i]
	}
	return acc
}

// computeTau fills tau[k] = <target_k|phi_k> for every trajectory with a
// target, 0 otherwise.
func computeTau(trajectories []Trajectory, phi []storage.State) []complex128 {
	tau := make([]complex128, len(trajectories))
	for k, traj := range trajectories {
		if target, ok := traj.Target(); ok {
			tau[k] = conjDot(target, phi[k])
		}
	}
	return tau
}

// paramsFor converts a control.ID-indexed pulse buffer to the
// control.ID-keyed map propagator.Handle.Rebind expects.
func (w *Workspace) paramsFor(buf []control.Pulse) map[control.ID]control.Pulse {
	out := make(map[control.ID]control.Pulse, len(buf))
	for id, p := range buf {
		out[control.ID(id)] = p
	}
	return out
}

// rangesFor computes the widened per-control bounds (spec.md §4.3) from
// the observed min/max of buf.
func (w *Workspace) rangesFor(buf []control.Pulse, checks bool) map[control.ID]propagator.Bounds {
	out := make(map[control.ID]propagator.Bounds, len(buf))
	for id, p := range buf {
		if len(p) == 0 {
			continue
		}
		min, max := p[0], p[0]
		for _, v := range p {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		out[control.ID(id)] = propagator.WidenBounds(min, max, checks)
	}
	return out
}
