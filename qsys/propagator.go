package qsys

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/cmplxs"

	"github.com/katalvlaran/krotov/control"
	"github.com/katalvlaran/krotov/propagator"
	"github.com/katalvlaran/krotov/storage"
)

// MethodRK4 is the only method this propagator understands; it accepts
// propagator.Auto as an alias for itself.
const MethodRK4 propagator.Method = "rk4"

// ErrUnsupportedMethod is returned when a method other than "rk4" or
// propagator.Auto is requested.
var ErrUnsupportedMethod = fmt.Errorf("qsys: only %q and %q methods are supported", MethodRK4, propagator.Auto)

// ErrMissingControl is returned by Rebind when the expected control.ID 0
// is absent from the supplied parameter map.
var ErrMissingControl = fmt.Errorf("qsys: propagator expects exactly one control bound at control.ID 0")

// rk4Handle is a fixed-stage, classical (non-adaptive) 4th-order
// Runge-Kutta stepper satisfying propagator.Handle, one interval of a
// caller-supplied time grid at a time, with the control frozen at its
// interval value (spec.md §4.3's piecewise-propagator contract). Grounded
// on the explicit-stage Runge-Kutta loop of
// other_examples/.../pflow-xyz-go-pflow/solver/ode.go, simplified from
// adaptive embedded Runge-Kutta to a fixed classical RK4 since the time
// grid here is externally fixed rather than adaptively chosen.
type rk4Handle struct {
	ham   TwoLevelHamiltonian
	times []float64 // length NT+1

	dir   propagator.Direction
	pos   int // interval boundary index the handle currently sits at
	state storage.State
	eps   control.Pulse // length NT, bound via Rebind
}

// NewRK4Handle constructs a fresh handle for ham over times. Both
// TwoLevelTrajectory.ForwardHandle and BackwardHandle build one; the
// direction is decided later by Reinit, not by which constructor was
// called.
func NewRK4Handle(ham TwoLevelHamiltonian, times []float64, method propagator.Method) (propagator.Handle, error) {
	if method != propagator.Auto && method != MethodRK4 {
		return nil, ErrUnsupportedMethod
	}
	return &rk4Handle{ham: ham, times: times}, nil
}

func (h *rk4Handle) Rebind(_ context.Context, parameters map[control.ID]control.Pulse) error {
	p, ok := parameters[0]
	if !ok {
		return ErrMissingControl
	}
	h.eps = p
	return nil
}

func (h *rk4Handle) Reinit(_ context.Context, dir propagator.Direction, initial storage.State, opts propagator.ReinitOptions) error {
	h.dir = dir
	h.state = initial.Clone()
	nT := len(h.times) - 1
	if dir == propagator.Forward {
		h.pos = 0
	} else {
		h.pos = nT
	}
	if opts.Checks {
		if b, ok := opts.Ranges[0]; ok {
			for _, v := range h.eps {
				if v < b.Lo || v > b.Hi {
					return fmt.Errorf("qsys: control value %g outside widened bounds [%g, %g]", v, b.Lo, b.Hi)
				}
			}
		}
	}
	return nil
}

func (h *rk4Handle) Step(_ context.Context) (storage.State, error) {
	nT := len(h.times) - 1
	var idx int
	var dt float64
	if h.dir == propagator.Forward {
		idx = h.pos
		if idx >= nT {
			return nil, fmt.Errorf("qsys: forward propagator already at the end of the time grid")
		}
		dt = h.times[idx+1] - h.times[idx]
		h.pos++
	} else {
		idx = h.pos - 1
		if idx < 0 {
			return nil, fmt.Errorf("qsys: backward propagator already at the start of the time grid")
		}
		dt = h.times[idx] - h.times[idx+1]
		h.pos--
	}
	eps := 0.0
	if idx < len(h.eps) {
		eps = h.eps[idx]
	}
	gen := h.ham.At(eps)

	h.state = rk4Step(gen, h.state, dt)
	return h.state.Clone(), nil
}

func (h *rk4Handle) State(_ context.Context) storage.State {
	return h.state.Clone()
}

// rk4Step advances y by dt under the Schrodinger equation dy/dt = -i*gen*y
// (hbar = 1), gen held constant across the sub-step, via classical RK4.
// dt may be negative for backward propagation.
func rk4Step(gen Operator, y storage.State, dt float64) storage.State {
	f := func(state storage.State) storage.State { return applyNegI(gen, state) }

	k1 := f(y)
	k2 := f(addScaled(y, dt/2, k1))
	k3 := f(addScaled(y, dt/2, k2))
	k4 := f(addScaled(y, dt, k3))

	inc := make(storage.State, len(y))
	w := complex(dt/6, 0)
	for i := range inc {
		inc[i] = w * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
	}
	out := y.Clone()
	cmplxs.Add(out, inc)
	return out
}

// applyNegI returns -i * gen * psi.
func applyNegI(gen Operator, psi storage.State) storage.State {
	out := make(storage.State, len(gen))
	negI := complex(0, -1)
	for i, row := range gen {
		var acc complex128
		for j, v := range row {
			acc += v * psi[j]
		}
		out[i] = negI * acc
	}
	return out
}

// addScaled returns y + c*k, a fresh slice.
func addScaled(y storage.State, c float64, k storage.State) storage.State {
	out := y.Clone()
	scaled := k.Clone()
	cmplxs.Scale(complex(c, 0), scaled)
	cmplxs.Add(out, scaled)
	return out
}

