package krotov

import (
	"context"

	"github.com/katalvlaran/krotov/control"
	"github.com/katalvlaran/krotov/propagator"
	"github.com/katalvlaran/krotov/storage"
)

// GuessControl is a control's initial value as the trajectory reports
// it: either a continuous callable (evaluated at interval midpoints) or
// an already-discretised sequence — the two inputs C1's discretisation
// adapter accepts. Exactly one field is non-nil/non-empty.
type GuessControl struct {
	Continuous func(t float64) float64
	Sequence   []float64
}

// Trajectory is the external collaborator spec.md §3 describes: an
// initial state, a time-dependent generator G(t; controls) implicit in
// the propagator handles it constructs, and an optional target state.
// The core never inspects a generator directly — it only asks a
// Trajectory for the controls it depends on, each control's derivative,
// propagator handles bound to those controls, and an adjoint trajectory
// for the backward sweep.
type Trajectory interface {
	// Dim returns the state-vector dimension.
	Dim() int
	// Initial returns ϕ0, this trajectory's initial state.
	Initial() storage.State
	// Target returns the target state and true, or (nil, false) if this
	// trajectory has none (e.g. it only contributes to J_T via its
	// final state directly).
	Target() (storage.State, bool)
	// ControlKeys returns the controls this trajectory's generator
	// depends on, in any order; duplicates are an error.
	ControlKeys() []ControlKey
	// Guess returns key's initial value on this trajectory.
	Guess(key ControlKey) GuessControl
	// Derivative returns ∂G/∂key for this trajectory.
	Derivative(key ControlKey) ControlDerivative
	// ForwardHandle constructs a fresh forward propagator handle using
	// method (which may be propagator.Auto).
	ForwardHandle(method propagator.Method) (propagator.Handle, error)
	// BackwardHandle constructs a fresh backward propagator handle for
	// this trajectory's adjoint using method (which may be propagator.Auto).
	BackwardHandle(method propagator.Method) (propagator.Handle, error)
	// PropMethod, FwPropMethod, BwPropMethod report this trajectory's
	// attached method preferences (propagator.Method("") if none), used
	// by the precedence rule in propagator.Resolve.
	PropMethod() propagator.Method
	FwPropMethod() propagator.Method
	BwPropMethod() propagator.Method
	// Adjoint returns an adjoint trajectory whose generator is the
	// adjoint of this trajectory's generator, for the backward sweep.
	Adjoint() Trajectory
}

// JTFunc is the user-supplied final-time functional: given the forward
// end-states (one per trajectory, in trajectory order) and the
// trajectories themselves, it returns the scalar J_T to minimise.
type JTFunc func(states []storage.State, trajectories []Trajectory) float64

// ChiFunc fills chiOut[k] with -d J_T / d <phi_k|, the boundary co-state,
// given the forward end-states phi (one per trajectory) and the
// trajectories. The core never derives this automatically (spec.md §1
// scopes chi-construction out of the core); supply it via WithChi, or
// wire package autochi's Default(jt) for a numeric finite-difference
// fallback.
type ChiFunc func(ctx context.Context, chiOut []storage.State, phi []storage.State, trajectories []Trajectory)
