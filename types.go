// Package krotov implements the core of an iterative first-order
// Krotov-method optimal-control optimizer: the iteration loop, its
// forward/backward propagation choreography, the per-timestep sequential
// pulse-update rule, the workspace holding all alternating buffers, and
// the result object accumulating convergence data.
//
// The propagator itself, the generator/Hamiltonian representation, the
// final-time functional J_T, and every hook are external collaborators;
// this package only specifies their interfaces (Trajectory, Operator,
// JTFunc, ChiFunc, and the Option hooks) and orchestrates calls to them.
// Package qsys ships one concrete, fully wired collaborator so the core
// is exercisable end to end.
package krotov

import (
	"github.com/katalvlaran/krotov/storage"
)

// ControlKey is the external identity token for one scalar, real-valued
// control field of time, supplied by the caller's trajectories. Two
// trajectories referencing "the same control" must use == -equal keys
// (e.g. the same *ControlSpec pointer, or equal comparable values such as
// a string name); NewWorkspace assigns a stable control.ID per distinct
// key, in first-seen order across the trajectory list (Design Notes §9).
type ControlKey any

// TimeGrid is the strictly increasing sequence t0 < t1 < ... < t_NT of
// real times spec.md §3 describes. NT, the interval count, is len(Times)-1.
type TimeGrid struct {
	Times []float64
}

// NT returns the interval count N_T.
func (g TimeGrid) NT() int { return len(g.Times) - 1 }

// Midpoint returns the midpoint of interval i (0-based, 0..NT-1):
// (t_i + t_{i+1}) / 2.
func (g TimeGrid) Midpoint(i int) float64 {
	return 0.5 * (g.Times[i] + g.Times[i+1])
}

// Dt returns the width of interval i (0-based, 0..NT-1): t_{i+1} - t_i.
func (g TimeGrid) Dt(i int) float64 {
	return g.Times[i+1] - g.Times[i]
}

// Operator applies a linear operator to a state, producing a new state
// of the same dimension. It is the only thing the core needs to know
// about a control derivative ∂G/∂ε_l in order to evaluate ⟨χ|μ|ϕ⟩ —
// everything about how the operator is represented (dense matrix,
// sparse matrix, a closure over a larger generator) is opaque to it.
type Operator interface {
	Apply(psi storage.State) storage.State
}

// OperatorFunc adapts a plain function to an Operator.
type OperatorFunc func(psi storage.State) storage.State

// Apply implements Operator.
func (f OperatorFunc) Apply(psi storage.State) storage.State { return f(psi) }

// DenseOperator is a literal dense complex matrix, the "constant-matrix"
// case of a control derivative (spec.md §3's Trajectory entity, Design
// Notes §9's tagged variant). Grounded on matrix.AdjacencyMatrix's
// owned-2D-slice shape.
type DenseOperator [][]complex128

// Apply implements Operator via ordinary dense matrix-vector multiply.
func (m DenseOperator) Apply(psi storage.State) storage.State {
	out := make(storage.State, len(m))
	for i, row := range m {
		var acc complex128
		for j, v := range row {
			acc += v * psi[j]
		}
		out[i] = acc
	}
	return out
}

// derivativeKind tags which case a ControlDerivative holds: absent,
// constant (ConstantMatrix and ConstantOperator share this tag), or
// time-dependent.
type derivativeKind int

const (
	kindAbsent derivativeKind = iota
	kindConstant
	kindTimeDependent
)

// ControlDerivative is the tagged variant for ∂G/∂ε_l: absent (control
// does not act on this trajectory), a constant operator (matrix or
// otherwise), or a time-dependent callable. Constructed via NoDerivative,
// ConstantMatrix, ConstantOperator or TimeDependentOperator.
type ControlDerivative struct {
	kind   derivativeKind
	op     Operator
	atFunc func(n int, values map[ControlKey]float64) Operator
}

// NoDerivative reports that a control does not act on a trajectory's
// generator; it contributes 0 to that trajectory's update direction.
func NoDerivative() ControlDerivative {
	return ControlDerivative{kind: kindAbsent}
}

// ConstantMatrix wraps a literal dense matrix as a time-invariant control
// derivative.
func ConstantMatrix(rows [][]complex128) ControlDerivative {
	return ControlDerivative{kind: kindConstant, op: DenseOperator(rows)}
}

// ConstantOperator wraps an arbitrary time-invariant Operator as a
// control derivative (the "constant-operator" case, distinct from a
// literal matrix only in how the operator is represented internally).
func ConstantOperator(op Operator) ControlDerivative {
	return ControlDerivative{kind: kindConstant, op: op}
}

// TimeDependentOperator wraps a callable evaluated once per interval n
// (0-based) given every control's current value at that interval,
// matching spec.md §4.7c's "for time-dependent, evaluation substitutes
// ε⁽ⁱ⁺¹⁾ at interval n via the generator's control-evaluation interface".
func TimeDependentOperator(fn func(n int, values map[ControlKey]float64) Operator) ControlDerivative {
	return ControlDerivative{kind: kindTimeDependent, atFunc: fn}
}

// at evaluates the derivative at interval n (0-based), returning
// (operator, true) or (nil, false) if absent.
func (d ControlDerivative) at(n int, values map[ControlKey]float64) (Operator, bool) {
	switch d.kind {
	case kindConstant:
		return d.op, true
	case kindTimeDependent:
		return d.atFunc(n, values), true
	default:
		return nil, false
	}
}
