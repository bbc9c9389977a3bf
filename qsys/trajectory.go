package qsys

import (
	"github.com/katalvlaran/krotov"
	"github.com/katalvlaran/krotov/propagator"
	"github.com/katalvlaran/krotov/storage"
)

// TwoLevelTrajectory implements krotov.Trajectory for a single two-level
// system driven by one real control "eps" entering linearly via H1
// (spec.md §8 scenario S1). It is its own adjoint: H0 and H1 are
// Hermitian, so the backward costate equation uses the same generator as
// the forward one.
type TwoLevelTrajectory struct {
	Ham     TwoLevelHamiltonian
	Times   []float64 // length NT+1, shared with the krotov.TimeGrid passed to Optimize
	InitialState storage.State
	TargetState  storage.State // nil if this trajectory carries no target
	GuessFunc    func(t float64) float64
}

var _ krotov.Trajectory = (*TwoLevelTrajectory)(nil)

// ControlKey is the single control name every TwoLevelTrajectory reports.
const ControlKey krotov.ControlKey = "eps"

func (t *TwoLevelTrajectory) Dim() int { return t.Ham.H0.Dim() }

func (t *TwoLevelTrajectory) Initial() storage.State { return t.InitialState.Clone() }

func (t *TwoLevelTrajectory) Target() (storage.State, bool) {
	if t.TargetState == nil {
		return nil, false
	}
	return t.TargetState.Clone(), true
}

func (t *TwoLevelTrajectory) ControlKeys() []krotov.ControlKey {
	return []krotov.ControlKey{ControlKey}
}

func (t *TwoLevelTrajectory) Guess(krotov.ControlKey) krotov.GuessControl {
	return krotov.GuessControl{Continuous: t.GuessFunc}
}

func (t *TwoLevelTrajectory) Derivative(krotov.ControlKey) krotov.ControlDerivative {
	return krotov.ConstantMatrix(t.Ham.H1)
}

func (t *TwoLevelTrajectory) ForwardHandle(method propagator.Method) (propagator.Handle, error) {
	return NewRK4Handle(t.Ham, t.Times, method)
}

func (t *TwoLevelTrajectory) BackwardHandle(method propagator.Method) (propagator.Handle, error) {
	return NewRK4Handle(t.Ham, t.Times, method)
}

func (t *TwoLevelTrajectory) PropMethod() propagator.Method   { return "" }
func (t *TwoLevelTrajectory) FwPropMethod() propagator.Method { return "" }
func (t *TwoLevelTrajectory) BwPropMethod() propagator.Method { return "" }

func (t *TwoLevelTrajectory) Adjoint() krotov.Trajectory { return t }
