package krotov

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/krotov/control"
	"github.com/katalvlaran/krotov/propagator"
	"github.com/katalvlaran/krotov/storage"
)

// fakeHandle is a no-op propagator.Handle used to exercise Workspace
// construction and bookkeeping without any real numerics.
type fakeHandle struct {
	dim   int
	state storage.State
}

func newFakeHandle(dim int) *fakeHandle { return &fakeHandle{dim: dim} }

func (h *fakeHandle) Rebind(context.Context, map[control.ID]control.Pulse) error { return nil }

func (h *fakeHandle) Reinit(_ context.Context, _ propagator.Direction, initial storage.State, _ propagator.ReinitOptions) error {
	h.state = initial.Clone()
	return nil
}

func (h *fakeHandle) Step(context.Context) (storage.State, error) { return h.state.Clone(), nil }

func (h *fakeHandle) State(context.Context) storage.State { return h.state.Clone() }

// fakeTrajectory is a minimal krotov.Trajectory for unit tests: a fixed
// dimension, configurable control keys, and derivatives supplied by the
// caller.
type fakeTrajectory struct {
	dim     int
	initial storage.State
	target  storage.State
	keys    []ControlKey
	derivs  map[ControlKey]ControlDerivative
}

func (t *fakeTrajectory) Dim() int                { return t.dim }
func (t *fakeTrajectory) Initial() storage.State  { return t.initial.Clone() }
func (t *fakeTrajectory) Target() (storage.State, bool) {
	if t.target == nil {
		return nil, false
	}
	return t.target.Clone(), true
}
func (t *fakeTrajectory) ControlKeys() []ControlKey { return t.keys }
func (t *fakeTrajectory) Guess(ControlKey) GuessControl {
	return GuessControl{Sequence: make([]float64, 4)}
}
func (t *fakeTrajectory) Derivative(key ControlKey) ControlDerivative { return t.derivs[key] }
func (t *fakeTrajectory) ForwardHandle(propagator.Method) (propagator.Handle, error) {
	return newFakeHandle(t.dim), nil
}
func (t *fakeTrajectory) BackwardHandle(propagator.Method) (propagator.Handle, error) {
	return newFakeHandle(t.dim), nil
}
func (t *fakeTrajectory) PropMethod() propagator.Method   { return "" }
func (t *fakeTrajectory) FwPropMethod() propagator.Method { return "" }
func (t *fakeTrajectory) BwPropMethod() propagator.Method { return "" }
func (t *fakeTrajectory) Adjoint() Trajectory             { return t }

func testTimeGrid() TimeGrid {
	return TimeGrid{Times: []float64{0, 0.25, 0.5, 0.75, 1.0}}
}

func TestNewWorkspaceAssignsStableControlIDsInFirstSeenOrder(t *testing.T) {
	traj0 := &fakeTrajectory{
		dim: 2, initial: storage.State{1, 0},
		keys:   []ControlKey{"b", "a"},
		derivs: map[ControlKey]ControlDerivative{"b": NoDerivative(), "a": NoDerivative()},
	}
	traj1 := &fakeTrajectory{
		dim: 2, initial: storage.State{0, 1},
		keys:   []ControlKey{"c", "a"},
		derivs: map[ControlKey]ControlDerivative{"c": NoDerivative(), "a": NoDerivative()},
	}

	w, err := NewWorkspace([]Trajectory{traj0, traj1}, testTimeGrid(), defaultSettings())
	require.NoError(t, err)

	assert.Equal(t, []ControlKey{"b", "a", "c"}, w.controlKeys)
	assert.Equal(t, control.ID(0), w.controlIndex["b"])
	assert.Equal(t, control.ID(1), w.controlIndex["a"])
	assert.Equal(t, control.ID(2), w.controlIndex["c"])
}

func TestNewWorkspaceRejectsDuplicateControlKey(t *testing.T) {
	traj := &fakeTrajectory{
		dim: 2, initial: storage.State{1, 0},
		keys:   []ControlKey{"a", "a"},
		derivs: map[ControlKey]ControlDerivative{"a": NoDerivative()},
	}
	_, err := NewWorkspace([]Trajectory{traj}, testTimeGrid(), defaultSettings())
	assert.ErrorIs(t, err, ErrDuplicateControlKey)
}

func TestNewWorkspaceRejectsEmptyTrajectoryList(t *testing.T) {
	_, err := NewWorkspace(nil, testTimeGrid(), defaultSettings())
	assert.ErrorIs(t, err, ErrNoTrajectories)
}

func TestNewWorkspaceRejectsTooShortTimeGrid(t *testing.T) {
	traj := &fakeTrajectory{dim: 2, initial: storage.State{1, 0}}
	_, err := NewWorkspace([]Trajectory{traj}, TimeGrid{Times: []float64{0}}, defaultSettings())
	assert.ErrorIs(t, err, ErrTlistTooShort)
}

func TestNewWorkspaceMissingPulseOptionsIsConfigError(t *testing.T) {
	traj := &fakeTrajectory{
		dim: 2, initial: storage.State{1, 0},
		keys:   []ControlKey{"a"},
		derivs: map[ControlKey]ControlDerivative{"a": NoDerivative()},
	}
	s := defaultSettings()
	s.pulseOptions = map[ControlKey]control.PulseOptions{} // present but missing "a"
	_, err := NewWorkspace([]Trajectory{traj}, testTimeGrid(), s)
	assert.ErrorIs(t, err, control.ErrMissingPulseOptions)
}

func TestWorkspaceSwapBuffersExchangesAndResyncs(t *testing.T) {
	traj := &fakeTrajectory{
		dim: 2, initial: storage.State{1, 0},
		keys:   []ControlKey{"a"},
		derivs: map[ControlKey]ControlDerivative{"a": NoDerivative()},
	}
	w, err := NewWorkspace([]Trajectory{traj}, testTimeGrid(), defaultSettings())
	require.NoError(t, err)

	w.NextPulses()[0][0] = 42
	w.SwapBuffers()

	assert.Equal(t, 42.0, w.CurrentPulses()[0][0])
	assert.Equal(t, 42.0, w.NextPulses()[0][0], "write buffer resyncs to the new read buffer")
}
