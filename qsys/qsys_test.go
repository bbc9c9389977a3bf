package qsys_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/krotov"
	"github.com/katalvlaran/krotov/autochi"
	"github.com/katalvlaran/krotov/control"
	"github.com/katalvlaran/krotov/propagator"
	"github.com/katalvlaran/krotov/qsys"
	"github.com/katalvlaran/krotov/storage"
)

// flattop is the smooth turn-on/turn-off envelope spec.md §8 scenario S1
// uses for both the guess pulse and the update shape: zero outside
// [start, stop], a sin^2 ramp over the first/last tRise, unit in between.
func flattop(t, start, stop, tRise float64) float64 {
	switch {
	case t < start || t > stop:
		return 0
	case t < start+tRise:
		return math.Pow(math.Sin(math.Pi/2*(t-start)/tRise), 2)
	case t > stop-tRise:
		return math.Pow(math.Sin(math.Pi/2*(stop-t)/tRise), 2)
	default:
		return 1
	}
}

func norm(s storage.State) float64 {
	var sum float64
	for _, v := range s {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(sum)
}

func TestRK4HandleFreeEvolutionPreservesNorm(t *testing.T) {
	ham := qsys.DefaultTwoLevelHamiltonian()
	times := []float64{0, 0.1, 0.2, 0.3, 0.4}
	h, err := qsys.NewRK4Handle(ham, times, propagator.Auto)
	require.NoError(t, err)

	zeroEps := control.Pulse{0, 0, 0, 0}
	require.NoError(t, h.Rebind(context.Background(), map[control.ID]control.Pulse{0: zeroEps}))

	initial := storage.State{1, 0}
	require.NoError(t, h.Reinit(context.Background(), propagator.Forward, initial, propagator.ReinitOptions{}))

	startNorm := norm(initial)
	var last storage.State
	for i := 0; i < len(times)-1; i++ {
		st, err := h.Step(context.Background())
		require.NoError(t, err)
		last = st
	}
	assert.InDelta(t, startNorm, norm(last), 1e-6)
}

func TestRK4HandleRejectsUnsupportedMethod(t *testing.T) {
	ham := qsys.DefaultTwoLevelHamiltonian()
	_, err := qsys.NewRK4Handle(ham, []float64{0, 1}, propagator.Method("cheby"))
	assert.ErrorIs(t, err, qsys.ErrUnsupportedMethod)
}

func TestPopulationTransferJTPerfectOverlap(t *testing.T) {
	jt := qsys.PopulationTransferJT()

	traj := &qsys.TwoLevelTrajectory{
		Ham:          qsys.DefaultTwoLevelHamiltonian(),
		Times:        []float64{0, 1},
		InitialState: storage.State{1, 0},
		TargetState:  storage.State{0, 1},
	}

	value := jt([]storage.State{{0, 1}}, []krotov.Trajectory{traj})
	assert.InDelta(t, 0, value, 1e-9)
}

func TestPopulationTransferJTOrthogonal(t *testing.T) {
	jt := qsys.PopulationTransferJT()

	traj := &qsys.TwoLevelTrajectory{
		Ham:          qsys.DefaultTwoLevelHamiltonian(),
		Times:        []float64{0, 1},
		InitialState: storage.State{1, 0},
		TargetState:  storage.State{0, 1},
	}

	value := jt([]storage.State{{1, 0}}, []krotov.Trajectory{traj})
	assert.InDelta(t, 1, value, 1e-9)
}

// s1Setup builds the literal worked example of spec.md §8 scenario S1:
// a single two-level system, state-to-state transfer |0> -> |1>, with the
// flattop guess/update-shape envelope, lambda_a=5, over 500 points in
// [0, 5].
func s1Setup() (*qsys.TwoLevelTrajectory, krotov.TimeGrid, krotov.JTFunc, krotov.ChiFunc, map[krotov.ControlKey]control.PulseOptions) {
	const nT = 500
	const T = 5.0
	const tRise = 0.3

	times := make([]float64, nT+1)
	for i := range times {
		times[i] = float64(i) / float64(nT) * T
	}
	shape := func(t float64) float64 { return flattop(t, 0, T, tRise) }

	traj := &qsys.TwoLevelTrajectory{
		Ham:          qsys.DefaultTwoLevelHamiltonian(),
		Times:        times,
		InitialState: storage.State{1, 0},
		TargetState:  storage.State{0, 1},
		GuessFunc:    func(t float64) float64 { return 0.2 * shape(t) },
	}

	pulseOpts := map[krotov.ControlKey]control.PulseOptions{
		qsys.ControlKey: {LambdaA: 5, UpdateShape: shape},
	}

	return traj, krotov.TimeGrid{Times: times}, qsys.PopulationTransferJT(), qsys.PopulationTransferChi(), pulseOpts
}

func TestTwoLevelTrajectoryOptimizeConvergesToHighPopulationTransfer(t *testing.T) {
	traj, tlist, jt, chi, pulseOpts := s1Setup()

	guessResult, err := krotov.Optimize(
		context.Background(), []krotov.Trajectory{traj}, tlist, jt,
		krotov.WithChi(chi), krotov.WithIterStop(0), krotov.WithPulseOptions(pulseOpts),
	)
	require.NoError(t, err)
	initialJT := guessResult.JT

	optimized, err := krotov.Optimize(
		context.Background(), []krotov.Trajectory{traj}, tlist, jt,
		krotov.WithChi(chi), krotov.WithIterStop(50), krotov.WithPulseOptions(pulseOpts),
	)
	require.NoError(t, err)

	assert.Less(t, optimized.JT, initialJT, "J_T must decrease from the guess pulse")
	assert.Less(t, optimized.JT, 0.01, "population transfer must exceed 0.99 within 50 iterations")
	population := 1 - optimized.JT
	assert.Greater(t, population, 0.99)
}

func TestTwoLevelTrajectoryOptimizeContinuationMatchesFreshRun(t *testing.T) {
	traj, tlist, jt, chi, pulseOpts := s1Setup()

	first, err := krotov.Optimize(
		context.Background(), []krotov.Trajectory{traj}, tlist, jt,
		krotov.WithChi(chi), krotov.WithIterStop(10), krotov.WithPulseOptions(pulseOpts),
	)
	require.NoError(t, err)

	continued, err := krotov.Optimize(
		context.Background(), []krotov.Trajectory{traj}, tlist, jt,
		krotov.WithChi(chi), krotov.WithIterStop(50), krotov.WithPulseOptions(pulseOpts),
		krotov.WithContinueFrom(first),
	)
	require.NoError(t, err)
	require.Equal(t, 50, continued.Iter)

	fresh, err := krotov.Optimize(
		context.Background(), []krotov.Trajectory{traj}, tlist, jt,
		krotov.WithChi(chi), krotov.WithIterStop(50), krotov.WithPulseOptions(pulseOpts),
	)
	require.NoError(t, err)

	continuedPulse := continued.OptimizedControls[qsys.ControlKey]
	freshPulse := fresh.OptimizedControls[qsys.ControlKey]
	require.Len(t, continuedPulse, len(freshPulse))
	for i := range freshPulse {
		assert.InDelta(t, freshPulse[i], continuedPulse[i], 1e-9, "pulse value at index %d", i)
	}
}

func TestPopulationTransferChiClosedFormMatchesAutoChi(t *testing.T) {
	traj := &qsys.TwoLevelTrajectory{
		Ham:          qsys.DefaultTwoLevelHamiltonian(),
		Times:        []float64{0, 1},
		InitialState: storage.State{1, 0},
		TargetState:  storage.State{0, 1},
	}
	chi := qsys.PopulationTransferChi()
	phi := []storage.State{{0.6, 0.8i}}
	out := make([]storage.State, 1)
	chi(context.Background(), out, phi, []krotov.Trajectory{traj})
	require.Len(t, out[0], 2)

	numeric := make([]storage.State, 1)
	autochi.Default(qsys.PopulationTransferJT())(context.Background(), numeric, phi, []krotov.Trajectory{traj})
	require.Len(t, numeric[0], 2)
	for i := range out[0] {
		assert.InDelta(t, real(numeric[0][i]), real(out[0][i]), 1e-6, "real part of chi[%d]", i)
		assert.InDelta(t, imag(numeric[0][i]), imag(out[0][i]), 1e-6, "imaginary part of chi[%d]", i)
	}
}
