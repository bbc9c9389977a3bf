package krotov

import (
	"context"
	"os"
	"time"

	"github.com/katalvlaran/krotov/control"
	"github.com/katalvlaran/krotov/propagator"
	"github.com/katalvlaran/krotov/report"
	"github.com/katalvlaran/krotov/storage"
)

// Optimize runs the C8 driver: build a Workspace, optionally propagate
// the initial guess forward, report iteration 0, then repeatedly call
// the iteration engine, report, and check convergence until iterStop is
// reached or a CheckConvergence hook sets Result.Converged (spec.md §4.8
// state machine: New -> optional initial forward propagation ->
// ReportIter0 -> [Iterate -> ReportIter_i -> CheckConvergence]* ->
// Finalize).
//
// A propagator error aborts the run: Optimize returns (nil, err), since
// a partially populated Result is not considered valid (spec.md §7).
func Optimize(ctx context.Context, trajectories []Trajectory, tlist TimeGrid, jt JTFunc, opts ...Option) (*Result, error) {
	if jt == nil {
		return nil, ErrMissingJT
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}
	if s.chi == nil {
		return nil, ErrMissingChi
	}

	w, err := NewWorkspace(trajectories, tlist, s)
	if err != nil {
		return nil, err
	}

	result := &Result{
		TimeGrid:       tlist,
		IterStop:       s.iterStop,
		StartLocalTime: time.Now(),
	}
	if s.continueFrom != nil {
		result.IterStart = s.continueFrom.Iter
		result.Iter = s.continueFrom.Iter
		result.GuessControls = cloneControls(s.continueFrom.OptimizedControls)
	} else {
		result.IterStart = s.iterStart
		result.Iter = s.iterStart
		result.GuessControls = w.pulsesToKeys(w.CurrentPulses())
	}

	nTraj := len(w.trajectories)
	endStates := make([]storage.State, nTraj)
	if s.skipInitialForwardPropagation {
		for k := range w.trajectories {
			endStates[k] = w.forward[k].State(ctx)
		}
	} else {
		guessParams := w.paramsFor(w.CurrentPulses())
		guessRanges := w.rangesFor(w.CurrentPulses(), true)
		err := runOverTrajectories(nTraj, w.useThreads, func(k int) error {
			h := w.forward[k]
			if err := h.Rebind(ctx, guessParams); err != nil {
				return err
			}
			if err := h.Reinit(ctx, propagator.Forward, w.trajectories[k].Initial(), propagator.ReinitOptions{Ranges: guessRanges, Checks: true}); err != nil {
				return err
			}
			phi := w.trajectories[k].Initial().Clone()
			if err := w.fwdStorage[k].Write(1, phi); err != nil {
				return err
			}
			for n := 1; n <= w.NT(); n++ {
				st, err := h.Step(ctx)
				if err != nil {
					return err
				}
				phi = st
				if err := w.fwdStorage[k].Write(n+1, st); err != nil {
					return err
				}
			}
			endStates[k] = phi
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	result.JT = jt(endStates, w.trajectories)
	result.JTPrev = result.JT
	result.TauValues = computeTau(w.trajectories, endStates)
	result.States = cloneStates(endStates)
	result.OptimizedControls = w.pulsesToKeys(w.CurrentPulses())

	reporter := report.NewDefaultReporter(os.Stdout)
	var gaPrev float64
	zeroGa := make([]float64, w.NumControls())
	if s.infoHook != nil {
		epsNow := w.pulsesToKeys(w.CurrentPulses())
		if rec := s.infoHook(w, result.Iter, epsNow, epsNow); rec != nil {
			result.Records = append(result.Records, rec)
		}
	} else {
		row := report.Row{Iter: result.Iter, JT: result.JT, JTPrev: result.JTPrev, GaInt: zeroGa, GaPrev: gaPrev, Secs: result.Secs}
		if rec := reporter.Report(row); rec != nil {
			result.Records = append(result.Records, rec)
		}
	}

	prevEnd := endStates
	for result.Iter < s.iterStop && !result.Converged {
		start := time.Now()
		outcome, err := runIteration(ctx, w, s.chi, prevEnd)
		if err != nil {
			return nil, err
		}
		elapsed := time.Since(start).Seconds()

		epsOld := w.pulsesToKeys(w.CurrentPulses())
		epsNew := w.pulsesToKeys(w.NextPulses())

		result.Iter++
		result.JTPrev = result.JT
		result.JT = jt(outcome.endStates, w.trajectories)
		result.Secs = elapsed
		result.TauValues = outcome.tau
		result.States = cloneStates(outcome.endStates)
		result.OptimizedControls = epsNew

		if s.updateHook != nil {
			s.updateHook(w, result.Iter, epsNew, epsOld)
		}
		if s.infoHook != nil {
			if rec := s.infoHook(w, result.Iter, epsNew, epsOld); rec != nil {
				result.Records = append(result.Records, rec)
			}
		} else {
			row := report.Row{Iter: result.Iter, JT: result.JT, JTPrev: result.JTPrev, GaInt: w.gaInt, GaPrev: gaPrev, Secs: result.Secs}
			if rec := reporter.Report(row); rec != nil {
				result.Records = append(result.Records, rec)
			}
			gaPrev = sumFloats(w.gaInt)
		}
		if s.checkConvergence != nil {
			s.checkConvergence(result)
		}

		w.SwapBuffers()
		prevEnd = outcome.endStates
	}

	if !result.Converged {
		result.Converged = true
		result.Message = "Reached maximum number of iterations"
	}
	result.EndLocalTime = time.Now()

	return result, nil
}

func cloneStates(in []storage.State) []storage.State {
	out := make([]storage.State, len(in))
	for i, st := range in {
		out[i] = st.Clone()
	}
	return out
}

func cloneControls(in map[ControlKey]control.Pulse) map[ControlKey]control.Pulse {
	out := make(map[ControlKey]control.Pulse, len(in))
	for k, p := range in {
		out[k] = p.Clone()
	}
	return out
}

func sumFloats(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}
