package krotov

import (
	"fmt"
	"os"

	"github.com/katalvlaran/krotov/control"
	"github.com/katalvlaran/krotov/propagator"
	"github.com/katalvlaran/krotov/storage"
)

// Workspace aggregates everything one Krotov optimisation run mutates:
// the trajectories and their adjoints, the alternating pulse buffers
// epsilon^(i)/epsilon^(i+1), the g_a integrals, the per-control pulse
// options, per-trajectory control derivatives, storages and propagator
// handles, and the parallelism flag (spec.md §3/§4.6, component C6).
//
// Construction (NewWorkspace) is pure bookkeeping — no propagation is
// performed — grounded on core.NewGraph's "construction never mutates
// anything beyond itself" convention.
type Workspace struct {
	tlist        TimeGrid
	trajectories []Trajectory
	adjoints     []Trajectory

	controlKeys  []ControlKey             // indexed by control.ID
	controlIndex map[ControlKey]control.ID
	// derivatives[trajIdx][controlID]
	derivatives [][]ControlDerivative
	pulseOpts   []control.PulseOptions // indexed by control.ID

	// buffers[0] and buffers[1] are the two pulse sets; cur/nxt name
	// which is the current read buffer and which is the write buffer.
	// They swap by index exchange (Design Notes §9), never by copying.
	buffers  [2][]control.Pulse
	cur, nxt int

	gaInt []float64 // indexed by control.ID

	forward  []propagator.Handle
	backward []propagator.Handle

	fwdStorage []storage.Storage
	bwdStorage []storage.Storage

	useThreads bool

	warnings []string
}

// NT returns the interval count of the workspace's time grid.
func (w *Workspace) NT() int { return w.tlist.NT() }

// NumControls returns the number of distinct controls (L).
func (w *Workspace) NumControls() int { return len(w.controlKeys) }

// Trajectories returns the workspace's trajectory list (not a copy; read
// only).
func (w *Workspace) Trajectories() []Trajectory { return w.trajectories }

// Warnings returns non-fatal configuration warnings surfaced during
// construction (e.g. a control silently defaulted).
func (w *Workspace) Warnings() []string { return w.warnings }

// CurrentPulses returns the current read buffer, one Pulse per control.ID.
func (w *Workspace) CurrentPulses() []control.Pulse { return w.buffers[w.cur] }

// NextPulses returns the current write buffer, one Pulse per control.ID.
func (w *Workspace) NextPulses() []control.Pulse { return w.buffers[w.nxt] }

// SwapBuffers exchanges the read/write buffer indices after a completed
// iteration (invariant I3), and resets the new write buffer to a fresh
// copy of the new read buffer so the next iteration can mutate it in
// place starting from the values just produced.
func (w *Workspace) SwapBuffers() {
	w.cur, w.nxt = w.nxt, w.cur
	for l := range w.buffers[w.nxt] {
		copy(w.buffers[w.nxt][l], w.buffers[w.cur][l])
	}
}

// keysToSlice converts a ControlKey-keyed map to a control.ID-indexed
// slice in the workspace's control order.
func (w *Workspace) keysToSlice(m map[ControlKey]control.Pulse) []control.Pulse {
	out := make([]control.Pulse, len(w.controlKeys))
	for id, key := range w.controlKeys {
		out[id] = m[key]
	}
	return out
}

// pulsesToKeys is the inverse of keysToSlice, used for Result snapshots
// and hook arguments.
func (w *Workspace) pulsesToKeys(buf []control.Pulse) map[ControlKey]control.Pulse {
	return snapshotPulses(w.controlKeys, buf)
}

// NewWorkspace performs the C6 construction steps: copy trajectories and
// build adjoints; extract the ordered control list and per-trajectory
// control derivatives; materialise pulse options; initialise the two
// pulse buffers; allocate storages; construct propagator handles by the
// method-resolution precedence of spec.md §4.6 step 6.
func NewWorkspace(trajectories []Trajectory, tlist TimeGrid, s *settings) (*Workspace, error) {
	if len(trajectories) == 0 {
		return nil, ErrNoTrajectories
	}
	if tlist.NT() < 1 {
		return nil, ErrTlistTooShort
	}

	w := &Workspace{
		tlist:        tlist,
		trajectories: append([]Trajectory(nil), trajectories...),
		controlIndex: make(map[ControlKey]control.ID),
		useThreads:   s.useThreads,
	}

	// Step 1: adjoints.
	w.adjoints = make([]Trajectory, len(w.trajectories))
	for k, traj := range w.trajectories {
		w.adjoints[k] = traj.Adjoint()
	}

	// Step 2: ordered control list + per-trajectory derivatives.
	w.derivatives = make([][]ControlDerivative, len(w.trajectories))
	for k, traj := range w.trajectories {
		seen := make(map[ControlKey]bool)
		for _, key := range traj.ControlKeys() {
			if seen[key] {
				return nil, fmt.Errorf("krotov: trajectory %d: %w", k, ErrDuplicateControlKey)
			}
			seen[key] = true
			if _, ok := w.controlIndex[key]; !ok {
				w.controlIndex[key] = control.ID(len(w.controlKeys))
				w.controlKeys = append(w.controlKeys, key)
			}
		}
	}
	for k, traj := range w.trajectories {
		derivs := make([]ControlDerivative, len(w.controlKeys))
		for _, key := range traj.ControlKeys() {
			derivs[w.controlIndex[key]] = traj.Derivative(key)
		}
		// Controls this trajectory never reported default to NoDerivative
		// (the zero value of ControlDerivative is kindAbsent).
		w.derivatives[k] = derivs
	}

	// Step 3: pulse options.
	pulseOpts, warnings, err := resolvePulseOptions(w.controlKeys, s.pulseOptions)
	if err != nil {
		return nil, err
	}
	w.pulseOpts = pulseOpts
	w.warnings = warnings
	if s.verbose {
		for _, msg := range warnings {
			fmt.Fprintln(os.Stderr, "krotov: warning:", msg)
		}
	}

	// Step 4: initial pulses, from continueFrom if present, else from
	// each trajectory's own Guess.
	nT := tlist.NT()
	if s.continueFrom != nil {
		base := s.continueFrom.OptimizedControls
		w.buffers[0] = make([]control.Pulse, len(w.controlKeys))
		for id, key := range w.controlKeys {
			p, ok := base[key]
			if !ok {
				return nil, fmt.Errorf("krotov: continue_from result has no pulse for control %d", id)
			}
			w.buffers[0][id] = p.Clone()
		}
	} else {
		w.buffers[0] = make([]control.Pulse, len(w.controlKeys))
		for k, traj := range w.trajectories {
			for _, key := range traj.ControlKeys() {
				id := w.controlIndex[key]
				if w.buffers[0][id] != nil {
					continue // already initialised from an earlier trajectory
				}
				guess := traj.Guess(key)
				var p control.Pulse
				var gerr error
				if guess.Continuous != nil {
					p = control.DiscretizeContinuous(guess.Continuous, tlist.Times)
				} else {
					p, gerr = control.DiscretizeSequence(guess.Sequence, nT)
				}
				if gerr != nil {
					return nil, fmt.Errorf("krotov: trajectory %d control %d: %w", k, id, gerr)
				}
				w.buffers[0][id] = p
			}
		}
	}
	w.buffers[1] = make([]control.Pulse, len(w.controlKeys))
	for id, p := range w.buffers[0] {
		w.buffers[1][id] = p.Clone()
	}
	w.cur, w.nxt = 0, 1

	w.gaInt = make([]float64, len(w.controlKeys))

	// Step 5: storages.
	w.fwdStorage = make([]storage.Storage, len(w.trajectories))
	w.bwdStorage = make([]storage.Storage, len(w.trajectories))
	for k, traj := range w.trajectories {
		w.fwdStorage[k] = storage.NewDense(nT+1, traj.Dim())
		w.bwdStorage[k] = storage.NewDense(nT+1, traj.Dim())
	}

	// Step 6: propagator handles, by precedence.
	w.forward = make([]propagator.Handle, len(w.trajectories))
	w.backward = make([]propagator.Handle, len(w.adjoints))
	for k, traj := range w.trajectories {
		method := propagator.Resolve(s.fwPropMethod, s.propMethod, traj.FwPropMethod(), traj.PropMethod())
		h, err := traj.ForwardHandle(method)
		if err != nil {
			return nil, fmt.Errorf("krotov: trajectory %d forward handle: %w", k, err)
		}
		w.forward[k] = h
	}
	for k, adj := range w.adjoints {
		method := propagator.Resolve(s.bwPropMethod, s.propMethod, adj.BwPropMethod(), adj.PropMethod())
		h, err := adj.BackwardHandle(method)
		if err != nil {
			return nil, fmt.Errorf("krotov: trajectory %d backward handle: %w", k, err)
		}
		w.backward[k] = h
	}

	return w, nil
}

// resolvePulseOptions materialises PulseOptions per control in workspace
// order from a caller-supplied map (spec.md §4.6 step 3). A nil map
// defaults every control with a warning; a non-nil map missing an entry
// for some control is a configuration error.
func resolvePulseOptions(keys []ControlKey, supplied map[ControlKey]control.PulseOptions) ([]control.PulseOptions, []string, error) {
	out := make([]control.PulseOptions, len(keys))
	var warnings []string
	for id, key := range keys {
		if supplied == nil {
			out[id] = control.DefaultPulseOptions()
			warnings = append(warnings, fmt.Sprintf("no pulse_options supplied; control %d defaulted to lambda_a=1, S=1, identity parametrisation", id))
			continue
		}
		opt, ok := supplied[key]
		if !ok {
			return nil, nil, fmt.Errorf("krotov: control %d: %w", id, control.ErrMissingPulseOptions)
		}
		if err := opt.Validate(); err != nil {
			return nil, nil, fmt.Errorf("krotov: control %d: %w", id, err)
		}
		out[id] = opt
	}
	return out, warnings, nil
}
