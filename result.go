package krotov

import (
	"time"

	"github.com/katalvlaran/krotov/control"
	"github.com/katalvlaran/krotov/report"
	"github.com/katalvlaran/krotov/storage"
)

// Result is the mutable accumulator of iteration index, timings,
// current/previous J_T, tau-values, guess and optimised pulses, terminal
// states, free-form records, and the convergence flag/message (spec.md
// §4.5). It carries everything needed to restart an optimisation via
// WithContinueFrom.
type Result struct {
	TimeGrid  TimeGrid
	IterStart int
	IterStop  int
	// Iter is monotone-nondecreasing (invariant I6).
	Iter int
	// Secs is the wall-clock duration of the last completed iteration.
	Secs float64
	// TauValues holds per-trajectory complex overlaps <target|phi(T)>,
	// overwritten every iteration right after the backward sweep's chi_T
	// computation (see DESIGN.md Open Questions #2); the entry of a
	// trajectory with no target is 0.
	TauValues []complex128
	JT        float64
	JTPrev    float64
	// GuessControls is a snapshot of the pulses at iteration 0 (or, when
	// continuing, the prior result's OptimizedControls).
	GuessControls map[ControlKey]control.Pulse
	// OptimizedControls is mutated every iteration to the current read
	// buffer's contents.
	OptimizedControls map[ControlKey]control.Pulse
	// States holds the forward end-states after the last completed
	// forward sweep, deep-copied after every iteration (DESIGN.md Open
	// Questions #1).
	States []storage.State

	StartLocalTime time.Time
	EndLocalTime   time.Time

	// Records is the free-form per-iteration data the info hook returns.
	Records []report.Record

	Converged bool
	Message   string
}

// snapshotPulses copies buf (indexed by control.ID) into a ControlKey ->
// Pulse map using keys, for GuessControls/OptimizedControls.
func snapshotPulses(keys []ControlKey, buf []control.Pulse) map[ControlKey]control.Pulse {
	out := make(map[ControlKey]control.Pulse, len(keys))
	for id, key := range keys {
		out[key] = buf[id].Clone()
	}
	return out
}
