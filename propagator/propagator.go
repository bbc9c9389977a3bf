// Package propagator defines the Krotov core's only view of a time
// propagator: the four operations spec.md §4.3 requires (rebind, reinit,
// step, state) plus the "auto" method-resolution precedence spec.md
// §4.6 step 6 specifies. The core never constructs a propagator itself —
// it is handed one per trajectory, per direction, by the caller's
// trajectory type (see krotov.Trajectory) — and only ever rebinds,
// reinitialises and steps it.
package propagator

import (
	"context"

	"github.com/katalvlaran/krotov/control"
	"github.com/katalvlaran/krotov/storage"
)

// Direction distinguishes a forward propagation (t0 -> t_NT) from a
// backward one (t_NT -> t0); Reinit uses it to pick the starting end of
// the time grid.
type Direction int

const (
	// Forward advances from t0 towards t_NT.
	Forward Direction = iota
	// Backward advances from t_NT towards t0.
	Backward
)

// Bounds is the widened allowable interval [lo, hi] for one control's
// values, handed to Reinit via ReinitOptions so the propagator can
// validate pulse bounds before stepping. Per spec.md §4.3, the core
// widens the observed [min, max] of a control's guess pulse by a factor
// k=2 when Checks is requested and k=5 otherwise.
type Bounds struct {
	Lo, Hi float64
}

// WidenBounds computes Bounds from the observed [min, max] of a pulse,
// widening by k=2 if checks is true, k=5 otherwise, per spec.md §4.3:
// lo = min(min, k*min), hi = max(max, k*max). A strictly positive min (or
// strictly negative max) is left untouched rather than pulled toward
// zero, since widening only ever grows the interval.
func WidenBounds(min, max float64, checks bool) Bounds {
	k := 5.0
	if checks {
		k = 2.0
	}
	lo := min
	if min*k < lo {
		lo = min * k
	}
	hi := max
	if max*k > hi {
		hi = max * k
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return Bounds{Lo: lo, Hi: hi}
}

// ReinitOptions carries the control-range transform used by a stepper to
// validate pulse bounds, keyed by control.ID.
type ReinitOptions struct {
	Ranges map[control.ID]Bounds
	Checks bool
}

// Handle is the C3 contract: a piecewise forward/backward stepper bound
// to one trajectory and one direction. The core only ever calls these
// four methods; everything about the generator, the numerical method,
// and the state representation lives behind this interface.
type Handle interface {
	// Rebind attaches the mapping control -> pulse array the generator
	// reads its control values from for every subsequent Step, until the
	// next Rebind.
	Rebind(ctx context.Context, parameters map[control.ID]control.Pulse) error
	// Reinit resets the propagator to start stepping from dir's end of
	// the time grid, starting at initial.
	Reinit(ctx context.Context, dir Direction, initial storage.State, opts ReinitOptions) error
	// Step advances by one time interval (the current interval is
	// implicit in the handle's internal cursor) and returns the new
	// state.
	Step(ctx context.Context) (storage.State, error)
	// State borrows the latest state without advancing.
	State(ctx context.Context) storage.State
}

// Method names a propagation algorithm a Handle implementation
// understands (e.g. "rk4", "cheby", "expm"); resolution is a plain string
// so the core never needs to know which methods a given propagator
// collaborator supports.
type Method string

// Auto defers method selection entirely to the propagator collaborator.
const Auto Method = "auto"

// Resolve applies the precedence spec.md §4.6 step 6 specifies:
// caller-provided direction-specific method > caller-provided generic
// method > trajectory-attached direction-specific method >
// trajectory-attached generic method > Auto.
func Resolve(callerDirectional, callerGeneric, trajDirectional, trajGeneric Method) Method {
	for _, m := range []Method{callerDirectional, callerGeneric, trajDirectional, trajGeneric} {
		if m != "" {
			return m
		}
	}
	return Auto
}
