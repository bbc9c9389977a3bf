package krotov

import "errors"

// Configuration errors (spec.md §7): all returned before iteration 0.
var (
	// ErrMissingJT is returned when no J_T functional was supplied.
	ErrMissingJT = errors.New("krotov: J_T functional is required")
	// ErrMissingChi is returned when no chi function was supplied via
	// WithChi. Deriving chi automatically from J_T is explicitly out of
	// scope for the core (spec.md §1); wire package autochi's Default
	// explicitly via WithChi when no closed-form chi is available.
	ErrMissingChi = errors.New("krotov: chi function is required (supply WithChi, e.g. autochi.Default(jt))")
	// ErrNoTrajectories is returned when the trajectory list is empty.
	ErrNoTrajectories = errors.New("krotov: at least one trajectory is required")
	// ErrTlistTooShort is returned when the time grid has fewer than two points.
	ErrTlistTooShort = errors.New("krotov: tlist must contain at least two time points")
	// ErrDuplicateControlKey is returned when a trajectory reports the
	// same ControlKey twice.
	ErrDuplicateControlKey = errors.New("krotov: trajectory reports a control key more than once")
)
