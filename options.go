package krotov

import (
	"github.com/katalvlaran/krotov/control"
	"github.com/katalvlaran/krotov/propagator"
	"github.com/katalvlaran/krotov/report"
)

// UpdateHook is invoked after the iteration engine completes an
// iteration and before the info hook; it may mutate any argument.
type UpdateHook func(wrk *Workspace, iter int, epsNew, epsOld map[ControlKey]control.Pulse)

// InfoHook formats (or records) the result of one iteration and
// optionally returns a value appended to Result.Records.
type InfoHook func(wrk *Workspace, iter int, epsNew, epsOld map[ControlKey]control.Pulse) report.Record

// CheckConvergence inspects result and may set result.Converged /
// result.Message.
type CheckConvergence func(result *Result)

// settings is the immutable, fully-resolved configuration Optimize runs
// with, built from the functional Options below. Grounded on
// builder.builderConfig / builder.newBuilderConfig.
type settings struct {
	chi                           ChiFunc
	pulseOptions                  map[ControlKey]control.PulseOptions
	iterStart                     int
	iterStop                      int
	propMethod                    propagator.Method
	fwPropMethod                  propagator.Method
	bwPropMethod                  propagator.Method
	updateHook                    UpdateHook
	infoHook                      InfoHook
	checkConvergence              CheckConvergence
	verbose                       bool
	skipInitialForwardPropagation bool
	continueFrom                  *Result
	useThreads                    bool
}

func defaultSettings() *settings {
	return &settings{
		iterStart: 0,
		iterStop:  5000,
	}
}

// Option configures Optimize. See WithChi, WithPulseOptions, WithIterStart,
// WithIterStop, WithPropMethod, WithFwPropMethod, WithBwPropMethod,
// WithUpdateHook, WithInfoHook, WithCheckConvergence, WithVerbose,
// WithSkipInitialForwardPropagation, WithContinueFrom, WithUseThreads.
type Option func(*settings)

// WithChi supplies chi = -dJ_T/d<phi|. Deriving chi automatically from
// J_T is explicitly out of scope for the core (spec.md §1); Optimize
// returns ErrMissingChi if this option is never supplied. Callers that
// want a numeric default can wire package autochi explicitly:
// WithChi(autochi.Default(jt)).
func WithChi(fn ChiFunc) Option { return func(s *settings) { s.chi = fn } }

// WithPulseOptions supplies the per-control lambda_a / update shape /
// parametrisation mapping. A control present in some trajectory but
// absent from a non-nil map is a configuration error
// (control.ErrMissingPulseOptions); a nil map falls back entirely to
// control.DefaultPulseOptions with a surfaced warning.
func WithPulseOptions(m map[ControlKey]control.PulseOptions) Option {
	return func(s *settings) { s.pulseOptions = m }
}

// WithIterStart sets the first iteration index (default 0).
func WithIterStart(n int) Option { return func(s *settings) { s.iterStart = n } }

// WithIterStop sets the last iteration index to attempt (default 5000).
func WithIterStop(n int) Option { return func(s *settings) { s.iterStop = n } }

// WithPropMethod sets the generic propagator method, lowest caller
// precedence (propagator.Resolve).
func WithPropMethod(m propagator.Method) Option { return func(s *settings) { s.propMethod = m } }

// WithFwPropMethod sets the forward-specific propagator method, highest
// caller precedence.
func WithFwPropMethod(m propagator.Method) Option { return func(s *settings) { s.fwPropMethod = m } }

// WithBwPropMethod sets the backward-specific propagator method, highest
// caller precedence.
func WithBwPropMethod(m propagator.Method) Option { return func(s *settings) { s.bwPropMethod = m } }

// WithUpdateHook installs a hook run after the iteration engine, before
// the info hook.
func WithUpdateHook(h UpdateHook) Option { return func(s *settings) { s.updateHook = h } }

// WithInfoHook installs the per-iteration reporter; default is
// report.DefaultReporter writing to os.Stdout.
func WithInfoHook(h InfoHook) Option { return func(s *settings) { s.infoHook = h } }

// WithCheckConvergence installs the convergence predicate run after every
// iteration.
func WithCheckConvergence(f CheckConvergence) Option { return func(s *settings) { s.checkConvergence = f } }

// WithVerbose toggles narrative initialisation messages (default false).
func WithVerbose(v bool) Option { return func(s *settings) { s.verbose = v } }

// WithSkipInitialForwardPropagation skips the initial forward
// propagation; iteration 0's J_T is computed from whatever state the
// forward propagators already hold (default false).
func WithSkipInitialForwardPropagation(v bool) Option {
	return func(s *settings) { s.skipInitialForwardPropagation = v }
}

// WithContinueFrom adopts a prior Result: its OptimizedControls become
// the new guess and IterStop is taken from this call's settings, not the
// prior result's.
func WithContinueFrom(r *Result) Option { return func(s *settings) { s.continueFrom = r } }

// WithUseThreads enables the fork-join regions of §5 (backward sweep
// across trajectories, forward step across trajectories). Default false
// (sequential).
func WithUseThreads(v bool) Option { return func(s *settings) { s.useThreads = v } }
