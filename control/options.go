package control

import "errors"

// ErrInvalidLambda is returned when LambdaA is not strictly positive.
var ErrInvalidLambda = errors.New("control: lambda_a must be strictly positive")

// ErrMissingPulseOptions is returned by the workspace constructor when a
// control present in some trajectory has no entry in a caller-supplied
// pulse_options mapping. Per spec.md §4.6 step 3, a missing mapping
// entirely (nil) falls back to DefaultPulseOptions with a warning instead
// of this error; only a partially-supplied mapping is an error.
var ErrMissingPulseOptions = errors.New("control: no pulse_options entry for a control present in a trajectory")

// UpdateShapeFunc is S_l(t): a nonnegative modulation of the update,
// typically vanishing at the time-grid boundaries to preserve
// switch-on/off behaviour of the guess pulse.
type UpdateShapeFunc func(t float64) float64

// UnitShape is the default update shape: S(t) == 1 everywhere.
func UnitShape(float64) float64 { return 1 }

// PulseOptions is the per-control tuning the workspace materialises from
// a pulse_options mapping: the step-size inverse lambda_a, the update
// shape S(t), and an optional parametrisation.
type PulseOptions struct {
	// LambdaA is the positive step-size inverse; larger values shrink
	// the per-iteration update.
	LambdaA float64
	// UpdateShape is S_l(t). Nil is treated as UnitShape.
	UpdateShape UpdateShapeFunc
	// Parametrization is the optional u<->epsilon bijection. Nil means
	// Identity, and IsParametrized() reports false.
	Parametrization Parametrization
}

// DefaultPulseOptions returns the fallback used for every control when no
// pulse_options mapping is supplied at all: lambda_a = 1, S ≡ 1, identity
// parametrisation. Per spec.md §4.6 step 3, using this default must be
// paired with a surfaced warning by the caller.
func DefaultPulseOptions() PulseOptions {
	return PulseOptions{
		LambdaA:     1,
		UpdateShape: UnitShape,
	}
}

// IsParametrized reports whether a non-identity Parametrization is in
// use; it gates the update arithmetic in the iteration engine (spec.md
// §4.7c/e).
func (o PulseOptions) IsParametrized() bool {
	_, isIdentity := o.Parametrization.(Identity)
	return o.Parametrization != nil && !isIdentity
}

// param returns the effective Parametrization, defaulting to Identity.
func (o PulseOptions) param() Parametrization {
	if o.Parametrization == nil {
		return Identity{}
	}
	return o.Parametrization
}

// UOfEps, EpsOfU and DEpsDU apply the effective parametrisation,
// transparently defaulting to Identity.
func (o PulseOptions) UOfEps(eps float64) float64 { return o.param().UOfEps(eps) }
func (o PulseOptions) EpsOfU(u float64) float64    { return o.param().EpsOfU(u) }
func (o PulseOptions) DEpsDU(u float64) float64    { return o.param().DEpsDU(u) }

// Shape evaluates the effective update shape, defaulting to UnitShape.
func (o PulseOptions) Shape(t float64) float64 {
	if o.UpdateShape == nil {
		return UnitShape(t)
	}
	return o.UpdateShape(t)
}

// Validate checks that o holds a usable combination of fields.
func (o PulseOptions) Validate() error {
	if o.LambdaA <= 0 {
		return ErrInvalidLambda
	}
	return nil
}
