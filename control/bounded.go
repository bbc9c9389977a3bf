package control

import "math"

// BoundedTanh is a Parametrization that confines epsilon to the open
// interval (-EpsMax, EpsMax) via u = atanh(epsilon/EpsMax), the
// parametrisation spec.md's scenario S4 exercises. EpsMax must be
// strictly positive.
type BoundedTanh struct {
	EpsMax float64
}

// UOfEps implements Parametrization.
func (b BoundedTanh) UOfEps(eps float64) float64 {
	return math.Atanh(eps / b.EpsMax)
}

// EpsOfU implements Parametrization.
func (b BoundedTanh) EpsOfU(u float64) float64 {
	return b.EpsMax * math.Tanh(u)
}

// DEpsDU implements Parametrization.
func (b BoundedTanh) DEpsDU(u float64) float64 {
	t := math.Tanh(u)
	return b.EpsMax * (1 - t*t)
}
