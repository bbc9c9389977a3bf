// Package report implements the default per-iteration progress table (C9)
// and the Reporter contract the driver loop invokes after every
// completed iteration.
//
// The ambient logging convention here is a plain bool flag gating direct
// fmt output (see flow.FlowOptions.Verbose) rather than a
// structured-logging library. DefaultReporter has no such flag: it writes
// with fmt directly to the io.Writer it holds.
package report

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
)

// Row is the data one call to a Reporter needs: the current iteration's
// bookkeeping, ready to format or forward to a hook.
type Row struct {
	Iter    int
	JT      float64
	JTPrev  float64
	GaInt   []float64 // per-control g_a_int for this iteration
	GaPrev  float64   // Σ g_a_int from the previous iteration
	Secs    float64
}

// Record is an optional free-form tuple a Reporter may hand back for
// krotov.Result.Records to accumulate; nil means "nothing recorded".
type Record any

// Reporter formats one iteration row and optionally returns a Record to
// append to the result. It is the info_hook default implementation of
// spec.md §6/§4.8.
type Reporter interface {
	Report(row Row) Record
}

// DefaultReporter prints a fixed-width table to W, emitting a header row
// once when Iter == 0. It is stateless except for having printed the
// header.
type DefaultReporter struct {
	W           io.Writer
	headerShown bool
}

// NewDefaultReporter returns a DefaultReporter writing to w.
func NewDefaultReporter(w io.Writer) *DefaultReporter {
	return &DefaultReporter{W: w}
}

// Report implements Reporter. It returns a Record of (iter, J_T) for
// result.Records, matching the convention spec.md scenario S6 exercises.
func (r *DefaultReporter) Report(row Row) Record {
	if row.Iter == 0 && !r.headerShown {
		fmt.Fprintf(r.W, "%6s %14s %14s %14s %14s %14s %10s\n",
			"iter", "J_T", "sum(g_a)", "J", "Delta J_T", "Delta J", "secs")
		r.headerShown = true
	}

	gaSum := floats.Sum(row.GaInt)
	j := row.JT + gaSum
	jPrev := row.JTPrev + row.GaPrev
	deltaJT := row.JT - row.JTPrev
	deltaJ := j - jPrev

	fmt.Fprintf(r.W, "%6d %14.8g %14.8g %14.8g %14.8g %14.8g %10.3f\n",
		row.Iter, row.JT, gaSum, j, deltaJT, deltaJ, row.Secs)

	return Record([2]float64{float64(row.Iter), row.JT})
}
