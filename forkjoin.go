package krotov

import "golang.org/x/sync/errgroup"

// runOverTrajectories executes fn(k) for k = 0..n-1, either sequentially
// (useThreads == false) or on a worker-pool fork-join barrier
// (useThreads == true), per spec.md §5: "two fork-join points exist at
// which work over trajectories may run on a worker pool... every
// parallel region is a barrier". Both paths iterate in the same
// ascending index order, so any reduction fn performs over a shared,
// pre-sized accumulator indexed by k is deterministic regardless of
// useThreads — this is the answer to §5's "the implementation must
// document whether this reduction is deterministic" requirement.
//
// Grounded on agbruneau-FibFastDoubling's errgroup.WithContext fan-out
// (cmd/fibcalc/main.go), simplified to errgroup.Group's zero value since
// the core never cancels on context (spec.md §5: "Cancellation: none at
// the core level").
func runOverTrajectories(n int, useThreads bool, fn func(k int) error) error {
	if !useThreads {
		for k := 0; k < n; k++ {
			if err := fn(k); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	for k := 0; k < n; k++ {
		k := k
		g.Go(func() error { return fn(k) })
	}
	return g.Wait()
}
