package check

import (
	"context"
	"sync"
)

// branch is one sub-check to be reduced into a union/intersection result.
// Grounded on SpiceDB's ReduceableCheckFunc/All/Any pattern: each branch is
// a closure capturing whatever it needs, run concurrently, and reduced
// according to short-circuit semantics that must survive the fan-out.
type branch func(ctx context.Context) (bool, error)

// anyTrue runs branches concurrently and returns true as soon as one
// reports true, cancelling the rest. If none report true, it returns the
// first error encountered (if any), else false. This implements the
// "any true wins" union rule for the steps that fan out into sibling
// relations, tuple-to-userset targets, and userset-subject membership --
// and is safe to use there because those steps' order doesn't matter, only
// their disjunction.
func anyTrue(ctx context.Context, branches []branch) (bool, error) {
	if len(branches) == 0 {
		return false, nil
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		ok  bool
		err error
	}
	results := make(chan result, len(branches))

	var wg sync.WaitGroup
	for _, b := range branches {
		b := b
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := b(subCtx)
			select {
			case results <- result{ok, err}:
			case <-subCtx.Done():
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		if r.ok {
			cancel() // stop outstanding branches; their results are moot
			return true, nil
		}
	}
	return false, firstErr
}
