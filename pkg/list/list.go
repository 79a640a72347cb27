// Package list implements the two list helpers layered on top of the check
// evaluator: list_objects (candidate enumeration + per-candidate
// check) and list_subjects (direct-subject enumeration, deliberately
// lower-power than check).
package list

import (
	"context"

	"github.com/relauth/relauth/pkg/check"
	"github.com/relauth/relauth/pkg/store"
	"github.com/relauth/relauth/pkg/tuple"
)

// Objects runs check.Check against every candidate object id of objectType
// and returns the ids that pass, in the store's iteration order.
//
// Checks here run concurrently because the check evaluator is pure;
// Objects takes advantage of that by fanning candidates out across a
// bounded worker pool rather than checking them one at a time.
func Objects(ctx context.Context, s store.Store, checker *check.Checker, objectType, relation, subjectType, subjectID string, opts check.Options) ([]string, error) {
	candidates, err := s.ListCandidateObjectIDs(ctx, objectType)
	if err != nil {
		return nil, err
	}

	const maxWorkers = 8
	workers := maxWorkers
	if len(candidates) < workers {
		workers = len(candidates)
	}
	if workers == 0 {
		return nil, nil
	}

	type outcome struct {
		index int
		ok    bool
		err   error
	}

	jobs := make(chan int)
	results := make(chan outcome, len(candidates))

	for w := 0; w < workers; w++ {
		go func() {
			for i := range jobs {
				ok, err := checker.Check(ctx, check.Request{
					ObjectType: objectType, ObjectID: candidates[i], Relation: relation,
					SubjectType: subjectType, SubjectID: subjectID,
				}, opts)
				results <- outcome{index: i, ok: ok, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range candidates {
			jobs <- i
		}
	}()

	passed := make([]bool, len(candidates))
	for range candidates {
		r := <-results
		if r.err != nil {
			return nil, r.err
		}
		passed[r.index] = r.ok
	}

	out := make([]string, 0, len(candidates))
	for i, id := range candidates {
		if passed[i] {
			out = append(out, id)
		}
	}
	return out, nil
}

// Subjects returns the direct subjects of (objectType, objectID, relation)
// as stored -- it does NOT expand through rewrites or usersets. This is
// explicitly a lower-power operation than check.
func Subjects(ctx context.Context, s store.Store, objectType, objectID, relation string) ([]tuple.SubjectRef, error) {
	return s.ListDirectSubjects(ctx, objectType, objectID, relation)
}
