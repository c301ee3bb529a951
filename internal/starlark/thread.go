package starlark

import (
	"context"
	"runtime"
	"sync"

	"go.starlark.net/starlark"
	"golang.org/x/sync/errgroup"
)

// threads recycles Starlark threads between predicate evaluations.
// Predicates never print, so output is dropped.
var threads = sync.Pool{
	New: func() any {
		return &starlark.Thread{Print: func(*starlark.Thread, string) {}}
	},
}

func acquireThread(name string) *starlark.Thread {
	t := threads.Get().(*starlark.Thread)
	t.Name = name
	return t
}

func releaseThread(t *starlark.Thread) {
	t.Name = ""
	threads.Put(t)
}

// evalAll evaluates predicates with at most limit running at once and
// returns their values in input order. The first failure cancels the
// evaluations that have not started yet.
func evalAll(ctx context.Context, predicates []string, globals starlark.StringDict, limit int) ([]bool, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	values := make([]bool, len(predicates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range predicates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			thread := acquireThread("predicate")
			defer releaseThread(thread)

			v, err := evalTruth(thread, p, globals)
			values[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}
