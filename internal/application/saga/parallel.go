package saga

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Parallel folds independent members into one step. Every member's
// forward runs concurrently and all are awaited, even after one fails.
// The inverse undoes every member whose forward succeeded, plus failed
// members marked CompensateOnFailure, in reverse finish order, and joins
// their errors.
func Parallel(name string, members ...Step) Step {
	var (
		mu   sync.Mutex
		done []Step
	)

	forward := func(ctx context.Context) error {
		var g errgroup.Group
		for _, m := range members {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("%s: %w", m.Name, err)
				}
				err := m.Forward(ctx)
				if err == nil || m.CompensateOnFailure {
					mu.Lock()
					done = append(done, m)
					mu.Unlock()
				}
				if err != nil {
					return fmt.Errorf("%s: %w", m.Name, err)
				}
				return nil
			})
		}
		return g.Wait()
	}

	inverse := func(ctx context.Context) error {
		mu.Lock()
		undo := append([]Step(nil), done...)
		mu.Unlock()

		var errs []error
		for i := len(undo) - 1; i >= 0; i-- {
			if undo[i].Inverse == nil {
				continue
			}
			if err := undo[i].Inverse(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", undo[i].Name, err))
			}
		}
		return errors.Join(errs...)
	}

	return Step{
		Name:                name,
		Forward:             forward,
		Inverse:             inverse,
		CompensateOnFailure: true,
	}
}
