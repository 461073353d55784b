package query

import (
	"context"

	"github.com/kwalsh/bookshelf/internal/async"
)

// Rollback restores the pre-mutation snapshot of whatever the mutation's
// OnMutate patched. Mutate invokes it at most once, and only after the
// network call fails.
type Rollback func()

// Mutation describes one optimistic write.
//
// OnMutate must patch only the state this mutation changes and return a
// rollback that restores exactly that patch. Rollbacks then compose as a
// stack under interleaved mutations: undoing one mutation never clobbers
// another's optimistic write.
type Mutation struct {
	// Key is the entry this mutation targets. When OnSettled is nil the
	// key is invalidated once the network call settles.
	Key Key
	// OnMutate applies the optimistic patch before the network call and
	// returns its rollback. An error aborts the mutation: the network
	// call never starts and nothing is rolled back or invalidated.
	OnMutate func() (Rollback, error)
	// Run is the network call.
	Run func(ctx context.Context) error
	// OnSettled fires after Run regardless of outcome, replacing the
	// default invalidation when set.
	OnSettled func()
	// OnError fires after rollback when Run fails.
	OnError func(error)
}

// Mutate executes the optimistic update protocol: patch, call, reconcile.
// The returned error is Run's original failure, surfaced after the rollback
// has restored the pre-mutation snapshot and the entry has been invalidated.
func (c *Cache) Mutate(ctx context.Context, m Mutation) error {
	if m.Run == nil {
		panic(&async.PreconditionError{Op: "query.Mutate", Msg: "Mutation.Run must be set"})
	}

	var rollback Rollback
	if m.OnMutate != nil {
		rb, err := m.OnMutate()
		if err != nil {
			return err
		}
		rollback = rb
	}

	settled := func() {
		if m.OnSettled != nil {
			m.OnSettled()
			return
		}
		c.InvalidateKey(m.Key)
	}

	if err := m.Run(ctx); err != nil {
		if rollback != nil {
			rollback()
		}
		if m.OnError != nil {
			m.OnError(err)
		}
		settled()
		return err
	}
	settled()
	return nil
}
