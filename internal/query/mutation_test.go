package query

import (
	"context"
	"errors"
	"testing"

	"github.com/kwalsh/bookshelf/internal/async"
)

func TestMutate_SuccessInvalidatesKey(t *testing.T) {
	c := New(Options{StaleTime: 0})
	key := Key{Resource: "list-items"}
	c.SetQueryData(key, "before")

	var ran bool
	err := c.Mutate(context.Background(), Mutation{
		Key: key,
		OnMutate: func() (Rollback, error) {
			c.SetQueryData(key, "optimistic")
			return func() { c.SetQueryData(key, "before") }, nil
		},
		Run: func(ctx context.Context) error {
			ran = true
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if !ran {
		t.Fatal("Run never called")
	}
	data, _ := c.Get(key)
	if data != "optimistic" {
		t.Fatalf("cached data = %v, want optimistic value kept on success", data)
	}

	c.mu.Lock()
	invalid := c.entries[key].invalid
	c.mu.Unlock()
	if !invalid {
		t.Fatal("entry not invalidated after settle")
	}
}

func TestMutate_FailureRollsBackThenInvalidates(t *testing.T) {
	c := New(Options{})
	key := Key{Resource: "list-items"}
	c.SetQueryData(key, "before")

	boom := errors.New("server rejected write")
	var rollbacks int
	var onErr error
	err := c.Mutate(context.Background(), Mutation{
		Key: key,
		OnMutate: func() (Rollback, error) {
			c.SetQueryData(key, "optimistic")
			return func() {
				rollbacks++
				c.SetQueryData(key, "before")
			}, nil
		},
		Run:     func(ctx context.Context) error { return boom },
		OnError: func(err error) { onErr = err },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Mutate error = %v, want original failure", err)
	}
	if rollbacks != 1 {
		t.Fatalf("rollback calls = %d, want exactly 1", rollbacks)
	}
	if !errors.Is(onErr, boom) {
		t.Fatalf("OnError got %v, want original failure", onErr)
	}
	data, _ := c.Get(key)
	if data != "before" {
		t.Fatalf("cached data = %v, want pre-mutation snapshot", data)
	}
}

func TestMutate_OnMutateErrorAborts(t *testing.T) {
	c := New(Options{})
	key := Key{Resource: "list-items"}
	c.SetQueryData(key, "before")

	abort := errors.New("duplicate item")
	var ran, settled bool
	err := c.Mutate(context.Background(), Mutation{
		Key:       key,
		OnMutate:  func() (Rollback, error) { return nil, abort },
		Run:       func(ctx context.Context) error { ran = true; return nil },
		OnSettled: func() { settled = true },
	})
	if !errors.Is(err, abort) {
		t.Fatalf("Mutate error = %v, want OnMutate failure", err)
	}
	if ran {
		t.Fatal("Run called despite aborted mutation")
	}
	if settled {
		t.Fatal("OnSettled called despite aborted mutation")
	}
}

func TestMutate_OnSettledReplacesInvalidation(t *testing.T) {
	c := New(Options{})
	key := Key{Resource: "list-items"}
	c.SetQueryData(key, "before")

	var settled bool
	err := c.Mutate(context.Background(), Mutation{
		Key:       key,
		Run:       func(ctx context.Context) error { return nil },
		OnSettled: func() { settled = true },
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if !settled {
		t.Fatal("OnSettled never called")
	}

	c.mu.Lock()
	invalid := c.entries[key].invalid
	c.mu.Unlock()
	if invalid {
		t.Fatal("default invalidation ran despite OnSettled override")
	}
}

func TestMutate_NilRunPanics(t *testing.T) {
	c := New(Options{})
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Mutate with nil Run did not panic")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v is not an error", r)
		}
		var pre *async.PreconditionError
		if !errors.As(err, &pre) {
			t.Fatalf("panic error = %v, want precondition error", err)
		}
	}()
	c.Mutate(context.Background(), Mutation{Key: Key{Resource: "list-items"}})
}

func TestMutate_InterleavedRollbacksCompose(t *testing.T) {
	c := New(Options{})
	key := Key{Resource: "list-items"}
	c.SetQueryData(key, map[string]int{"rating": 3, "notes": 1})

	patch := func(field string, val int) (Rollback, int) {
		cur, _ := c.Get(key)
		m := cur.(map[string]int)
		prev := m[field]
		next := map[string]int{}
		for k, v := range m {
			next[k] = v
		}
		next[field] = val
		c.SetQueryData(key, next)
		return func() {
			cur, _ := c.Get(key)
			m := cur.(map[string]int)
			restored := map[string]int{}
			for k, v := range m {
				restored[k] = v
			}
			restored[field] = prev
			c.SetQueryData(key, restored)
		}, prev
	}

	// First mutation patches rating, second patches notes, then the first
	// fails and rolls back. The second's write must survive.
	rb1, _ := patch("rating", 5)
	patch("notes", 2)
	rb1()

	cur, _ := c.Get(key)
	m := cur.(map[string]int)
	if m["rating"] != 3 {
		t.Fatalf("rating = %d, want rolled back to 3", m["rating"])
	}
	if m["notes"] != 2 {
		t.Fatalf("notes = %d, want later optimistic write preserved", m["notes"])
	}
}
