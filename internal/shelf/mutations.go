package shelf

import (
	"context"
	"time"

	"github.com/kwalsh/bookshelf/internal/library"
	"github.com/kwalsh/bookshelf/internal/query"
)

// The mutations below all follow the same optimistic protocol: patch the
// cached reading list before the network call, roll back exactly that patch
// if the call fails, and invalidate the list once the call settles so the
// next read fetches the authoritative state.

// CreateListItem adds a book to the user's reading list. The list item id is
// derived from the (book, user) pair, so a second create for the same pair
// fails: immediately with ErrDuplicateListItem when the cached list already
// holds the book, otherwise with the server's duplicate error.
func (r *Resolver) CreateListItem(ctx context.Context, user library.User, bookID string) error {
	id := library.ListItemID(bookID, user.ID)
	provisional := library.ListItem{
		ID:        id,
		BookID:    bookID,
		OwnerID:   user.ID,
		Rating:    -1,
		StartDate: time.Now(),
	}

	return r.cache.Mutate(ctx, query.Mutation{
		Key: library.KeyListItems(),
		OnMutate: func() (query.Rollback, error) {
			var dup bool
			r.updateListItems(func(items []library.ListItem) ([]library.ListItem, bool) {
				for _, item := range items {
					if item.BookID == bookID {
						dup = true
						return nil, false
					}
				}
				return append(append([]library.ListItem{}, items...), provisional), true
			})
			if dup {
				return nil, ErrDuplicateListItem
			}
			return func() {
				r.removeCachedItem(id)
			}, nil
		},
		Run: func(ctx context.Context) error {
			_, err := r.api.CreateListItem(ctx, user.Token, bookID)
			return err
		},
	})
}

// UpdateListItem applies a partial update to one list item, optimistically.
func (r *Resolver) UpdateListItem(ctx context.Context, user library.User, itemID string, patch library.ListItemPatch) error {
	return r.cache.Mutate(ctx, query.Mutation{
		Key: library.KeyListItems(),
		OnMutate: func() (query.Rollback, error) {
			var (
				prev  library.ListItem
				found bool
			)
			r.updateListItems(func(items []library.ListItem) ([]library.ListItem, bool) {
				out := make([]library.ListItem, len(items))
				copy(out, items)
				for i := range out {
					if out[i].ID == itemID {
						prev = out[i]
						found = true
						out[i] = out[i].Apply(patch)
					}
				}
				return out, found
			})
			if !found {
				return nil, ErrListItemNotFound
			}
			return func() {
				// Restore only this item; interleaved mutations of
				// other items keep their own patches.
				r.replaceCachedItem(prev)
			}, nil
		},
		Run: func(ctx context.Context) error {
			_, err := r.api.UpdateListItem(ctx, user.Token, itemID, patch)
			return err
		},
	})
}

// RemoveListItem deletes a list item, optimistically.
func (r *Resolver) RemoveListItem(ctx context.Context, user library.User, itemID string) error {
	return r.cache.Mutate(ctx, query.Mutation{
		Key: library.KeyListItems(),
		OnMutate: func() (query.Rollback, error) {
			var (
				prev  library.ListItem
				found bool
			)
			r.updateListItems(func(items []library.ListItem) ([]library.ListItem, bool) {
				out := make([]library.ListItem, 0, len(items))
				for _, item := range items {
					if item.ID == itemID {
						prev = item
						found = true
						continue
					}
					out = append(out, item)
				}
				return out, found
			})
			if !found {
				return nil, ErrListItemNotFound
			}
			return func() {
				r.updateListItems(func(items []library.ListItem) ([]library.ListItem, bool) {
					return append(append([]library.ListItem{}, items...), prev), true
				})
			}, nil
		},
		Run: func(ctx context.Context) error {
			return r.api.RemoveListItem(ctx, user.Token, itemID)
		},
	})
}

// MarkAsRead stamps the item's finish date.
func (r *Resolver) MarkAsRead(ctx context.Context, user library.User, itemID string) error {
	now := time.Now()
	return r.UpdateListItem(ctx, user, itemID, library.ListItemPatch{FinishDate: &now})
}

// MarkAsUnread clears the item's finish date.
func (r *Resolver) MarkAsUnread(ctx context.Context, user library.User, itemID string) error {
	return r.UpdateListItem(ctx, user, itemID, library.ListItemPatch{ClearFinishDate: true})
}

// SetRating rates the item 1..5, or -1 to clear the rating.
func (r *Resolver) SetRating(ctx context.Context, user library.User, itemID string, rating int) error {
	return r.UpdateListItem(ctx, user, itemID, library.ListItemPatch{Rating: &rating})
}

// SetNotes replaces the item's notes.
func (r *Resolver) SetNotes(ctx context.Context, user library.User, itemID, notes string) error {
	return r.UpdateListItem(ctx, user, itemID, library.ListItemPatch{Notes: &notes})
}

// updateListItems applies fn to the cached reading list in one atomic
// read-modify-write, so concurrent optimistic patches never lose each
// other's writes.
func (r *Resolver) updateListItems(fn func(items []library.ListItem) ([]library.ListItem, bool)) {
	r.cache.Update(library.KeyListItems(), func(old any, ok bool) (any, bool) {
		items, _ := old.([]library.ListItem)
		next, commit := fn(items)
		if !commit {
			return nil, false
		}
		return next, true
	})
}

func (r *Resolver) replaceCachedItem(item library.ListItem) {
	r.updateListItems(func(items []library.ListItem) ([]library.ListItem, bool) {
		out := make([]library.ListItem, len(items))
		copy(out, items)
		for i := range out {
			if out[i].ID == item.ID {
				out[i] = item
			}
		}
		return out, true
	})
}

func (r *Resolver) removeCachedItem(itemID string) {
	r.updateListItems(func(items []library.ListItem) ([]library.ListItem, bool) {
		out := make([]library.ListItem, 0, len(items))
		for _, item := range items {
			if item.ID != itemID {
				out = append(out, item)
			}
		}
		return out, true
	})
}
