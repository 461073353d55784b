// Package shelf derives screen-level view state from the query cache: the
// reading list, a single book's detail, and search results, each with the
// mutations the screens invoke. It holds no state of its own; everything is
// recomputed from the current cache contents.
package shelf

import (
	"context"
	"errors"

	"github.com/kwalsh/bookshelf/internal/api"
	"github.com/kwalsh/bookshelf/internal/library"
	"github.com/kwalsh/bookshelf/internal/query"
)

var (
	// ErrDuplicateListItem rejects adding a book already on the list.
	ErrDuplicateListItem = errors.New("shelf: book already has a list item")
	// ErrListItemNotFound rejects mutating an item the cache never saw.
	// A missing item is a caller bug, not a condition to paper over.
	ErrListItemNotFound = errors.New("shelf: list item not in cached list")
)

// readRetries is how many extra attempts a failed read query gets.
const readRetries = 2

// Resolver composes the API client and the query cache into view state.
type Resolver struct {
	api   api.Bookshelf
	cache *query.Cache
}

// NewResolver builds a Resolver over the shared cache.
func NewResolver(client api.Bookshelf, cache *query.Cache) *Resolver {
	return &Resolver{api: client, cache: cache}
}

func (r *Resolver) readOptions() query.Options {
	return query.Options{Retry: readRetries, ShouldRetry: api.Retryable}
}

// SubscribeListItems registers interest in the user's reading list.
func (r *Resolver) SubscribeListItems(ctx context.Context, user library.User, onChange func(query.Result)) *query.Subscription {
	fetch := func(ctx context.Context) (any, error) {
		return r.api.ListItems(ctx, user.Token)
	}
	return r.cache.Subscribe(ctx, library.KeyListItems(), fetch, r.readOptions(), onChange)
}

// SubscribeBook registers interest in one book's detail entry. Search
// results seed these entries, so a book reached from search renders with no
// extra fetch.
func (r *Resolver) SubscribeBook(ctx context.Context, user library.User, bookID string, onChange func(query.Result)) *query.Subscription {
	fetch := func(ctx context.Context) (any, error) {
		return r.api.GetBook(ctx, user.Token, bookID)
	}
	return r.cache.Subscribe(ctx, library.KeyBook(bookID), fetch, r.readOptions(), onChange)
}

// SubscribeBookSearch registers interest in a search query's results. Each
// found book is also written to its own detail entry.
func (r *Resolver) SubscribeBookSearch(ctx context.Context, user library.User, queryText string, onChange func(query.Result)) *query.Subscription {
	fetch := func(ctx context.Context) (any, error) {
		books, err := r.api.SearchBooks(ctx, user.Token, queryText)
		if err != nil {
			return nil, err
		}
		for _, b := range books {
			r.cache.SetQueryData(library.KeyBook(b.ID), b)
		}
		return books, nil
	}
	return r.cache.Subscribe(ctx, library.KeyBookSearch(queryText), fetch, r.readOptions(), onChange)
}

// PrefetchBookSearch warms the empty-query search so the discover screen
// opens onto data. Called when leaving the screen.
func (r *Resolver) PrefetchBookSearch(ctx context.Context, user library.User) {
	r.cache.InvalidateKey(library.KeyBookSearch(""))
	r.SubscribeBookSearch(ctx, user, "", nil).Close()
}

// PeekBook returns the cached book for bookID without subscribing or
// fetching.
func (r *Resolver) PeekBook(bookID string) (library.Book, bool) {
	data, ok := r.cache.Get(library.KeyBook(bookID))
	if !ok {
		return library.Book{}, false
	}
	b, ok := data.(library.Book)
	return b, ok
}

// ListItemsFrom extracts the reading list from a cache snapshot.
func ListItemsFrom(res query.Result) []library.ListItem {
	if !res.HasData {
		return nil
	}
	items, _ := res.Data.([]library.ListItem)
	return items
}

// ListItemFor finds the list item whose BookID matches, by linear scan.
func ListItemFor(res query.Result, bookID string) (library.ListItem, bool) {
	for _, item := range ListItemsFrom(res) {
		if item.BookID == bookID {
			return item, true
		}
	}
	return library.ListItem{}, false
}

// BookFrom extracts a book from a cache snapshot, or the loading placeholder
// while real data is pending.
func BookFrom(res query.Result) library.Book {
	if res.HasData {
		if b, ok := res.Data.(library.Book); ok {
			return b
		}
	}
	return library.PlaceholderBook()
}

// BooksFrom extracts search results from a cache snapshot, or placeholder
// loading rows while the query is unresolved.
func BooksFrom(res query.Result) []library.Book {
	if res.HasData {
		if books, ok := res.Data.([]library.Book); ok {
			return books
		}
	}
	return library.PlaceholderBooks()
}
