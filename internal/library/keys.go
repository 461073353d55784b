package library

import "github.com/kwalsh/bookshelf/internal/query"

// Cache keys for the resources the app reads. Every layer that touches the
// cache goes through these so a resource is always keyed the same way.

// KeyListItems is the user's reading list.
func KeyListItems() query.Key {
	return query.Key{Resource: "list-items"}
}

// KeyBook is one book's detail entry.
func KeyBook(bookID string) query.Key {
	return query.Key{Resource: "book", Arg: bookID}
}

// KeyBookSearch is one search query's result set.
func KeyBookSearch(q string) query.Key {
	return query.Key{Resource: "book-search", Arg: q}
}
