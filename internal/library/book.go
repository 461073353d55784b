package library

import "strconv"

// Book is immutable reference data fetched by id or search query.
type Book struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	CoverImageURL string `json:"coverImageUrl"`
	Publisher     string `json:"publisher"`
	Synopsis      string `json:"synopsis"`

	// Placeholder marks the loading sentinel used while real data is
	// pending, so view code never renders from a missing book.
	Placeholder bool `json:"-"`
}

// placeholderRows is how many loading rows a pending search shows.
const placeholderRows = 10

// PlaceholderBook returns the loading sentinel for a single book slot.
func PlaceholderBook() Book {
	return Book{
		ID:          "loading-book",
		Title:       "Loading...",
		Author:      "loading...",
		Publisher:   "Loading Publishing",
		Synopsis:    "Loading...",
		Placeholder: true,
	}
}

// PlaceholderBooks returns the loading rows shown while a search is pending.
func PlaceholderBooks() []Book {
	books := make([]Book, placeholderRows)
	for i := range books {
		b := PlaceholderBook()
		b.ID = b.ID + "-" + strconv.Itoa(i)
		books[i] = b
	}
	return books
}
