package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kwalsh/bookshelf/internal/api"
	"github.com/kwalsh/bookshelf/internal/library"
	"github.com/kwalsh/bookshelf/internal/query"
	"github.com/kwalsh/bookshelf/internal/shelf"
)

func TestGetTheme(t *testing.T) {
	if got := GetTheme("Paper").Name; got != "Paper" {
		t.Fatalf("GetTheme(Paper) = %s", got)
	}
	if got := GetTheme("NoSuchTheme").Name; got != "Dracula" {
		t.Fatalf("GetTheme(unknown) = %s, want first theme", got)
	}
}

func TestNextTheme_Cycles(t *testing.T) {
	name := "Dracula"
	seen := map[string]bool{}
	for i := 0; i < len(themes); i++ {
		name = NextTheme(name)
		if seen[name] {
			t.Fatalf("theme %s repeated before full cycle", name)
		}
		seen[name] = true
	}
	if name != "Dracula" {
		t.Fatalf("cycle ended at %s, want back at start", name)
	}
	if got := NextTheme("NoSuchTheme"); got != "Dracula" {
		t.Fatalf("NextTheme(unknown) = %s, want first theme", got)
	}
}

func TestWrap(t *testing.T) {
	got := wrap("alpha beta gamma delta epsilon", 20)
	want := "alpha beta gamma\ndelta epsilon"
	if got != want {
		t.Fatalf("wrap = %q, want %q", got, want)
	}
	// Narrow widths clamp to a readable minimum.
	if got := wrap("alpha beta gamma delta epsilon", 1); got != want {
		t.Fatalf("clamped wrap = %q, want %q", got, want)
	}
	if got := wrap("", 40); got != "" {
		t.Fatalf("wrap of empty = %q", got)
	}
}

func TestSyncSynopsis_FillsPersistedViewport(t *testing.T) {
	cache := query.New(query.Options{})
	book := library.Book{
		ID:       "bk1",
		Title:    "The Voyage",
		Synopsis: "An island expedition charts unknown reefs.",
	}
	cache.SetQueryData(library.KeyBook(book.ID), book, query.WithStaleTime(time.Hour))
	resolver := shelf.NewResolver(nil, cache)

	m := New(Options{Resolver: resolver})
	m.bookID = book.ID
	m.bookSub = resolver.SubscribeBook(context.Background(), library.User{}, book.ID, nil)
	defer m.bookSub.Close()
	m.synopsis.Width = 60
	m.synopsis.Height = 6

	m = m.syncSynopsis()
	if got := m.synopsis.View(); !strings.Contains(got, "island") {
		t.Fatalf("viewport content = %q, want the synopsis in it", got)
	}
}

func TestStars(t *testing.T) {
	st := GetTheme("Dracula").Styles()
	for rating, filled := range map[int]int{1: 1, 3: 3, 5: 5, 9: 5} {
		got := stars(rating, st)
		if n := strings.Count(got, "★"); n != filled {
			t.Errorf("stars(%d) filled = %d, want %d", rating, n, filled)
		}
		if n := strings.Count(got, "★") + strings.Count(got, "☆"); n != 5 {
			t.Errorf("stars(%d) total = %d, want 5", rating, n)
		}
	}
	if got := stars(-1, st); !strings.Contains(got, "unrated") {
		t.Fatalf("stars(-1) = %q", got)
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Fatalf("padRight = %q", got)
	}
	// Oversized input still gets a separating space.
	if got := padRight("abcdef", 3); got != "abcdef " {
		t.Fatalf("padRight oversized = %q", got)
	}
}

func TestErrMessage(t *testing.T) {
	if got := errMessage(nil); got != "" {
		t.Fatalf("errMessage(nil) = %q", got)
	}
	wrapped := errors.Join(errors.New("outer"), &api.Error{StatusCode: 400, Message: "invalid credentials"})
	if got := errMessage(wrapped); got != "invalid credentials" {
		t.Fatalf("errMessage = %q, want server message surfaced", got)
	}
	if got := errMessage(errors.New("plain")); got != "plain" {
		t.Fatalf("errMessage = %q", got)
	}
}
