package library

import (
	"fmt"
	"hash/fnv"
	"time"
)

// ListItem is one entry on a user's reading list.
type ListItem struct {
	ID         string     `json:"id"`
	BookID     string     `json:"bookId"`
	OwnerID    string     `json:"ownerId"`
	Rating     int        `json:"rating"` // -1 means unrated, otherwise 1..5
	Notes      string     `json:"notes"`
	StartDate  time.Time  `json:"startDate"`
	FinishDate *time.Time `json:"finishDate"` // nil while still reading

	// Book is the expanded book record the server attaches to reads.
	// Absent on optimistic items created client-side.
	Book *Book `json:"book,omitempty"`
}

// Finished reports whether the item has been marked read.
func (li ListItem) Finished() bool {
	return li.FinishDate != nil
}

// ListItemID derives the item id from its owning (book, user) pair. The id
// is deterministic so a user can hold at most one item per book; creating a
// second item for the same pair collides on the server.
func ListItemID(bookID, ownerID string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(bookID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(ownerID))
	return fmt.Sprintf("%016x", h.Sum64())
}

// ListItemPatch is a partial update with named optional fields. Nil fields
// are left untouched; ClearFinishDate unsets FinishDate (mark unread) and
// wins over a FinishDate value.
type ListItemPatch struct {
	Rating          *int       `json:"rating,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	FinishDate      *time.Time `json:"finishDate,omitempty"`
	ClearFinishDate bool       `json:"clearFinishDate,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p ListItemPatch) IsZero() bool {
	return p.Rating == nil && p.Notes == nil && p.StartDate == nil &&
		p.FinishDate == nil && !p.ClearFinishDate
}

// Apply merges the patch into a copy of the item.
func (li ListItem) Apply(p ListItemPatch) ListItem {
	out := li
	if p.Rating != nil {
		out.Rating = *p.Rating
	}
	if p.Notes != nil {
		out.Notes = *p.Notes
	}
	if p.StartDate != nil {
		out.StartDate = *p.StartDate
	}
	switch {
	case p.ClearFinishDate:
		out.FinishDate = nil
	case p.FinishDate != nil:
		t := *p.FinishDate
		out.FinishDate = &t
	}
	return out
}
