package book

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrForbidden is returned when the caller does not own the book.
	ErrForbidden = errors.New("book belongs to another user")
)

type Status string

const (
	StatusReading   Status = "Reading"
	StatusCompleted Status = "Completed"
	StatusWishlist  Status = "Wishlist"
)

func (s Status) Valid() bool {
	switch s {
	case StatusReading, StatusCompleted, StatusWishlist:
		return true
	}
	return false
}

// Source providers a book record can originate from.
const (
	SourceLocal       = "local"
	SourceOpenLibrary = "openlibrary"
	SourceGoogle      = "google"
)

// Book is a record owned by exactly one user.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Status          Status    `json:"status"`
	OwnerID         string    `json:"ownerId"`
	CoverImageURL   string    `json:"coverImageUrl"`
	Description     string    `json:"description"`
	Tags            []string  `json:"tags"`
	PopularityScore float64   `json:"popularityScore"`
	SourceProvider  string    `json:"sourceProvider"`
	ExternalID      string    `json:"externalId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Query selects one owner's books, newest first.
type Query struct {
	OwnerID string
	Status  Status
	Limit   int
	After   *CursorData
}

const (
	maxTags   = 20
	maxTagLen = 40
)

// NormalizeTags lowercases, trims and dedupes tags, keeping first occurrence order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.Join(strings.Fields(strings.ToLower(t)), " ")
		if t == "" {
			continue
		}
		if r := []rune(t); len(r) > maxTagLen {
			t = string(r[:maxTagLen])
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}
