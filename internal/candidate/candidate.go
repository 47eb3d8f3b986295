// Package candidate holds the per-request book shape shared by the external
// providers, the local catalog and the recommendation selector, together with
// the title/author normalization used for deduplication and noise detection.
package candidate

import (
	"strings"

	"github.com/goccy/go-json"

	"readshelf/internal/book"
)

// Origin tags where a candidate came from.
type Origin string

const (
	OriginLocal    Origin = "local"
	OriginExternal Origin = "external"
)

// Candidate is a book under consideration for recommendation. It is never persisted.
type Candidate struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Description     string   `json:"description"`
	CoverImageURL   string   `json:"coverImageUrl"`
	SourceProvider  string   `json:"sourceProvider"`
	ExternalID      string   `json:"externalId"`
	Tags            []string `json:"tags"`
	PopularityScore float64  `json:"popularityScore"`

	DedupeKey  string  `json:"dedupeKey"`
	Score      float64 `json:"score"`
	Origin     Origin  `json:"origin"`
	NonPrimary bool    `json:"nonPrimary"`
	BookID     string  `json:"bookId,omitempty"`
}

// MarshalJSON never emits null for authors or tags.
func (c Candidate) MarshalJSON() ([]byte, error) {
	type alias Candidate
	a := alias(c)
	if a.Authors == nil {
		a.Authors = []string{}
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return json.Marshal(a)
}

// PrimaryAuthor is the first listed author, or "".
func (c Candidate) PrimaryAuthor() string {
	if len(c.Authors) == 0 {
		return ""
	}
	return c.Authors[0]
}

func (c Candidate) HasCover() bool {
	return strings.TrimSpace(c.CoverImageURL) != ""
}

// FromBook converts a catalog record into a local-origin candidate.
func FromBook(b book.Book) Candidate {
	c := Candidate{
		Title:           b.Title,
		Authors:         []string{},
		Description:     b.Description,
		CoverImageURL:   b.CoverImageURL,
		SourceProvider:  book.SourceLocal,
		ExternalID:      b.ExternalID,
		Tags:            append([]string{}, b.Tags...),
		PopularityScore: max(b.PopularityScore, 0),
		Origin:          OriginLocal,
		BookID:          b.ID,
	}
	if b.SourceProvider != "" {
		c.SourceProvider = b.SourceProvider
	}
	if a := strings.TrimSpace(b.Author); a != "" {
		c.Authors = []string{a}
	}
	c.DedupeKey = DedupeKey(c)
	c.NonPrimary = IsNonPrimaryWork(c.Title)
	return c
}

// FromBooks converts a slice of records, preserving order.
func FromBooks(books []book.Book) []Candidate {
	out := make([]Candidate, 0, len(books))
	for _, b := range books {
		out = append(out, FromBook(b))
	}
	return out
}
