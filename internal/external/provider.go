// Package external fans book searches out to the metadata providers and maps
// their payloads into candidates.
package external

import (
	"context"
	"strings"

	"readshelf/internal/book"
	"readshelf/internal/candidate"
	"readshelf/internal/platform/googlebooks"
	"readshelf/internal/platform/openlibrary"
)

// Provider is one external metadata source.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]candidate.Candidate, error)
	Lookup(ctx context.Context, title, author string, limit int) ([]candidate.Candidate, error)
}

const maxTagsPerCandidate = 8

func lowerTags(in []string) []string {
	if len(in) > maxTagsPerCandidate {
		in = in[:maxTagsPerCandidate]
	}
	return book.NormalizeTags(in)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func finalize(c candidate.Candidate) candidate.Candidate {
	c.Origin = candidate.OriginExternal
	c.Authors = nonNil(c.Authors)
	c.Tags = nonNil(c.Tags)
	c.DedupeKey = candidate.DedupeKey(c)
	c.NonPrimary = candidate.IsNonPrimaryWork(c.Title)
	return c
}

// OpenLibrary adapts the Open Library client.
type OpenLibrary struct {
	client *openlibrary.Client
}

func NewOpenLibrary(client *openlibrary.Client) *OpenLibrary {
	return &OpenLibrary{client: client}
}

func (p *OpenLibrary) Name() string { return book.SourceOpenLibrary }

func (p *OpenLibrary) Search(ctx context.Context, query string, limit int) ([]candidate.Candidate, error) {
	res, err := p.client.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return mapDocs(res.Docs), nil
}

func (p *OpenLibrary) Lookup(ctx context.Context, title, author string, limit int) ([]candidate.Candidate, error) {
	res, err := p.client.SearchByTitleAuthor(ctx, title, author, limit)
	if err != nil {
		return nil, err
	}
	return mapDocs(res.Docs), nil
}

func mapDocs(docs []openlibrary.Doc) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Title) == "" {
			continue
		}
		out = append(out, finalize(candidate.Candidate{
			Title:           d.Title,
			Authors:         d.AuthorNames,
			CoverImageURL:   d.CoverURL(),
			SourceProvider:  book.SourceOpenLibrary,
			ExternalID:      d.Key,
			Tags:            lowerTags(d.Subjects),
			PopularityScore: float64(max(d.EditionCount, 0)),
		}))
	}
	return out
}

// GoogleBooks adapts the Google Books client.
type GoogleBooks struct {
	client *googlebooks.Client
}

func NewGoogleBooks(client *googlebooks.Client) *GoogleBooks {
	return &GoogleBooks{client: client}
}

func (p *GoogleBooks) Name() string { return book.SourceGoogle }

func (p *GoogleBooks) Search(ctx context.Context, query string, limit int) ([]candidate.Candidate, error) {
	res, err := p.client.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return mapVolumes(res.Items), nil
}

func (p *GoogleBooks) Lookup(ctx context.Context, title, author string, limit int) ([]candidate.Candidate, error) {
	res, err := p.client.SearchByTitleAuthor(ctx, title, author, limit)
	if err != nil {
		return nil, err
	}
	return mapVolumes(res.Items), nil
}

// googlePopularity counts ratings plus one point each for a buy and a preview link.
func googlePopularity(v googlebooks.Volume) float64 {
	score := float64(max(v.VolumeInfo.RatingsCount, 0))
	if v.SaleInfo.BuyLink != "" {
		score++
	}
	if v.VolumeInfo.PreviewLink != "" {
		score++
	}
	return score
}

func mapVolumes(items []googlebooks.Volume) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(items))
	for _, v := range items {
		if strings.TrimSpace(v.VolumeInfo.Title) == "" {
			continue
		}
		out = append(out, finalize(candidate.Candidate{
			Title:           v.VolumeInfo.Title,
			Authors:         v.VolumeInfo.Authors,
			Description:     v.VolumeInfo.Description,
			CoverImageURL:   v.CoverURL(),
			SourceProvider:  book.SourceGoogle,
			ExternalID:      v.ID,
			Tags:            lowerTags(v.VolumeInfo.Categories),
			PopularityScore: googlePopularity(v),
		}))
	}
	return out
}
