package external

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"readshelf/internal/candidate"
	"readshelf/internal/logging"
)

// ErrAllProvidersFailed is returned by Lookup when no provider answered.
var ErrAllProvidersFailed = errors.New("all external providers failed")

const DefaultTimeout = 5 * time.Second

// Searcher queries every provider with the same input and merges the results.
type Searcher struct {
	providers []Provider
	timeout   time.Duration
}

func NewSearcher(timeout time.Duration, providers ...Provider) *Searcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Searcher{providers: providers, timeout: timeout}
}

// Search calls all providers concurrently. A failing provider contributes no
// results; the call itself never fails. Output keeps provider order and each
// provider's upstream order, with coarse duplicates removed.
func (s *Searcher) Search(ctx context.Context, query string, limitPerProvider int) []candidate.Candidate {
	query = strings.TrimSpace(query)
	if query == "" || limitPerProvider <= 0 {
		return []candidate.Candidate{}
	}

	results := make([][]candidate.Candidate, len(s.providers))
	var g errgroup.Group
	for i, p := range s.providers {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			items, err := p.Search(callCtx, query, limitPerProvider)
			if err != nil {
				logging.Ctx(ctx).Warn().
					Err(err).
					Str("provider", p.Name()).
					Str("query", query).
					Msg("external search failed")
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	return mergeUnique(results)
}

// Lookup asks providers one at a time and returns the first non-empty answer
// with the provider name. When every provider answered empty the first
// successful provider is reported. ErrAllProvidersFailed means none answered.
func (s *Searcher) Lookup(ctx context.Context, title, author string, limit int) (string, []candidate.Candidate, error) {
	firstOK := ""
	for _, p := range s.providers {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		items, err := p.Lookup(callCtx, title, author, limit)
		cancel()
		if err != nil {
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("provider", p.Name()).
				Str("title", title).
				Str("author", author).
				Msg("external lookup failed")
			continue
		}
		if len(items) > 0 {
			return p.Name(), mergeUnique([][]candidate.Candidate{items}), nil
		}
		if firstOK == "" {
			firstOK = p.Name()
		}
	}
	if firstOK != "" {
		return firstOK, []candidate.Candidate{}, nil
	}
	return "", nil, ErrAllProvidersFailed
}

func coarseKey(c candidate.Candidate) string {
	if c.ExternalID != "" {
		return c.SourceProvider + "|" + c.ExternalID
	}
	return c.SourceProvider + "|" + strings.ToLower(strings.TrimSpace(c.Title)) + "|" + strings.ToLower(strings.TrimSpace(c.PrimaryAuthor()))
}

func mergeUnique(lists [][]candidate.Candidate) []candidate.Candidate {
	out := []candidate.Candidate{}
	seen := make(map[string]struct{})
	for _, items := range lists {
		for _, c := range items {
			k := coarseKey(c)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
