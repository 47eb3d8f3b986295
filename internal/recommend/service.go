package recommend

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"readshelf/internal/book"
	"readshelf/internal/candidate"
	"readshelf/internal/catalog"
	"readshelf/internal/logging"
	"readshelf/internal/metrics"
)

// Source labels tell the client which strategy produced a result.
const (
	SourceGuest      = "external-popular-guest"
	SourceEmpty      = "external-popular-empty"
	SourceHybrid     = "item-cf+hybrid-diversified"
	SourceInterleave = "external-derived-multi-interleaved"
)

const (
	topTagCount         = 3
	combinedAuthorCount = 3
	fallbackTitleTokens = 4
)

// Result is the recommendation response body.
type Result struct {
	Source          string                `json:"source"`
	Recommendations []candidate.Candidate `json:"recommendations"`
	Count           int                   `json:"count"`
}

// request is the per-call state the strategies read.
type request struct {
	userID    string
	limit     int
	owned     []book.Book
	ownedErr  error
	ownedKeys map[string]struct{}
}

type strategy struct {
	name    string
	source  string
	applies func(*request) bool
	run     func(context.Context, *request) []candidate.Candidate
}

// Service picks a strategy for the caller and runs it.
type Service struct {
	cfg      Config
	catalog  catalog.Repository
	searcher Searcher
	scorer   *Scorer
	selector *Selector
	table    []strategy
}

func NewService(cfg Config, books catalog.Repository, searcher Searcher) *Service {
	s := &Service{
		cfg:      cfg,
		catalog:  books,
		searcher: searcher,
		scorer:   NewScorer(cfg),
		selector: NewSelector(cfg),
	}
	// evaluated top-down, first match wins
	s.table = []strategy{
		{
			name:    "guest",
			source:  SourceGuest,
			applies: func(r *request) bool { return r.userID == "" },
			run:     s.popular,
		},
		{
			name:    "library-unavailable",
			source:  SourceGuest,
			applies: func(r *request) bool { return r.ownedErr != nil },
			run:     s.popular,
		},
		{
			name:    "empty-library",
			source:  SourceEmpty,
			applies: func(r *request) bool { return len(r.owned) == 0 },
			run:     s.popular,
		},
		{
			name:    "hybrid",
			source:  SourceHybrid,
			applies: func(r *request) bool { return hasTags(r.owned) },
			run:     s.hybrid,
		},
		{
			name:    "interleave",
			source:  SourceInterleave,
			applies: func(*request) bool { return true },
			run:     s.interleave,
		},
	}
	return s
}

// Recommend builds a ranked list for userID; an empty userID is a guest.
// Provider and catalog failures degrade the result instead of failing the call.
func (s *Service) Recommend(ctx context.Context, userID string, limit int) (Result, error) {
	start := time.Now()
	req := &request{userID: userID, limit: s.cfg.ClampLimit(limit)}

	if userID != "" {
		req.owned, req.ownedErr = s.catalog.FindByOwner(ctx, userID)
		if req.ownedErr != nil {
			logging.Ctx(ctx).Warn().Err(req.ownedErr).Msg("load library failed, serving popular picks")
		}
		req.ownedKeys = make(map[string]struct{}, len(req.owned))
		for _, b := range req.owned {
			req.ownedKeys[candidate.FromBook(b).DedupeKey] = struct{}{}
		}
	}

	for _, st := range s.table {
		if !st.applies(req) {
			continue
		}
		recs := st.run(ctx, req)
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		logging.Ctx(ctx).Info().
			Str("strategy", st.name).
			Str("source", st.source).
			Int("owned", len(req.owned)).
			Int("count", len(recs)).
			Dur("duration", time.Since(start)).
			Msg("recommendations built")
		metrics.RecordRecommendation(st.source, len(recs))

		return Result{Source: st.source, Recommendations: recs, Count: len(recs)}, nil
	}
	// the last strategy always applies
	return Result{Source: SourceGuest, Recommendations: []candidate.Candidate{}}, nil
}

func hasTags(books []book.Book) bool {
	for _, b := range books {
		if len(b.Tags) > 0 {
			return true
		}
	}
	return false
}

// searchAll runs queries concurrently and concatenates the results in query order.
func (s *Service) searchAll(ctx context.Context, queries []string, limit int) [][]candidate.Candidate {
	results := make([][]candidate.Candidate, len(queries))
	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			results[i] = s.searcher.Search(ctx, q, limit)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) popular(ctx context.Context, r *request) []candidate.Candidate {
	var pool []candidate.Candidate
	for _, items := range s.searchAll(ctx, s.cfg.SeedTerms, s.cfg.PerProviderLimit) {
		pool = append(pool, items...)
	}
	return s.selector.Select(pool, r.ownedKeys, r.limit)
}

// interleave queries per owned book and takes turns between the per-book lists.
// The round-robin order is kept so no single book fills the list.
func (s *Service) interleave(ctx context.Context, r *request) []candidate.Candidate {
	books := r.owned
	if len(books) > s.cfg.InterleaveBooks {
		books = books[:s.cfg.InterleaveBooks]
	}
	queries := make([]string, 0, len(books))
	for _, b := range books {
		queries = append(queries, strings.TrimSpace(b.Title+" "+b.Author))
	}

	perBook := s.searchAll(ctx, queries, s.cfg.PerProviderLimit)
	seen := make(map[string]struct{})
	for i, items := range perBook {
		perBook[i] = takeFresh(items, r.ownedKeys, seen, s.cfg.InterleavePerBook)
	}

	var pool []candidate.Candidate
	for round := 0; round < s.cfg.InterleavePerBook; round++ {
		for _, items := range perBook {
			if round < len(items) {
				pool = append(pool, items[round])
			}
		}
	}

	if len(pool) < r.limit {
		if q := combinedAuthors(r.owned); q != "" {
			pool = append(pool, s.searcher.Search(ctx, q, s.cfg.PerProviderLimit)...)
		}
	}
	return s.selector.Arrange(pool, r.ownedKeys, r.limit)
}

// takeFresh returns up to n items not owned and not already taken by an earlier book.
func takeFresh(items []candidate.Candidate, owned, seen map[string]struct{}, n int) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, n)
	for _, c := range items {
		if len(out) == n {
			break
		}
		if _, ok := owned[c.DedupeKey]; ok {
			continue
		}
		if _, ok := seen[c.DedupeKey]; ok {
			continue
		}
		seen[c.DedupeKey] = struct{}{}
		out = append(out, c)
	}
	return out
}

func combinedAuthors(books []book.Book) string {
	var authors []string
	seen := make(map[string]struct{})
	for _, b := range books {
		a := strings.TrimSpace(b.Author)
		key := candidate.NormalizeAuthor(a)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		authors = append(authors, a)
		if len(authors) == combinedAuthorCount {
			break
		}
	}
	return strings.Join(authors, " ")
}

// hybrid scores other readers' books that share a tag with the library and
// tops up from the providers when the catalog is thin.
func (s *Service) hybrid(ctx context.Context, r *request) []candidate.Candidate {
	tags := libraryTags(r.owned)

	books, err := s.catalog.FindByTagsExcludingOwner(ctx, tags, r.userID, s.cfg.CatalogPoolSize)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("catalog query failed, using external candidates only")
		books = nil
	}

	local := make([]candidate.Candidate, 0, len(books))
	maxPop := 0.0
	for _, c := range candidate.FromBooks(books) {
		if _, owned := r.ownedKeys[c.DedupeKey]; owned {
			continue
		}
		maxPop = max(maxPop, c.PopularityScore)
		local = append(local, c)
	}
	lib := NewLibrary(r.owned)
	for i := range local {
		local[i].Score = s.scorer.Score(lib, local[i], maxPop)
	}

	recs := s.selector.Select(local, r.ownedKeys, r.limit)
	if len(recs) >= min(s.cfg.MinLocalResults, r.limit) {
		return recs
	}

	var external []candidate.Candidate
	if q := strings.Join(topTags(r.owned, topTagCount), " "); q != "" {
		external = s.searcher.Search(ctx, q, s.cfg.PerProviderLimit)
	}
	if len(external) == 0 {
		if q := strings.Join(libraryTitleTokens(r.owned, fallbackTitleTokens), " "); q != "" {
			external = s.searcher.Search(ctx, q, s.cfg.PerProviderLimit)
		}
	}
	if len(external) == 0 {
		return recs
	}
	return s.selector.Select(append(local, external...), r.ownedKeys, r.limit)
}

// libraryTags lists every distinct tag in first-seen order.
func libraryTags(books []book.Book) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, b := range books {
		for _, t := range b.Tags {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// topTags ranks tags by frequency, ties broken by first appearance.
func topTags(books []book.Book, n int) []string {
	order := libraryTags(books)
	freq := make(map[string]int, len(order))
	for _, b := range books {
		for _, t := range b.Tags {
			freq[t]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return freq[order[i]] > freq[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func libraryTitleTokens(books []book.Book, n int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, b := range books {
		for _, w := range titleTokens(b.Title) {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
			if len(out) == n {
				return out
			}
		}
	}
	return out
}
