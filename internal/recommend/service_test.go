package recommend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readshelf/internal/book"
	"readshelf/internal/candidate"
	"readshelf/internal/catalog"
)

// fakeSearcher answers by exact query and records what it was asked.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]candidate.Candidate
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) []candidate.Candidate {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.results[query]
}

func (f *fakeSearcher) asked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.queries...)
}

func seedResults() map[string][]candidate.Candidate {
	return map[string][]candidate.Candidate{
		"popular fiction": {
			extCand("The Midnight Library", "Matt Haig", "http://c/1.jpg", 40),
			extCand("Where the Crawdads Sing", "Delia Owens", "http://c/2.jpg", 30),
		},
		"fantasy": {
			extCand("The Hobbit", "J.R.R. Tolkien", "http://c/3.jpg", 90),
		},
		"science fiction": {
			extCand("Dune", "Frank Herbert", "http://c/4.jpg", 80),
		},
	}
}

func TestService_Recommend_Guest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := catalog.NewMockRepository(ctrl)
	searcher := &fakeSearcher{results: seedResults()}
	svc := NewService(DefaultConfig(), repo, searcher)

	res, err := svc.Recommend(context.Background(), "", 0)
	require.NoError(t, err)

	assert.Equal(t, SourceGuest, res.Source)
	assert.Equal(t, 4, res.Count)
	assert.Len(t, res.Recommendations, 4)
	assert.ElementsMatch(t, DefaultConfig().SeedTerms, searcher.asked())
	assert.Equal(t, "The Hobbit", res.Recommendations[0].Title)
}

func TestService_Recommend_LibraryUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := catalog.NewMockRepository(ctrl)
	repo.EXPECT().FindByOwner(gomock.Any(), "u-1").Return(nil, errors.New("connection refused"))

	svc := NewService(DefaultConfig(), repo, &fakeSearcher{results: seedResults()})
	res, err := svc.Recommend(context.Background(), "u-1", 5)
	require.NoError(t, err)

	assert.Equal(t, SourceGuest, res.Source)
	assert.NotEmpty(t, res.Recommendations)
}

func TestService_Recommend_EmptyLibrary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := catalog.NewMockRepository(ctrl)
	repo.EXPECT().FindByOwner(gomock.Any(), "u-1").Return([]book.Book{}, nil)

	svc := NewService(DefaultConfig(), repo, &fakeSearcher{results: seedResults()})
	res, err := svc.Recommend(context.Background(), "u-1", 10)
	require.NoError(t, err)

	assert.Equal(t, SourceEmpty, res.Source)
	assert.NotEmpty(t, res.Recommendations)
	assert.Equal(t, len(res.Recommendations), res.Count)
}

func TestService_Recommend_AllProvidersEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc := NewService(DefaultConfig(), catalog.NewMockRepository(ctrl), &fakeSearcher{})

	res, err := svc.Recommend(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, SourceGuest, res.Source)
	assert.NotNil(t, res.Recommendations)
	assert.Zero(t, res.Count)
}

func scifiLibrary() []book.Book {
	return []book.Book{
		{ID: "o1", OwnerID: "u-1", Title: "Foundation", Author: "Isaac Asimov", Tags: []string{"scifi"}},
		{ID: "o2", OwnerID: "u-1", Title: "Hyperion", Author: "Dan Simmons", Tags: []string{"scifi"}},
		{ID: "o3", OwnerID: "u-1", Title: "Solaris", Author: "Stanislaw Lem", Tags: []string{"scifi"}},
	}
}

func TestService_Recommend_TagRichLibrary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := catalog.NewMockRepository(ctrl)

	pool := []book.Book{
		{ID: "c1", OwnerID: "u-2", Title: "Neuromancer", Author: "William Gibson", Tags: []string{"scifi"}, PopularityScore: 10},
		{ID: "c2", OwnerID: "u-2", Title: "Ubik", Author: "Philip Dick", Tags: []string{"scifi"}, PopularityScore: 20},
		{ID: "c3", OwnerID: "u-3", Title: "Dune", Author: "Frank Herbert", Tags: []string{"scifi"}, PopularityScore: 30},
		{ID: "c4", OwnerID: "u-3", Title: "Contact", Author: "Carl Sagan", Tags: []string{"scifi"}, PopularityScore: 40},
		{ID: "c5", OwnerID: "u-4", Title: "Anathem", Author: "Neal Stephenson", Tags: []string{"scifi"}, PopularityScore: 50},
	}
	repo.EXPECT().FindByOwner(gomock.Any(), "u-1").Return(scifiLibrary(), nil)
	repo.EXPECT().FindByTagsExcludingOwner(gomock.Any(), []string{"scifi"}, "u-1", 200).Return(pool, nil)

	searcher := &fakeSearcher{}
	svc := NewService(DefaultConfig(), repo, searcher)
	res, err := svc.Recommend(context.Background(), "u-1", 10)
	require.NoError(t, err)

	assert.Equal(t, SourceHybrid, res.Source)
	require.Len(t, res.Recommendations, 5)
	assert.Equal(t, []string{"c5", "c4", "c3", "c2", "c1"}, bookIDs(res.Recommendations))
	assert.Empty(t, searcher.asked(), "enough local results, no external supplement")
	for _, c := range res.Recommendations {
		assert.Equal(t, candidate.OriginLocal, c.Origin)
	}
}

func TestService_Recommend_HybridSupplementsFromTopTags(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := catalog.NewMockRepository(ctrl)

	library := []book.Book{
		{Title: "Foundation", Author: "Isaac Asimov", Tags: []string{"classic", "scifi"}},
		{Title: "Hyperion", Author: "Dan Simmons", Tags: []string{"scifi", "space"}},
		{Title: "Solaris", Author: "Stanislaw Lem", Tags: []string{"space", "scifi", "russian"}},
	}
	repo.EXPECT().FindByOwner(gomock.Any(), "u-1").Return(library, nil)
	repo.EXPECT().FindByTagsExcludingOwner(gomock.Any(), gomock.Any(), "u-1", 200).Return([]book.Book{
		{ID: "c1", OwnerID: "u-2", Title: "Neuromancer", Author: "William Gibson", Tags: []string{"scifi"}},
	}, nil)

	searcher := &fakeSearcher{results: map[string][]candidate.Candidate{
		"scifi space classic": {
			extCand("Foundation and Empire", "Isaac Asimov", "http://c/1.jpg", 70),
			extCand("Hyperion (Hyperion Cantos, #1)", "Dan Simmons", "http://c/2.jpg", 90),
			extCand("The Left Hand of Darkness", "Ursula K. Le Guin", "http://c/3.jpg", 60),
		},
	}}
	svc := NewService(DefaultConfig(), repo, searcher)
	res, err := svc.Recommend(context.Background(), "u-1", 10)
	require.NoError(t, err)

	assert.Equal(t, SourceHybrid, res.Source)
	assert.Equal(t, []string{"scifi space classic"}, searcher.asked())
	got := titles(res.Recommendations)
	assert.Contains(t, got, "Neuromancer")
	assert.Contains(t, got, "The Left Hand of Darkness")
	assert.NotContains(t, got, "Hyperion (Hyperion Cantos, #1)", "owned work is never recommended")
}

func TestService_Recommend_HybridCatalogFailureFallsBackToExternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := catalog.NewMockRepository(ctrl)
	repo.EXPECT().FindByOwner(gomock.Any(), "u-1").Return(scifiLibrary(), nil)
	repo.EXPECT().FindByTagsExcludingOwner(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

	searcher := &fakeSearcher{results: map[string][]candidate.Candidate{
		"foundation hyperion solaris": {extCand("Blindsight", "Peter Watts", "", 5)},
	}}
	svc := NewService(DefaultConfig(), repo, searcher)
	res, err := svc.Recommend(context.Background(), "u-1", 10)
	require.NoError(t, err)

	assert.Equal(t, SourceHybrid, res.Source)
	// tags find nothing, so title tokens are tried next
	assert.Equal(t, []string{"scifi", "foundation hyperion solaris"}, searcher.asked())
	assert.Equal(t, []string{"Blindsight"}, titles(res.Recommendations))
}

func TestService_Recommend_InterleavesUntaggedLibrary(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := catalog.NewMockRepository(ctrl)
	library := []book.Book{
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "Emma", Author: "Jane Austen"},
	}
	repo.EXPECT().FindByOwner(gomock.Any(), "u-1").Return(library, nil)

	searcher := &fakeSearcher{results: map[string][]candidate.Candidate{
		"Dune Frank Herbert": {
			extCand("Dune", "Frank Herbert", "http://c/dune.jpg", 999),
			extCand("Neuromancer", "William Gibson", "", 5),
			extCand("Foundation", "Isaac Asimov", "", 4),
			extCand("Hyperion", "Dan Simmons", "", 3),
			extCand("Solaris", "Stanislaw Lem", "", 2),
		},
		"Emma Jane Austen": {
			extCand("Persuasion", "Jane Austen", "", 5),
			extCand("Middlemarch", "George Eliot", "", 4),
		},
	}}
	svc := NewService(DefaultConfig(), repo, searcher)
	res, err := svc.Recommend(context.Background(), "u-1", 10)
	require.NoError(t, err)

	assert.Equal(t, SourceInterleave, res.Source)
	// takes turns between books; the owned Dune edition is skipped and Solaris
	// falls past the three-per-book cap
	assert.Equal(t,
		[]string{"Neuromancer", "Persuasion", "Foundation", "Middlemarch", "Hyperion"},
		titles(res.Recommendations))
	assert.Contains(t, searcher.asked(), "Frank Herbert Jane Austen", "short list backfills with a combined query")
}

func TestService_Recommend_InterleaveKeepsTurnsOverScore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := catalog.NewMockRepository(ctrl)
	repo.EXPECT().FindByOwner(gomock.Any(), "u-1").Return([]book.Book{
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "Emma", Author: "Jane Austen"},
		{Title: "Ulysses", Author: "James Joyce"},
	}, nil)

	searcher := &fakeSearcher{results: map[string][]candidate.Candidate{
		"Dune Frank Herbert": {
			extCand("Neuromancer", "William Gibson", "http://c/1.jpg", 500),
			extCand("Foundation", "Isaac Asimov", "http://c/2.jpg", 400),
			extCand("Hyperion", "Dan Simmons", "http://c/3.jpg", 300),
		},
		"Emma Jane Austen": {
			extCand("Middlemarch", "George Eliot", "", 1),
		},
		"Ulysses James Joyce": {
			extCand("Mrs Dalloway", "Virginia Woolf", "", 1),
		},
	}}
	svc := NewService(DefaultConfig(), repo, searcher)
	res, err := svc.Recommend(context.Background(), "u-1", 3)
	require.NoError(t, err)

	assert.Equal(t, SourceInterleave, res.Source)
	assert.Equal(t, []string{"Neuromancer", "Middlemarch", "Mrs Dalloway"}, titles(res.Recommendations))
}

func TestService_Recommend_HybridSimilarityBeforePopularity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := catalog.NewMockRepository(ctrl)
	repo.EXPECT().FindByOwner(gomock.Any(), "u-1").Return([]book.Book{
		{Title: "Dune", Author: "Frank Herbert", Tags: []string{"scifi", "desert"}},
	}, nil)
	repo.EXPECT().FindByTagsExcludingOwner(gomock.Any(), []string{"scifi", "desert"}, "u-1", 200).Return([]book.Book{
		{ID: "far", OwnerID: "u-2", Title: "Ubik", Author: "Philip Dick", Tags: []string{"scifi"}, PopularityScore: 100},
		{ID: "near", OwnerID: "u-3", Title: "Arrakis Rising", Author: "Kevin Anderson", Tags: []string{"scifi", "desert"}},
	}, nil)

	svc := NewService(DefaultConfig(), repo, &fakeSearcher{})
	res, err := svc.Recommend(context.Background(), "u-1", 10)
	require.NoError(t, err)

	assert.Equal(t, SourceHybrid, res.Source)
	assert.Equal(t, []string{"near", "far"}, bookIDs(res.Recommendations))
}

func TestService_Recommend_HybridSupplementRanksCoveredExternalFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := catalog.NewMockRepository(ctrl)
	repo.EXPECT().FindByOwner(gomock.Any(), "u-1").Return(scifiLibrary(), nil)
	repo.EXPECT().FindByTagsExcludingOwner(gomock.Any(), gomock.Any(), "u-1", 200).Return([]book.Book{
		{ID: "c1", OwnerID: "u-2", Title: "Neuromancer", Author: "William Gibson", Tags: []string{"scifi"}},
	}, nil)

	searcher := &fakeSearcher{results: map[string][]candidate.Candidate{
		"scifi": {
			extCand("Blindsight", "Peter Watts", "http://c/b.jpg", 5),
			extCand("Accelerando", "Charles Stross", "", 0),
		},
	}}
	svc := NewService(DefaultConfig(), repo, searcher)
	res, err := svc.Recommend(context.Background(), "u-1", 10)
	require.NoError(t, err)

	// a thin catalog is topped up; a covered provider pick leads, the local
	// match still ranks above a coverless one
	assert.Equal(t, []string{"Blindsight", "Neuromancer", "Accelerando"}, titles(res.Recommendations))
}

func TestService_Recommend_Deterministic(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := catalog.NewMockRepository(ctrl)
	repo.EXPECT().FindByOwner(gomock.Any(), "u-1").Return([]book.Book{}, nil).Times(2)

	svc := NewService(DefaultConfig(), repo, &fakeSearcher{results: seedResults()})
	first, err := svc.Recommend(context.Background(), "u-1", 10)
	require.NoError(t, err)
	second, err := svc.Recommend(context.Background(), "u-1", 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestService_Recommend_CanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	svc := NewService(DefaultConfig(), catalog.NewMockRepository(ctrl), &fakeSearcher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Recommend(ctx, "", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTopTags(t *testing.T) {
	books := []book.Book{
		{Tags: []string{"b", "a"}},
		{Tags: []string{"c", "a"}},
		{Tags: []string{"d"}},
	}
	assert.Equal(t, []string{"a", "b", "c"}, topTags(books, 3))
}

func TestConfig_ClampLimit(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.ClampLimit(0))
	assert.Equal(t, 1, cfg.ClampLimit(-4))
	assert.Equal(t, 20, cfg.ClampLimit(50))
	assert.Equal(t, 7, cfg.ClampLimit(7))
}

func bookIDs(cs []candidate.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.BookID)
	}
	return out
}

func TestCombinedAuthors(t *testing.T) {
	books := []book.Book{
		{Author: "Frank Herbert"}, {Author: "Herbert, Frank"}, {Author: ""},
		{Author: "Jane Austen"}, {Author: "Dan Simmons"}, {Author: "Isaac Asimov"},
	}
	assert.Equal(t, "Frank Herbert Jane Austen Dan Simmons", combinedAuthors(books))
	assert.True(t, strings.HasPrefix(combinedAuthors(books[:1]), "Frank"))
}
