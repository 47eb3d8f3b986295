package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readshelf/internal/candidate"
	"readshelf/internal/platform/googlebooks"
	"readshelf/internal/platform/openlibrary"
)

type fakeProvider struct {
	name  string
	items []candidate.Candidate
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, query string, limit int) ([]candidate.Candidate, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func (f *fakeProvider) Lookup(ctx context.Context, title, author string, limit int) ([]candidate.Candidate, error) {
	return f.Search(ctx, title+" "+author, limit)
}

func ext(provider, id, title, author string) candidate.Candidate {
	return finalize(candidate.Candidate{
		Title:          title,
		Authors:        []string{author},
		SourceProvider: provider,
		ExternalID:     id,
	})
}

func TestSearcher_Search_MergesInProviderOrder(t *testing.T) {
	ol := &fakeProvider{name: "openlibrary", items: []candidate.Candidate{
		ext("openlibrary", "/works/1", "Dune", "Frank Herbert"),
		ext("openlibrary", "/works/2", "Dune Messiah", "Frank Herbert"),
		ext("openlibrary", "/works/1", "Dune", "Frank Herbert"),
	}}
	gb := &fakeProvider{name: "google", items: []candidate.Candidate{
		ext("google", "abc", "Dune", "Frank Herbert"),
	}}
	s := NewSearcher(time.Second, ol, gb)

	got := s.Search(context.Background(), "dune", 10)
	require.Len(t, got, 3)
	assert.Equal(t, "/works/1", got[0].ExternalID)
	assert.Equal(t, "/works/2", got[1].ExternalID)
	// same book from a second provider is left for the selector to collapse
	assert.Equal(t, "google", got[2].SourceProvider)
	assert.Equal(t, got[0].DedupeKey, got[2].DedupeKey)
}

func TestSearcher_Search_FailingProviderContributesNothing(t *testing.T) {
	ol := &fakeProvider{name: "openlibrary", err: errors.New("boom")}
	gb := &fakeProvider{name: "google", items: []candidate.Candidate{ext("google", "x", "Emma", "Jane Austen")}}
	s := NewSearcher(time.Second, ol, gb)

	got := s.Search(context.Background(), "austen", 5)
	require.Len(t, got, 1)
	assert.Equal(t, "Emma", got[0].Title)
}

func TestSearcher_Search_TimeoutBoundsSlowProvider(t *testing.T) {
	slow := &fakeProvider{name: "openlibrary", delay: 2 * time.Second, items: []candidate.Candidate{ext("openlibrary", "1", "A", "B")}}
	fast := &fakeProvider{name: "google", items: []candidate.Candidate{ext("google", "2", "C", "D")}}
	s := NewSearcher(50*time.Millisecond, slow, fast)

	start := time.Now()
	got := s.Search(context.Background(), "q", 5)
	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, got, 1)
	assert.Equal(t, "google", got[0].SourceProvider)
}

func TestSearcher_Search_EmptyQuery(t *testing.T) {
	p := &fakeProvider{name: "openlibrary"}
	s := NewSearcher(time.Second, p)

	got := s.Search(context.Background(), "   ", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, p.calls.Load())
}

func TestSearcher_Lookup(t *testing.T) {
	dune := ext("google", "g1", "Dune", "Frank Herbert")

	tests := []struct {
		name       string
		ol, gb     *fakeProvider
		wantSource string
		wantLen    int
		wantErr    error
	}{
		{
			name:       "first provider answers",
			ol:         &fakeProvider{name: "openlibrary", items: []candidate.Candidate{ext("openlibrary", "/w/1", "Dune", "Frank Herbert")}},
			gb:         &fakeProvider{name: "google", items: []candidate.Candidate{dune}},
			wantSource: "openlibrary",
			wantLen:    1,
		},
		{
			name:       "first empty falls through",
			ol:         &fakeProvider{name: "openlibrary"},
			gb:         &fakeProvider{name: "google", items: []candidate.Candidate{dune}},
			wantSource: "google",
			wantLen:    1,
		},
		{
			name:       "first fails falls through",
			ol:         &fakeProvider{name: "openlibrary", err: errors.New("down")},
			gb:         &fakeProvider{name: "google", items: []candidate.Candidate{dune}},
			wantSource: "google",
			wantLen:    1,
		},
		{
			name:       "empty then failure reports empty success",
			ol:         &fakeProvider{name: "openlibrary"},
			gb:         &fakeProvider{name: "google", err: errors.New("down")},
			wantSource: "openlibrary",
			wantLen:    0,
		},
		{
			name:    "all fail",
			ol:      &fakeProvider{name: "openlibrary", err: errors.New("down")},
			gb:      &fakeProvider{name: "google", err: errors.New("down")},
			wantErr: ErrAllProvidersFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSearcher(time.Second, tt.ol, tt.gb)
			source, items, err := s.Lookup(context.Background(), "Dune", "Herbert", 6)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, source)
			assert.Len(t, items, tt.wantLen)
			assert.NotNil(t, items)
		})
	}
}

func TestOpenLibraryAdapter_MapsDocs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openlibrary.SearchResponse{Docs: []openlibrary.Doc{
			{Key: "/works/OL1W", Title: "Dune", AuthorNames: []string{"Frank Herbert"}, CoverID: 7, EditionCount: 120, Subjects: []string{"Science Fiction", "Deserts"}},
			{Key: "/works/OL2W", Title: "  "},
			{Key: "/works/OL3W", Title: "Dune Study Guide", AuthorNames: []string{"Anon"}},
		}})
	}))
	t.Cleanup(srv.Close)

	p := NewOpenLibrary(openlibrary.NewClient(openlibrary.Options{BaseURL: srv.URL, RPS: 100, Timeout: time.Second}))
	got, err := p.Search(context.Background(), "dune", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	c := got[0]
	assert.Equal(t, candidate.OriginExternal, c.Origin)
	assert.Equal(t, "openlibrary", c.SourceProvider)
	assert.Equal(t, "/works/OL1W", c.ExternalID)
	assert.Equal(t, 120.0, c.PopularityScore)
	assert.Equal(t, []string{"science fiction", "deserts"}, c.Tags)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/7-L.jpg", c.CoverImageURL)
	assert.Equal(t, "dune|herbert", c.DedupeKey)
	assert.False(t, c.NonPrimary)

	assert.True(t, got[1].NonPrimary)
	assert.Equal(t, []string{}, got[1].Tags)
}

func TestGoogleBooksAdapter_MapsVolumes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "intitle:Emma inauthor:Austen", r.URL.Query().Get("q"))
		_ = json.NewEncoder(w).Encode(googlebooks.VolumesResponse{Items: []googlebooks.Volume{{
			ID: "vol1",
			VolumeInfo: googlebooks.VolumeInfo{
				Title:        "Emma",
				Authors:      []string{"Jane Austen"},
				Description:  "A novel.",
				Categories:   []string{"Fiction"},
				RatingsCount: 40,
				ImageLinks:   googlebooks.ImageLinks{Thumbnail: "http://books.google.com/x.jpg"},
				PreviewLink:  "http://books.google.com/preview",
			},
			SaleInfo: googlebooks.SaleInfo{BuyLink: "http://play.google.com/buy"},
		}}})
	}))
	t.Cleanup(srv.Close)

	p := NewGoogleBooks(googlebooks.NewClient(googlebooks.Options{BaseURL: srv.URL, RPS: 100, Timeout: time.Second}))
	got, err := p.Lookup(context.Background(), "Emma", "Austen", 6)
	require.NoError(t, err)
	require.Len(t, got, 1)

	c := got[0]
	assert.Equal(t, "google", c.SourceProvider)
	assert.Equal(t, "vol1", c.ExternalID)
	assert.Equal(t, 42.0, c.PopularityScore)
	assert.Equal(t, "https://books.google.com/x.jpg", c.CoverImageURL)
	assert.Equal(t, []string{"fiction"}, c.Tags)
	assert.Equal(t, "A novel.", c.Description)
}

func TestWithBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeProvider{name: "flaky", err: errors.New("upstream 503")}
	p := WithBreaker(inner, BreakerSettings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, ConsecutiveFailures: 2})

	for range 2 {
		_, err := p.Search(context.Background(), "q", 5)
		require.Error(t, err)
	}
	_, err := p.Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), inner.calls.Load(), "open breaker does not reach the provider")
	assert.Equal(t, "flaky", p.Name())
}

func TestWithBreaker_CanceledCallerDoesNotTrip(t *testing.T) {
	inner := &fakeProvider{name: "slow", delay: time.Second}
	p := WithBreaker(inner, BreakerSettings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, ConsecutiveFailures: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Search(ctx, "q", 5)
	require.ErrorIs(t, err, context.Canceled)

	inner.delay = 0
	_, err = p.Search(context.Background(), "q", 5)
	assert.NoError(t, err)
}
