package recommend

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readshelf/internal/candidate"
)

func extCand(title, author, cover string, pop float64) candidate.Candidate {
	c := candidate.Candidate{
		Title:           title,
		Authors:         []string{author},
		CoverImageURL:   cover,
		SourceProvider:  "openlibrary",
		PopularityScore: pop,
		Origin:          candidate.OriginExternal,
		Tags:            []string{},
	}
	c.DedupeKey = candidate.DedupeKey(c)
	c.NonPrimary = candidate.IsNonPrimaryWork(title)
	return c
}

func TestSelect_DuplicateEditionsKeepCover(t *testing.T) {
	a := extCand("1984", "George Orwell", "", 0)
	b := extCand("1984 (Signet Classics)", "George Orwell", "http://covers.test/1984.jpg", 0)
	b.SourceProvider = "google"

	got := NewSelector(DefaultConfig()).Select([]candidate.Candidate{a, b}, nil, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "http://covers.test/1984.jpg", got[0].CoverImageURL)
	assert.Equal(t, "google", got[0].SourceProvider)
}

func TestSelect_CollapsePriority(t *testing.T) {
	sel := NewSelector(DefaultConfig())

	t.Run("higher popularity when covers tie", func(t *testing.T) {
		got := sel.Select([]candidate.Candidate{
			extCand("Emma", "Jane Austen", "", 3),
			extCand("Emma [Annotated Edition]", "Jane Austen", "", 9),
		}, nil, 5)
		require.Len(t, got, 1)
		assert.Equal(t, 9.0, got[0].PopularityScore)
	})

	t.Run("local origin on full tie", func(t *testing.T) {
		local := extCand("Emma", "Jane Austen", "", 3)
		local.Origin = candidate.OriginLocal
		local.BookID = "b-1"
		got := sel.Select([]candidate.Candidate{extCand("Emma", "Jane Austen", "", 3), local}, nil, 5)
		require.Len(t, got, 1)
		assert.Equal(t, "b-1", got[0].BookID)
	})
}

func TestSelect_ExcludesOwnedKeys(t *testing.T) {
	owned := extCand("Dune", "Frank Herbert", "", 0)
	exclude := map[string]struct{}{owned.DedupeKey: {}}

	got := NewSelector(DefaultConfig()).Select([]candidate.Candidate{
		extCand("Dune (40th Anniversary Edition)", "Frank Herbert", "http://c/1.jpg", 500),
		extCand("Neuromancer", "William Gibson", "", 1),
	}, exclude, 10)

	require.Len(t, got, 1)
	assert.Equal(t, "Neuromancer", got[0].Title)
}

func TestSelect_AuthorCap(t *testing.T) {
	var cands []candidate.Candidate
	for i, title := range []string{"Emma", "Persuasion", "Mansfield Park", "Sense and Sensibility", "Lady Susan"} {
		cands = append(cands, extCand(title, "Jane Austen", "http://c/x.jpg", float64(100-i)))
	}
	cands = append(cands,
		extCand("Middlemarch", "George Eliot", "", 1),
		extCand("Ulysses", "James Joyce", "", 1),
		extCand("Dracula", "Bram Stoker", "", 1),
	)

	sel := NewSelector(DefaultConfig())

	got := sel.Select(cands, nil, 5)
	require.Len(t, got, 5)
	counts := map[string]int{}
	for _, c := range got {
		counts[candidate.NormalizeAuthor(c.PrimaryAuthor())]++
	}
	assert.Equal(t, 2, counts["jane austen"])

	t.Run("second pass fills past the cap", func(t *testing.T) {
		got := sel.Select(cands[:5], nil, 4)
		assert.Len(t, got, 4)
	})
}

func TestSelect_ConditionalNoiseFilter(t *testing.T) {
	cands := []candidate.Candidate{
		extCand("Dune Study Guide", "Cliff Notes", "http://c/1.jpg", 900),
		extCand("Neuromancer", "William Gibson", "", 5),
		extCand("Hyperion", "Dan Simmons", "", 4),
		extCand("Solaris", "Stanislaw Lem", "", 3),
	}
	sel := NewSelector(DefaultConfig())

	got := sel.Select(cands, nil, 3)
	require.Len(t, got, 3)
	for _, c := range got {
		assert.False(t, c.NonPrimary, c.Title)
	}

	got = sel.Select(cands, nil, 4)
	require.Len(t, got, 4)
	assert.Contains(t, titles(got), "Dune Study Guide")
}

func TestSelect_OrderingAndTieBreaks(t *testing.T) {
	cands := []candidate.Candidate{
		extCand("Bravo", "B Writer", "", 10),
		extCand("Alpha", "A Writer", "", 10),
		extCand("Charlie", "C Writer", "http://c/1.jpg", 10),
		extCand("Delta", "D Writer", "", 20),
	}
	got := NewSelector(DefaultConfig()).Select(cands, nil, 10)

	assert.Equal(t, []string{"Charlie", "Delta", "Alpha", "Bravo"}, titles(got))
}

func TestSelect_LocalScoresKept(t *testing.T) {
	local := extCand("Hyperion", "Dan Simmons", "", 0)
	local.Origin = candidate.OriginLocal
	local.Score = 2.5

	got := NewSelector(DefaultConfig()).Select([]candidate.Candidate{extCand("Emma", "Jane Austen", "http://c/1.jpg", 99), local}, nil, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "Hyperion", got[0].Title)
	assert.Equal(t, 2.5, got[0].Score)
}

func TestSelect_DeterministicAndNeverPads(t *testing.T) {
	cands := []candidate.Candidate{
		extCand("Emma", "Jane Austen", "", 3),
		extCand("Ubik", "Philip K. Dick", "http://c/u.jpg", 3),
		extCand("Solaris", "Stanislaw Lem", "", 7),
	}
	reversed := slices.Clone(cands)
	slices.Reverse(reversed)

	sel := NewSelector(DefaultConfig())
	first := sel.Select(cands, nil, 10)
	second := sel.Select(reversed, nil, 10)

	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Empty(t, sel.Select(cands, nil, 0))
}

func TestArrange_KeepsCallerOrder(t *testing.T) {
	cands := []candidate.Candidate{
		extCand("Neuromancer", "William Gibson", "", 1),
		extCand("Dune Study Guide", "Study Press", "http://c/g.jpg", 900),
		extCand("Count Zero", "William Gibson", "", 1),
		extCand("Mona Lisa Overdrive", "William Gibson", "", 1),
		extCand("Emma", "Jane Austen", "http://c/e.jpg", 500),
	}
	owned := map[string]struct{}{candidate.DedupeKey(cands[4]): {}}

	got := NewSelector(DefaultConfig()).Arrange(cands, owned, 4)

	// noisy works trail the clean ones, the author cap defers the third Gibson
	assert.Equal(t,
		[]string{"Neuromancer", "Count Zero", "Dune Study Guide", "Mona Lisa Overdrive"},
		titles(got))
	assert.Empty(t, NewSelector(DefaultConfig()).Arrange(cands, nil, 0))
}

func titles(cs []candidate.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Title)
	}
	return out
}
