package recommend

import (
	"strings"
	"unicode/utf8"

	"readshelf/internal/book"
	"readshelf/internal/candidate"
)

const (
	maxTitleTokens   = 10
	minTitleTokenLen = 3
)

type tokenSet map[string]struct{}

func (s tokenSet) add(tok string) {
	if tok != "" {
		s[tok] = struct{}{}
	}
}

func jaccard(a, b tokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// titleTokens returns up to ten cleaned title words longer than two runes.
func titleTokens(title string) []string {
	var out []string
	for _, w := range strings.Fields(candidate.CleanText(title)) {
		if utf8.RuneCountInString(w) < minTitleTokenLen {
			continue
		}
		out = append(out, w)
		if len(out) == maxTitleTokens {
			break
		}
	}
	return out
}

func tokensOf(title, author string, tags []string) tokenSet {
	s := tokenSet{}
	for _, t := range tags {
		s.add(candidate.CleanText(t))
	}
	s.add(candidate.NormalizeAuthor(author))
	for _, w := range titleTokens(title) {
		s.add(w)
	}
	return s
}

// Library is the token view of a caller's owned books, built once per request.
type Library struct {
	sets        []tokenSet
	authors     map[string]struct{}
	titleTokens tokenSet
}

func NewLibrary(books []book.Book) *Library {
	lib := &Library{
		sets:        make([]tokenSet, 0, len(books)),
		authors:     make(map[string]struct{}),
		titleTokens: tokenSet{},
	}
	for _, b := range books {
		lib.sets = append(lib.sets, tokensOf(b.Title, b.Author, b.Tags))
		if a := candidate.NormalizeAuthor(b.Author); a != "" {
			lib.authors[a] = struct{}{}
		}
		for _, w := range titleTokens(b.Title) {
			lib.titleTokens.add(w)
		}
	}
	return lib
}

func (l *Library) hasAuthor(author string) bool {
	_, ok := l.authors[candidate.NormalizeAuthor(author)]
	return ok && author != ""
}

// Scorer computes the local-catalog score of a candidate.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score rates c against lib. Similarity is the best Jaccard match over the
// library, so large libraries do not outscore small ones by volume. The
// popularity term stays below one Jaccard step and only orders equal matches.
func (s *Scorer) Score(lib *Library, c candidate.Candidate, maxPopularity float64) float64 {
	ct := tokensOf(c.Title, c.PrimaryAuthor(), c.Tags)

	best := 0.0
	for _, set := range lib.sets {
		if sim := jaccard(set, ct); sim > best {
			best = sim
		}
	}

	score := s.cfg.SimilarityWeight * best

	// net non-positive with a penalty at least the bonus
	if lib.hasAuthor(c.PrimaryAuthor()) {
		score += s.cfg.AuthorMatchBonus
		score -= s.cfg.SameAuthorPenalty
	}

	if words := titleTokens(c.Title); len(words) > 0 {
		overlap := 0
		for _, w := range words {
			if _, ok := lib.titleTokens[w]; ok {
				overlap++
			}
		}
		score += s.cfg.TitleOverlapWeight * float64(overlap) / float64(len(words))
	}

	if maxPopularity > 0 {
		score += s.cfg.PopularityWeight * (c.PopularityScore / maxPopularity)
	}
	return score
}

// ScoreAgainstLibrary is Score for a one-off library.
func (s *Scorer) ScoreAgainstLibrary(userBooks []book.Book, c candidate.Candidate, maxPopularity float64) float64 {
	return s.Score(NewLibrary(userBooks), c, maxPopularity)
}
