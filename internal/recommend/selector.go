package recommend

import (
	"cmp"
	"slices"

	"readshelf/internal/candidate"
)

// Selector dedupes, filters, ranks and diversifies a candidate pool.
type Selector struct {
	cfg Config
}

func NewSelector(cfg Config) *Selector {
	return &Selector{cfg: cfg}
}

// Select returns at most target candidates ordered best-first. Candidates
// whose dedupe key is in exclude never appear. Local candidates keep the score
// they arrive with; external ones are scored here. Short pools stay short.
func (s *Selector) Select(cands []candidate.Candidate, exclude map[string]struct{}, target int) []candidate.Candidate {
	if target <= 0 {
		return []candidate.Candidate{}
	}

	pool := collapse(cands, exclude)
	pool = filterNoise(pool, target)
	s.scoreExternal(pool)

	slices.SortStableFunc(pool, compareRanked)

	return diversify(pool, target, s.cfg.MaxPerAuthor)
}

// Arrange is Select without the score sort: the caller's order is the ranking.
// Exclusion, collapsing, noise handling and the author cap still apply, and
// noisy works that survive the filter move behind the clean ones.
func (s *Selector) Arrange(cands []candidate.Candidate, exclude map[string]struct{}, target int) []candidate.Candidate {
	if target <= 0 {
		return []candidate.Candidate{}
	}

	pool := collapse(cands, exclude)
	pool = filterNoise(pool, target)
	s.scoreExternal(pool)

	slices.SortStableFunc(pool, func(a, b candidate.Candidate) int {
		switch {
		case a.NonPrimary == b.NonPrimary:
			return 0
		case b.NonPrimary:
			return -1
		default:
			return 1
		}
	})

	return diversify(pool, target, s.cfg.MaxPerAuthor)
}

func keyOf(c candidate.Candidate) string {
	if c.DedupeKey != "" {
		return c.DedupeKey
	}
	return candidate.DedupeKey(c)
}

// collapse keeps one candidate per dedupe key, preserving first-seen order.
func collapse(cands []candidate.Candidate, exclude map[string]struct{}) []candidate.Candidate {
	index := make(map[string]int, len(cands))
	out := make([]candidate.Candidate, 0, len(cands))
	for _, c := range cands {
		c.DedupeKey = keyOf(c)
		if _, owned := exclude[c.DedupeKey]; owned {
			continue
		}
		i, seen := index[c.DedupeKey]
		if !seen {
			index[c.DedupeKey] = len(out)
			out = append(out, c)
			continue
		}
		if preferred(c, out[i]) {
			out[i] = c
		}
	}
	return out
}

// preferred reports whether a should replace b: cover, then popularity, then local origin.
func preferred(a, b candidate.Candidate) bool {
	if a.HasCover() != b.HasCover() {
		return a.HasCover()
	}
	if a.PopularityScore != b.PopularityScore {
		return a.PopularityScore > b.PopularityScore
	}
	return a.Origin == candidate.OriginLocal && b.Origin != candidate.OriginLocal
}

// filterNoise drops non-primary works only while enough clean ones remain.
func filterNoise(pool []candidate.Candidate, target int) []candidate.Candidate {
	clean := make([]candidate.Candidate, 0, len(pool))
	for _, c := range pool {
		if !c.NonPrimary {
			clean = append(clean, c)
		}
	}
	if len(clean) >= target {
		return clean
	}
	return pool
}

func (s *Selector) scoreExternal(pool []candidate.Candidate) {
	maxPop := 0.0
	for _, c := range pool {
		if c.Origin != candidate.OriginLocal {
			maxPop = max(maxPop, c.PopularityScore)
		}
	}
	for i := range pool {
		c := &pool[i]
		if c.Origin == candidate.OriginLocal {
			continue
		}
		score := 0.0
		if c.HasCover() {
			score += s.cfg.CoverWeight
		}
		if maxPop > 0 {
			score += s.cfg.ExternalPopularityWeight * (c.PopularityScore / maxPop)
		}
		if c.NonPrimary {
			score -= s.cfg.NonPrimaryPenalty
		}
		c.Score = score
	}
}

// compareRanked orders by score, popularity, cover presence, then dedupe key.
func compareRanked(a, b candidate.Candidate) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(b.PopularityScore, a.PopularityScore); c != 0 {
		return c
	}
	if a.HasCover() != b.HasCover() {
		if a.HasCover() {
			return -1
		}
		return 1
	}
	return cmp.Compare(a.DedupeKey, b.DedupeKey)
}

// diversify caps each primary author at perAuthor on the first pass, then
// tops up from what was skipped.
func diversify(sorted []candidate.Candidate, target, perAuthor int) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, min(target, len(sorted)))
	taken := make([]bool, len(sorted))
	perCount := make(map[string]int)

	for i, c := range sorted {
		if len(out) == target {
			return out
		}
		author := candidate.NormalizeAuthor(c.PrimaryAuthor())
		if author != "" && perCount[author] >= perAuthor {
			continue
		}
		if author != "" {
			perCount[author]++
		}
		taken[i] = true
		out = append(out, c)
	}

	for i, c := range sorted {
		if len(out) == target {
			break
		}
		if !taken[i] {
			out = append(out, c)
		}
	}
	return out
}
