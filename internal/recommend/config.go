// Package recommend ranks books for a caller from the local catalog and the
// external providers.
package recommend

import (
	"errors"
	"fmt"
)

// Config holds limits and scoring weights. Weights are tuning knobs; it is
// loaded directly by the config package under the "recommend" key.
type Config struct {
	DefaultLimit      int      `koanf:"default_limit"`
	MaxLimit          int      `koanf:"max_limit"`
	PerProviderLimit  int      `koanf:"per_provider_limit"`
	CatalogPoolSize   int      `koanf:"catalog_pool_size"`
	MinLocalResults   int      `koanf:"min_local_results"`
	MaxPerAuthor      int      `koanf:"max_per_author"`
	InterleaveBooks   int      `koanf:"interleave_books"`
	InterleavePerBook int      `koanf:"interleave_per_book"`
	SeedTerms         []string `koanf:"seed_terms"`

	SimilarityWeight   float64 `koanf:"similarity_weight"`
	PopularityWeight   float64 `koanf:"popularity_weight"`
	AuthorMatchBonus   float64 `koanf:"author_match_bonus"`
	TitleOverlapWeight float64 `koanf:"title_overlap_weight"`
	SameAuthorPenalty  float64 `koanf:"same_author_penalty"`

	CoverWeight              float64 `koanf:"cover_weight"`
	ExternalPopularityWeight float64 `koanf:"external_popularity_weight"`
	NonPrimaryPenalty        float64 `koanf:"non_primary_penalty"`
}

// maxPopularityShare bounds PopularityWeight relative to SimilarityWeight.
// Token sets hold at most 31 tokens, so two distinct Jaccard values differ by
// at least 1/62² and a popularity term below that can only break ties.
const maxPopularityShare = 1.0 / (62 * 62)

func DefaultConfig() Config {
	return Config{
		DefaultLimit:      10,
		MaxLimit:          20,
		PerProviderLimit:  12,
		CatalogPoolSize:   200,
		MinLocalResults:   5,
		MaxPerAuthor:      2,
		InterleaveBooks:   6,
		InterleavePerBook: 3,
		SeedTerms:         []string{"popular fiction", "fantasy", "mystery thriller", "science fiction"},

		SimilarityWeight:   0.8,
		PopularityWeight:   0.0002,
		AuthorMatchBonus:   0.15,
		TitleOverlapWeight: 0.1,
		SameAuthorPenalty:  0.2,

		CoverWeight:              0.5,
		ExternalPopularityWeight: 0.3,
		NonPrimaryPenalty:        0.4,
	}
}

// Validate reports the first setting that would silently empty a strategy
// or let popularity outrank similarity.
func (c Config) Validate() error {
	if c.DefaultLimit <= 0 || c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("recommend limits invalid: default=%d max=%d", c.DefaultLimit, c.MaxLimit)
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"max_per_author", c.MaxPerAuthor},
		{"per_provider_limit", c.PerProviderLimit},
		{"catalog_pool_size", c.CatalogPoolSize},
		{"interleave_books", c.InterleaveBooks},
		{"interleave_per_book", c.InterleavePerBook},
	} {
		if f.v <= 0 {
			return fmt.Errorf("recommend.%s must be positive, got %d", f.name, f.v)
		}
	}
	if c.MinLocalResults < 0 {
		return fmt.Errorf("recommend.min_local_results must not be negative, got %d", c.MinLocalResults)
	}
	if len(c.SeedTerms) == 0 {
		return errors.New("recommend.seed_terms must not be empty")
	}
	if c.SimilarityWeight <= 0 {
		return fmt.Errorf("recommend.similarity_weight must be positive, got %g", c.SimilarityWeight)
	}
	if c.PopularityWeight < 0 || c.PopularityWeight > c.SimilarityWeight*maxPopularityShare {
		return fmt.Errorf("recommend.popularity_weight must be within [0, %g], got %g",
			c.SimilarityWeight*maxPopularityShare, c.PopularityWeight)
	}
	if c.SameAuthorPenalty < c.AuthorMatchBonus {
		return fmt.Errorf("recommend.same_author_penalty (%g) must not be below author_match_bonus (%g)",
			c.SameAuthorPenalty, c.AuthorMatchBonus)
	}
	return nil
}

// ClampLimit maps a requested size into [1, MaxLimit]; zero means default.
func (c Config) ClampLimit(n int) int {
	switch {
	case n == 0:
		return c.DefaultLimit
	case n < 1:
		return 1
	case n > c.MaxLimit:
		return c.MaxLimit
	}
	return n
}
