package recommend

import (
	"context"

	"readshelf/internal/candidate"
)

//go:generate mockgen -source=ports.go -destination=mock_searcher.go -package=recommend

// Searcher fetches external candidates. Failures are absorbed by the
// implementation and show up as fewer results.
type Searcher interface {
	Search(ctx context.Context, query string, limitPerProvider int) []candidate.Candidate
}
