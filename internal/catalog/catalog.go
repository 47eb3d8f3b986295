// Package catalog is the read-only query side over all users' book records.
package catalog

import (
	"context"

	"readshelf/internal/book"
)

//go:generate mockgen -source=catalog.go -destination=mock_repository.go -package=catalog

// Repository answers the queries the recommendation engine needs.
type Repository interface {
	// FindByOwner returns every book owned by ownerID, oldest first.
	FindByOwner(ctx context.Context, ownerID string) ([]book.Book, error)
	// FindByTagsExcludingOwner returns books sharing at least one tag, owned by
	// someone else, sorted by popularity desc then created_at and id.
	FindByTagsExcludingOwner(ctx context.Context, tags []string, excludeOwnerID string, limit int) ([]book.Book, error)
}
