package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"readshelf/internal/book"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) FindByOwner(ctx context.Context, ownerID string) ([]book.Book, error) {
	query := `SELECT ` + book.Columns + `
		FROM books
		WHERE owner_id = $1
		ORDER BY created_at, id`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PostgresRepo) FindByTagsExcludingOwner(ctx context.Context, tags []string, excludeOwnerID string, limit int) ([]book.Book, error) {
	if len(tags) == 0 || limit <= 0 {
		return []book.Book{}, nil
	}
	query := `SELECT ` + book.Columns + `
		FROM books
		WHERE tags && $1 AND owner_id <> $2
		ORDER BY popularity_score DESC, created_at, id
		LIMIT $3`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, tags, excludeOwnerID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]book.Book, error) {
	defer rows.Close()
	out := []book.Book{}
	for rows.Next() {
		b, err := book.ScanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
