package book

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const invalidTextRepresentation = "22P02"

// notFound reports errors that mean the id cannot match a row, including a malformed uuid.
func notFound(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

// Columns is the select list matching ScanBook.
const Columns = `id, owner_id, title, author, status, cover_image_url, description, tags,
	popularity_score, source_provider, external_id, created_at, updated_at`

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

// ScanBook reads one row selected with Columns.
func ScanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.Status, &b.CoverImageURL, &b.Description, &b.Tags,
		&b.PopularityScore, &b.SourceProvider, &b.ExternalID, &b.CreatedAt, &b.UpdatedAt,
	)
	if b.Tags == nil {
		b.Tags = []string{}
	}
	return b, err
}

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	const query = `
		INSERT INTO books (owner_id, title, author, status, cover_image_url, description, tags,
		                   popularity_score, source_provider, external_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.QueryRow(timeoutCtx, query,
		b.OwnerID, b.Title, b.Author, b.Status, b.CoverImageURL, b.Description, b.Tags,
		b.PopularityScore, b.SourceProvider, b.ExternalID,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Book, error) {
	query := `SELECT ` + Columns + ` FROM books WHERE id = $1 LIMIT 1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := ScanBook(r.db.QueryRow(timeoutCtx, query, id))
	if err != nil {
		if notFound(err) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, error) {
	clauses := []string{"owner_id = $1"}
	args := []any{q.OwnerID}
	argn := 2

	if q.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", argn))
		args = append(args, q.Status)
		argn++
	}
	if q.After != nil && q.After.AfterID != "" {
		clauses = append(clauses, fmt.Sprintf("(created_at, id) < ($%d, $%d)", argn, argn+1))
		args = append(args, q.After.CreatedAt, q.After.AfterID)
		argn += 2
	}

	query := fmt.Sprintf(`SELECT %s FROM books WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d`,
		Columns, strings.Join(clauses, " AND "), argn)
	args = append(args, q.Limit)

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := ScanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, b *Book) error {
	const query = `
		UPDATE books
		SET title = $3, author = $4, status = $5, cover_image_url = $6, description = $7,
		    tags = $8, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query,
		b.ID, b.OwnerID, b.Title, b.Author, b.Status, b.CoverImageURL, b.Description, b.Tags,
	).Scan(&b.UpdatedAt)
	if notFound(err) {
		return ErrNotFound
	}
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
	if notFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
