package book

import (
	"context"
	"fmt"
	"strings"
)

// Service provides book-related business logic.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Input carries the writable fields of a new book.
type Input struct {
	Title           string
	Author          string
	Status          Status
	CoverImageURL   string
	Description     string
	Tags            []string
	PopularityScore float64
	SourceProvider  string
	ExternalID      string
}

// Patch carries optional field updates; the owner is immutable.
type Patch struct {
	Title         *string
	Author        *string
	Status        *Status
	CoverImageURL *string
	Description   *string
	Tags          *[]string
}

func (s *Service) Create(ctx context.Context, ownerID string, in Input) (Book, error) {
	b := &Book{
		Title:           strings.TrimSpace(in.Title),
		Author:          strings.TrimSpace(in.Author),
		Status:          in.Status,
		OwnerID:         ownerID,
		CoverImageURL:   strings.TrimSpace(in.CoverImageURL),
		Description:     in.Description,
		Tags:            NormalizeTags(in.Tags),
		PopularityScore: max(in.PopularityScore, 0),
		SourceProvider:  in.SourceProvider,
		ExternalID:      in.ExternalID,
	}
	if b.Status == "" {
		b.Status = StatusReading
	}
	if b.SourceProvider == "" {
		b.SourceProvider = SourceLocal
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return Book{}, fmt.Errorf("create book: %w", err)
	}
	return *b, nil
}

// Get returns a book owned by ownerID.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Book, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Book{}, err
	}
	if b.OwnerID != ownerID {
		return Book{}, ErrForbidden
	}
	return b, nil
}

// List returns a page of the owner's books and the cursor of the next page.
func (s *Service) List(ctx context.Context, q Query) ([]Book, string, error) {
	limit := q.Limit
	q.Limit = limit + 1
	books, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, "", err
	}
	var next string
	if len(books) > limit {
		books = books[:limit]
		last := books[len(books)-1]
		next = EncodeCursor(CursorData{AfterID: last.ID, CreatedAt: last.CreatedAt})
	}
	return books, next, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id string, p Patch) (Book, error) {
	b, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return Book{}, err
	}
	if p.Title != nil {
		b.Title = strings.TrimSpace(*p.Title)
	}
	if p.Author != nil {
		b.Author = strings.TrimSpace(*p.Author)
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.CoverImageURL != nil {
		b.CoverImageURL = strings.TrimSpace(*p.CoverImageURL)
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Tags != nil {
		b.Tags = NormalizeTags(*p.Tags)
	}
	if err := s.repo.Update(ctx, &b); err != nil {
		return Book{}, fmt.Errorf("update book: %w", err)
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
