package profile

import (
	"context"
	"fmt"
	"sort"

	"readshelf/internal/book"
	"readshelf/internal/catalog"
	"readshelf/internal/user"
)

const maxTopTags = 5

// Users is the part of the user service a profile needs.
type Users interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Service struct {
	users Users
	books catalog.Repository
}

func NewService(users Users, books catalog.Repository) *Service {
	return &Service{users: users, books: books}
}

func (s *Service) GetOwnProfile(ctx context.Context, userID string) (Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	owned, err := s.books.FindByOwner(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("load shelf: %w", err)
	}

	return Profile{User: u, Stats: computeStats(owned)}, nil
}

func computeStats(books []book.Book) Stats {
	st := Stats{Total: len(books), TopTags: []string{}}

	freq := make(map[string]int)
	var order []string
	for _, b := range books {
		switch b.Status {
		case book.StatusReading:
			st.Reading++
		case book.StatusCompleted:
			st.Completed++
		case book.StatusWishlist:
			st.Wishlist++
		}
		for _, t := range b.Tags {
			if freq[t] == 0 {
				order = append(order, t)
			}
			freq[t]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if len(order) > maxTopTags {
		order = order[:maxTopTags]
	}
	st.TopTags = append(st.TopTags, order...)
	return st
}
