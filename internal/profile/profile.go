// Package profile summarizes a reader's shelf.
package profile

import (
	"readshelf/internal/user"
)

type Stats struct {
	Total     int      `json:"total"`
	Reading   int      `json:"reading"`
	Completed int      `json:"completed"`
	Wishlist  int      `json:"wishlist"`
	TopTags   []string `json:"topTags"`
}

type Profile struct {
	User  user.User `json:"user"`
	Stats Stats     `json:"stats"`
}
