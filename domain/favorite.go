package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidFavorite is returned when a FavoriteTest fails validation.
	ErrInvalidFavorite = errors.New("invalid favorite test")
)

// FavoriteTest is a lab test the user has bookmarked.
// The JSON field names match the payload written by the mobile client so that a stored
// collection can be shared between both.
type FavoriteTest struct {
	ID       string  `json:"id" yaml:"id"`                                 // Unique test identifier, required.
	Name     string  `json:"name" yaml:"name"`                             // Display label.
	ImageURL string  `json:"imageUrl" yaml:"imageUrl"`                     // Absolute URL or relative image path.
	Coins    float64 `json:"coins" yaml:"coins"`                           // Price in coins, never negative.
	Category string  `json:"category,omitempty" yaml:"category,omitempty"` // Optional grouping label.
}

// Validate checks that the test can be stored as a favorite.
// The ID must be non-empty and Coins must be a finite, non-negative number.
func (t FavoriteTest) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidFavorite)
	}

	if math.IsNaN(t.Coins) || math.IsInf(t.Coins, 0) {
		return fmt.Errorf("%w: coins for %s must be a finite number", ErrInvalidFavorite, t.ID)
	}

	if t.Coins < 0 {
		return fmt.Errorf("%w: coins for %s cannot be negative (%v)", ErrInvalidFavorite, t.ID, t.Coins)
	}

	return nil
}
