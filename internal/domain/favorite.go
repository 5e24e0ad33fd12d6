package domain

import "time"

// Favorite is a user-to-property bookmark. (UserID, PropertyID) is unique.
type Favorite struct {
	UserID     string    `json:"user_id"`
	PropertyID string    `json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// FavoriteKey identifies one (user, property) pair.
type FavoriteKey struct {
	UserID     string
	PropertyID string
}

// String renders the key for logging and lock maps.
func (k FavoriteKey) String() string {
	return k.UserID + "/" + k.PropertyID
}
