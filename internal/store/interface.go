// Package store defines the persistence interface for the Estately server.
package store

import (
	"context"
	"time"

	"github.com/estately/estately-server/internal/domain"
)

// Users persists accounts.
type Users interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	CountUsers(ctx context.Context) (int, error)
}

// Profiles persists public user profiles.
type Profiles interface {
	SaveProfile(ctx context.Context, profile *domain.Profile) error
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	ListProfiles(ctx context.Context) ([]*domain.Profile, error)
	CountProfiles(ctx context.Context) (int, error)
}

// Roles is the role-lookup capability.
type Roles interface {
	GrantRole(ctx context.Context, userID string, role domain.Role) error
	RevokeRole(ctx context.Context, userID string, role domain.Role) error
	HasRole(ctx context.Context, userID string, role domain.Role) (bool, error)
	ListRoles(ctx context.Context, userID string) ([]domain.Role, error)
}

// Sessions persists refresh-token sessions and password reset grants.
type Sessions interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteAllUserSessions(ctx context.Context, userID string) (int, error)
	DeleteExpiredSessions(ctx context.Context) (int, error)

	CreatePasswordReset(ctx context.Context, reset *domain.PasswordReset) error
	GetPasswordResetByToken(ctx context.Context, tokenHash string) (*domain.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, id string, at time.Time) error
	DeleteExpiredPasswordResets(ctx context.Context) (int, error)
}

// Properties persists listings.
type Properties interface {
	CreateProperty(ctx context.Context, property *domain.Property) error
	GetProperty(ctx context.Context, id string) (*domain.Property, error)
	// UpdateProperty writes every mutable field of property.
	UpdateProperty(ctx context.Context, property *domain.Property) error
	// UpdatePropertyStatus is a partial update of status (and featured, which
	// is cleared when leaving available).
	UpdatePropertyStatus(ctx context.Context, id string, status domain.Status, featured bool) error
	DeleteProperty(ctx context.Context, id string) error
	// ListProperties returns every listing, newest first.
	ListProperties(ctx context.Context) ([]*domain.Property, error)
	// QueryProperties returns the listings matching filter.
	QueryProperties(ctx context.Context, filter PropertyFilter) (*Page[*domain.Property], error)
	CountProperties(ctx context.Context) (int, error)
	CountPropertiesWithTaxReceipt(ctx context.Context) (int, error)
}

// Favorites persists user-to-property bookmarks.
type Favorites interface {
	AddFavorite(ctx context.Context, fav *domain.Favorite) error
	// RemoveFavorite deletes the pair. Deleting an absent pair is not an error.
	RemoveFavorite(ctx context.Context, userID, propertyID string) error
	ListFavoriteIDs(ctx context.Context, userID string) ([]string, error)
	// ListFavoriteProperties joins favorites to listings, newest favorite first.
	ListFavoriteProperties(ctx context.Context, userID string) ([]*domain.Property, error)
}

// Store defines every persistence operation.
type Store interface {
	Users
	Profiles
	Roles
	Sessions
	Properties
	Favorites

	// CreateAccount creates a user, its profile and its roles atomically.
	CreateAccount(ctx context.Context, user *domain.User, profile *domain.Profile, roles []domain.Role) error

	Close() error
}
