// Package favorites keeps the per-user set of favorited property IDs in sync
// with the store.
package favorites

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/errors"
	"github.com/estately/estately-server/internal/keylock"
	"github.com/estately/estately-server/internal/store"
)

// Remote is the slice of the store the manager synchronizes against.
type Remote interface {
	ListFavoriteIDs(ctx context.Context, userID string) ([]string, error)
	AddFavorite(ctx context.Context, fav *domain.Favorite) error
	RemoveFavorite(ctx context.Context, userID, propertyID string) error
}

// Manager holds the favorite set of one user. The set is replaced on Load
// and changed only after the store confirms a write.
type Manager struct {
	remote Remote
	locks  *keylock.Locker[domain.FavoriteKey]
	logger *slog.Logger

	mu     sync.RWMutex
	userID string
	loaded bool
	ids    map[string]struct{}
}

// NewManager creates an empty manager. locks may be shared between managers;
// nil gives the manager its own.
func NewManager(remote Remote, locks *keylock.Locker[domain.FavoriteKey], logger *slog.Logger) *Manager {
	if locks == nil {
		locks = keylock.New[domain.FavoriteKey]()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		remote: remote,
		locks:  locks,
		logger: logger,
		ids:    make(map[string]struct{}),
	}
}

// Load replaces the set with the user's favorites from the store.
// A nil user clears the set. On fetch failure the previous set is kept.
func (m *Manager) Load(ctx context.Context, user *domain.User) error {
	if user == nil {
		m.mu.Lock()
		m.userID = ""
		m.loaded = false
		m.ids = make(map[string]struct{})
		m.mu.Unlock()
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	ids, err := m.remote.ListFavoriteIDs(ctx, user.ID)
	if err != nil {
		m.logger.Error("failed to load favorites", "user_id", user.ID, "error", err)
		return errors.Internal("Failed to load favorites").WithCause(err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	m.mu.Lock()
	m.userID = user.ID
	m.loaded = true
	m.ids = set
	m.mu.Unlock()

	m.logger.Debug("favorites loaded", "user_id", user.ID, "count", len(set))
	return nil
}

// Toggle flips propertyID in the user's favorites and returns whether it is
// now favorited. Calls for the same user and property run one at a time.
func (m *Manager) Toggle(ctx context.Context, user *domain.User, propertyID string) (bool, error) {
	if user == nil {
		return false, errors.Unauthorized("Please sign in to add favorites")
	}
	if propertyID == "" {
		return false, errors.Validation("property id is required")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if !m.LoadedFor(user.ID) {
		if err := m.Load(ctx, user); err != nil {
			return false, err
		}
	}

	unlock := m.locks.Lock(domain.FavoriteKey{UserID: user.ID, PropertyID: propertyID})
	defer unlock()

	favorited := m.IsFavorite(propertyID)

	var err error
	if favorited {
		err = m.remote.RemoveFavorite(ctx, user.ID, propertyID)
	} else {
		err = m.remote.AddFavorite(ctx, &domain.Favorite{
			UserID:     user.ID,
			PropertyID: propertyID,
			CreatedAt:  time.Now(),
		})
	}
	if err != nil {
		return favorited, m.recover(ctx, user, propertyID, err)
	}

	m.mu.Lock()
	// A Load for another user may have replaced the set meanwhile.
	if m.userID == user.ID {
		if favorited {
			delete(m.ids, propertyID)
		} else {
			m.ids[propertyID] = struct{}{}
		}
	}
	m.mu.Unlock()

	return !favorited, nil
}

// recover reloads from the store after a failed write so the set matches
// remote truth, then maps the write error for the caller.
func (m *Manager) recover(ctx context.Context, user *domain.User, propertyID string, cause error) error {
	m.logger.Warn("favorite write failed",
		"user_id", user.ID,
		"property_id", propertyID,
		"error", cause,
	)

	if err := m.Load(ctx, user); err != nil {
		m.logger.Warn("reconciling favorites reload failed", "user_id", user.ID, "error", err)
	}

	switch {
	case errors.Is(cause, store.ErrAlreadyExists):
		return errors.Conflict("Property is already in your favorites").WithCause(cause)
	case errors.Is(cause, store.ErrNotFound):
		return errors.NotFound("Property not found").WithCause(cause)
	default:
		return errors.Internal("Failed to update favorites").WithCause(cause)
	}
}

// IsFavorite reports whether propertyID is in the set.
func (m *Manager) IsFavorite(propertyID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[propertyID]
	return ok
}

// IDs returns a sorted snapshot of the set.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.ids))
	for id := range m.ids {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Len returns the size of the set.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// UserID returns the user the set belongs to, or "" when cleared.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userID
}

// LoadedFor reports whether the set holds a successful load for userID.
func (m *Manager) LoadedFor(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded && m.userID == userID
}
