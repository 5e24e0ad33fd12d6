package favorites

import (
	"context"
	"log/slog"

	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/errors"
	"github.com/estately/estately-server/internal/keylock"
	"github.com/estately/estately-server/internal/syncmap"
)

// Registry holds one Manager per signed-in user.
type Registry struct {
	remote   Remote
	logger   *slog.Logger
	toggles  *keylock.Locker[domain.FavoriteKey]
	loads    *keylock.Locker[string]
	managers *syncmap.Map[string, *Manager]
}

// NewRegistry creates an empty registry.
func NewRegistry(remote Remote, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		remote:   remote,
		logger:   logger,
		toggles:  keylock.New[domain.FavoriteKey](),
		loads:    keylock.New[string](),
		managers: syncmap.New[string, *Manager](),
	}
}

// For returns the user's manager, loading it from the store on first use.
// A failed load is retried on the next call.
func (r *Registry) For(ctx context.Context, user *domain.User) (*Manager, error) {
	if user == nil {
		return nil, errors.Unauthorized("Please sign in to view favorites")
	}

	m, _ := r.managers.LoadOrCreate(user.ID, func() *Manager {
		return NewManager(r.remote, r.toggles, r.logger)
	})
	if m.LoadedFor(user.ID) {
		return m, nil
	}

	unlock := r.loads.Lock(user.ID)
	defer unlock()

	if m.LoadedFor(user.ID) {
		return m, nil
	}
	if err := m.Load(ctx, user); err != nil {
		return nil, err
	}
	return m, nil
}

// Forget drops the user's manager, typically on sign-out.
func (r *Registry) Forget(userID string) {
	if m, ok := r.managers.LoadAndDelete(userID); ok {
		_ = m.Load(context.Background(), nil)
		r.logger.Debug("favorites forgotten", "user_id", userID)
	}
}

// Len returns the number of managers held.
func (r *Registry) Len() int {
	return r.managers.Len()
}
