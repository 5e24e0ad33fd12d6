package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/estately/estately-server/internal/domain"
	domainerrors "github.com/estately/estately-server/internal/errors"
	"github.com/estately/estately-server/internal/keylock"
	"github.com/estately/estately-server/internal/metrics"
	"github.com/estately/estately-server/internal/sse"
	"github.com/estately/estately-server/internal/store"
)

// ModerationStore is the persistence surface the admin dashboard needs.
type ModerationStore interface {
	HasRole(ctx context.Context, userID string, role domain.Role) (bool, error)
	GetProperty(ctx context.Context, id string) (*domain.Property, error)
	ListProperties(ctx context.Context) ([]*domain.Property, error)
	UpdatePropertyStatus(ctx context.Context, id string, status domain.Status, featured bool) error
	ListProfiles(ctx context.Context) ([]*domain.Profile, error)
	CountProfiles(ctx context.Context) (int, error)
}

// DashboardStats are the counters above the moderation table.
type DashboardStats struct {
	TotalProperties int `json:"total_properties"`
	// PendingVerification counts listings carrying a tax receipt.
	PendingVerification int `json:"pending_verification"`
	TotalUsers          int `json:"total_users"`
}

// Dashboard is the moderation view: every listing with its seller.
type Dashboard struct {
	Properties []*domain.PropertyWithSeller `json:"properties"`
	Stats      DashboardStats               `json:"stats"`
}

// ModerationService runs the admin dashboard. Every mutation is written to
// the store first; derived state follows only after the store confirms, and
// the returned dashboard is always a fresh read.
type ModerationService struct {
	store   ModerationStore
	index   Indexer
	events  EventEmitter
	metrics *metrics.Metrics
	locks   *keylock.Locker[string]
	logger  *slog.Logger
}

// NewModerationService creates a moderation service.
func NewModerationService(
	store ModerationStore,
	index Indexer,
	events EventEmitter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ModerationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModerationService{
		store:   store,
		index:   indexerOrNoop(index),
		events:  emitterOrNoop(events),
		metrics: m,
		locks:   keylock.New[string](),
		logger:  logger,
	}
}

// authorize completes the admin role check before anything else is read.
func (s *ModerationService) authorize(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domainerrors.Unauthorized("Please sign in to access the admin dashboard")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	isAdmin, err := s.store.HasRole(ctx, user.ID, domain.RoleAdmin)
	if err != nil {
		s.logger.Error("admin role lookup failed", "user_id", user.ID, "error", err)
		return domainerrors.Internal("Failed to verify admin access").WithCause(err)
	}
	if !isAdmin {
		s.logger.Warn("non-admin denied dashboard access", "user_id", user.ID)
		return domainerrors.Forbidden("Access denied. Admin privileges required.")
	}
	return nil
}

// Dashboard loads every listing left-joined to its seller's profile, plus
// the counters.
func (s *ModerationService) Dashboard(ctx context.Context, user *domain.User) (*Dashboard, error) {
	if err := s.authorize(ctx, user); err != nil {
		return nil, err
	}
	return s.load(ctx)
}

func (s *ModerationService) load(ctx context.Context) (*Dashboard, error) {
	props, err := s.store.ListProperties(ctx)
	if err != nil {
		s.logger.Error("failed to load properties", "error", err)
		return nil, domainerrors.Internal("Failed to load dashboard data").WithCause(err)
	}
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		s.logger.Error("failed to load profiles", "error", err)
		return nil, domainerrors.Internal("Failed to load dashboard data").WithCause(err)
	}
	users, err := s.store.CountProfiles(ctx)
	if err != nil {
		s.logger.Error("failed to count users", "error", err)
		return nil, domainerrors.Internal("Failed to load dashboard data").WithCause(err)
	}

	byID := make(map[string]*domain.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	d := &Dashboard{
		Properties: make([]*domain.PropertyWithSeller, 0, len(props)),
		Stats:      DashboardStats{TotalProperties: len(props), TotalUsers: users},
	}
	for _, p := range props {
		if p.HasVerificationDocument() {
			d.Stats.PendingVerification++
		}
		d.Properties = append(d.Properties, &domain.PropertyWithSeller{
			Property: p,
			Seller:   byID[p.SellerID],
			Actions:  p.Actions(),
		})
	}
	return d, nil
}

// SetStatus moves a listing along an admin transition and returns the
// reloaded dashboard.
func (s *ModerationService) SetStatus(ctx context.Context, user *domain.User, propertyID string, status domain.Status) (*Dashboard, error) {
	if err := s.authorize(ctx, user); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domainerrors.ValidationWithDetails("invalid status",
			map[string]string{"status": "must be pending, available or rejected"})
	}

	unlock := s.locks.Lock(propertyID)
	p, wasPublic, err := s.changeStatus(ctx, propertyID, status)
	unlock()
	if err != nil {
		s.metrics.ModerationAction(string(status), outcomeOf(err))
		return nil, err
	}

	s.metrics.ModerationAction(string(status), metrics.OutcomeSuccess)
	s.logger.Info("property status changed",
		"property_id", p.ID,
		"status", string(p.Status),
		"admin_id", user.ID,
	)
	s.propagate(p, wasPublic, true)

	return s.load(ctx)
}

func (s *ModerationService) changeStatus(ctx context.Context, propertyID string, status domain.Status) (*domain.Property, bool, error) {
	p, err := s.getProperty(ctx, propertyID)
	if err != nil {
		return nil, false, err
	}
	if !domain.CanTransition(p.Status, status) {
		return nil, false, domainerrors.Conflictf("cannot change status from %s to %s", p.Status, status)
	}

	wasPublic := p.IsPublic()
	updated := *p
	updated.SetStatus(status)
	if err := s.store.UpdatePropertyStatus(ctx, p.ID, updated.Status, updated.Featured); err != nil {
		s.logger.Error("failed to update property status", "property_id", p.ID, "error", err)
		return nil, false, domainerrors.Internal("Failed to update property status").WithCause(err)
	}
	return &updated, wasPublic, nil
}

// ToggleFeatured flips the featured flag of an available listing and
// returns the reloaded dashboard.
func (s *ModerationService) ToggleFeatured(ctx context.Context, user *domain.User, propertyID string) (*Dashboard, error) {
	if err := s.authorize(ctx, user); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(propertyID)
	p, err := s.flipFeatured(ctx, propertyID)
	unlock()

	action := "feature"
	if p != nil && !p.Featured {
		action = "unfeature"
	}
	if err != nil {
		s.metrics.ModerationAction(action, outcomeOf(err))
		return nil, err
	}

	s.metrics.ModerationAction(action, metrics.OutcomeSuccess)
	s.logger.Info("property featured toggled",
		"property_id", p.ID,
		"featured", p.Featured,
		"admin_id", user.ID,
	)
	s.propagate(p, true, false)

	return s.load(ctx)
}

func (s *ModerationService) flipFeatured(ctx context.Context, propertyID string) (*domain.Property, error) {
	p, err := s.getProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !p.CanToggleFeatured() {
		return nil, domainerrors.Conflict("Only available properties can be featured")
	}

	updated := *p
	updated.Featured = !p.Featured
	if err := s.store.UpdatePropertyStatus(ctx, p.ID, updated.Status, updated.Featured); err != nil {
		s.logger.Error("failed to toggle featured", "property_id", p.ID, "error", err)
		return nil, domainerrors.Internal("Failed to update featured status").WithCause(err)
	}
	return &updated, nil
}

func (s *ModerationService) getProperty(ctx context.Context, id string) (*domain.Property, error) {
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("Property not found")
		}
		return nil, fmt.Errorf("get property: %w", err)
	}
	return p, nil
}

// propagate updates derived state after a confirmed write.
func (s *ModerationService) propagate(p *domain.Property, wasPublic, statusChanged bool) {
	if err := s.index.Sync(p); err != nil {
		s.logger.Warn("failed to update search index", "property_id", p.ID, "error", err)
	}
	s.events.Emit(sse.NewPropertyModeratedEvent(p))
	if statusChanged {
		s.events.Emit(sse.NewPropertyStatusChangedEvent(p))
	}
	if wasPublic || p.IsPublic() {
		s.events.Emit(sse.NewVisibilityEvent(p))
	}
}
