package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/store"
)

func insertRole(ctx context.Context, db execer, userID string, role domain.Role, at time.Time) error {
	if !role.Valid() {
		return store.ErrInvalidInput.WithCause(fmt.Errorf("unknown role %q", role))
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_roles (user_id, role, granted_at) VALUES (?, ?, ?)`,
		userID, string(role), formatTime(at))
	return mapWriteErr(err)
}

// GrantRole gives a user a role. Granting an existing role is a no-op.
func (s *Store) GrantRole(ctx context.Context, userID string, role domain.Role) error {
	return insertRole(ctx, s.db, userID, role, time.Now())
}

// RevokeRole removes a role from a user.
func (s *Store) RevokeRole(ctx context.Context, userID string, role domain.Role) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ? AND role = ?`, userID, string(role))
	return err
}

// HasRole reports whether a user holds a role.
func (s *Store) HasRole(ctx context.Context, userID string, role domain.Role) (bool, error) {
	n, err := s.count(ctx,
		`SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role = ?`, userID, string(role))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListRoles returns a user's roles in alphabetical order.
func (s *Store) ListRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		roles = append(roles, domain.Role(r))
	}
	return roles, rows.Err()
}
