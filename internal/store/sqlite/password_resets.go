package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/estately/estately-server/internal/domain"
	"github.com/estately/estately-server/internal/store"
)

// CreatePasswordReset stores a reset grant.
func (s *Store) CreatePasswordReset(ctx context.Context, reset *domain.PasswordReset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at, created_at, used_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		reset.ID,
		reset.UserID,
		reset.TokenHash,
		formatTime(reset.ExpiresAt),
		formatTime(reset.CreatedAt),
		nullTimeString(reset.UsedAt),
	)
	return mapWriteErr(err)
}

// GetPasswordResetByToken looks up a grant by the hash of its token.
// Used and expired grants are still returned; callers check Usable.
func (s *Store) GetPasswordResetByToken(ctx context.Context, tokenHash string) (*domain.PasswordReset, error) {
	var (
		r         domain.PasswordReset
		expiresAt string
		createdAt string
		usedAt    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at, used_at
		FROM password_resets WHERE token_hash = ?`, tokenHash).
		Scan(&r.ID, &r.UserID, &r.TokenHash, &expiresAt, &createdAt, &usedAt)
	if err != nil {
		return nil, mapReadErr(err)
	}

	if r.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UsedAt, err = parseNullableTime(usedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// MarkPasswordResetUsed consumes a grant. A grant can only be consumed once.
func (s *Store) MarkPasswordResetUsed(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		formatTime(at), id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteExpiredPasswordResets removes expired or consumed grants.
func (s *Store) DeleteExpiredPasswordResets(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at < ? OR used_at IS NOT NULL`,
		formatTime(time.Now()))
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}
