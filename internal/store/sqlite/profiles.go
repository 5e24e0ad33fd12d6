package sqlite

import (
	"context"
	"fmt"

	"github.com/estately/estately-server/internal/domain"
)

const profileColumns = `id, name, email, created_at`

func scanProfile(scanner interface{ Scan(dest ...any) error }) (*domain.Profile, error) {
	var (
		p         domain.Profile
		createdAt string
	)
	if err := scanner.Scan(&p.ID, &p.Name, &p.Email, &createdAt); err != nil {
		return nil, err
	}
	var err error
	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func upsertProfile(ctx context.Context, db execer, p *domain.Profile) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, email, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		p.ID, p.Name, p.Email, formatTime(p.CreatedAt))
	return mapWriteErr(err)
}

// SaveProfile creates or updates the profile keyed by the user ID.
func (s *Store) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	return upsertProfile(ctx, s.db, profile)
}

// GetProfile returns the profile for a user.
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, userID)
	p, err := scanProfile(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return p, nil
}

// ListProfiles returns every profile.
func (s *Store) ListProfiles(ctx context.Context) ([]*domain.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// CountProfiles counts profile rows. The dashboard's user count is this value.
func (s *Store) CountProfiles(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM profiles`)
}
