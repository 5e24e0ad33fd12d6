package domain

import "time"

// Syncable is embedded by every persisted record. DeletedAt is set only by
// maintenance tooling; the store filters such rows out of every read.
type Syncable struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	ID        string     `json:"id"`
}

// InitTimestamps stamps a new record.
func (s *Syncable) InitTimestamps() {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
}

// Touch records a modification.
func (s *Syncable) Touch() {
	s.UpdatedAt = time.Now()
}
