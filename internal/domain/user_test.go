package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_Name(t *testing.T) {
	u := &User{Email: "seller@example.com"}
	assert.Equal(t, "seller@example.com", u.Name())

	u.DisplayName = "Dana Seller"
	assert.Equal(t, "Dana Seller", u.Name())
}

func TestProfileFor(t *testing.T) {
	u := &User{Syncable: Syncable{ID: "user-1"}, Email: "a@example.com", DisplayName: "Ana"}
	u.InitTimestamps()

	p := ProfileFor(u)
	assert.Equal(t, "user-1", p.ID)
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, "a@example.com", p.Email)
	assert.Equal(t, u.CreatedAt, p.CreatedAt)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "buyer@example.com", NormalizeEmail("  Buyer@Example.COM "))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleMember.Valid())
	assert.False(t, Role("owner").Valid())
}

func TestPasswordReset_Usable(t *testing.T) {
	now := time.Now()
	reset := &PasswordReset{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, reset.Usable(now))
	assert.False(t, reset.Usable(now.Add(2*time.Hour)))

	used := now
	reset.UsedAt = &used
	assert.False(t, reset.Usable(now))
}

func TestSession_IsExpired(t *testing.T) {
	s := &Session{ExpiresAt: time.Now().Add(-time.Minute)}
	assert.True(t, s.IsExpired())

	s.ExpiresAt = time.Now().Add(time.Hour)
	assert.False(t, s.IsExpired())
}
