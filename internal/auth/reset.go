package auth

import (
	"github.com/google/uuid"
)

// NewResetToken returns a fresh password reset token and the hash to store.
// The token is a random UUID; the plain value only ever leaves in the email.
func NewResetToken() (token, hash string) {
	token = uuid.NewString()
	return token, HashToken(token)
}
