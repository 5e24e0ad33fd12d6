package auth

import (
	"time"
)

// AccessClaims represents the claims stored in a PASETO access token.
// v4.local tokens are encrypted, so clients cannot read them.
//
// Roles are deliberately absent: admin checks always go to the store.
type AccessClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"sid"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// ClientInfo describes the client that opened a session.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// Normalize caps free-form client strings before they reach the store.
func (c ClientInfo) Normalize() ClientInfo {
	if len(c.UserAgent) > 512 {
		c.UserAgent = c.UserAgent[:512]
	}
	if len(c.IPAddress) > 64 {
		c.IPAddress = c.IPAddress[:64]
	}
	return c
}
