package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estately/estately-server/internal/config"
	"github.com/estately/estately-server/internal/service"
)

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Contains(t, env.Data.Components, "database")
	assert.Contains(t, env.Data.Components, "search")
}

func TestSignUp_FirstUserIsAdmin(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"name":             "Ada",
		"email":            "ada@example.com",
		"password":         "hunter22",
		"confirm_password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	env := decode[service.AuthResponse](t, resp.Body.Bytes())
	assert.True(t, env.Data.IsAdmin)
	assert.NotEmpty(t, env.Data.AccessToken)
	assert.NotEmpty(t, env.Data.RefreshToken)
	require.NotNil(t, env.Data.Profile)
	assert.Equal(t, "Ada", env.Data.Profile.Name)

	resp = ts.api.Post("/api/v1/auth/signup", map[string]any{
		"name":             "Grace",
		"email":            "grace@example.com",
		"password":         "hunter22",
		"confirm_password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.False(t, decode[service.AuthResponse](t, resp.Body.Bytes()).Data.IsAdmin)
}

func TestSignUp_Errors(t *testing.T) {
	ts := setupTestServer(t)
	ts.signUp(t, "ada")

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{
			name:   "duplicate email",
			body:   map[string]any{"name": "Ada", "email": "ADA@example.com", "password": "hunter22", "confirm_password": "hunter22"},
			status: http.StatusConflict,
			code:   "ALREADY_EXISTS",
		},
		{
			name:   "passwords differ",
			body:   map[string]any{"name": "Bo", "email": "bo@example.com", "password": "hunter22", "confirm_password": "hunter23"},
			status: http.StatusBadRequest,
			code:   "VALIDATION",
		},
		{
			name:   "password too short",
			body:   map[string]any{"name": "Bo", "email": "bo@example.com", "password": "abc", "confirm_password": "abc"},
			status: http.StatusBadRequest,
			code:   "VALIDATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/auth/signup", tt.body)
			require.Equal(t, tt.status, resp.Code, resp.Body.String())

			env := decode[any](t, resp.Body.Bytes())
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Code)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestSignInAndSignOut(t *testing.T) {
	ts := setupTestServer(t)
	ts.signUp(t, "ada")

	resp := ts.api.Post("/api/v1/auth/signin", map[string]any{
		"email":    "ada@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Invalid email or password", decode[any](t, resp.Body.Bytes()).Error)

	resp = ts.api.Post("/api/v1/auth/signin", map[string]any{
		"email":    "ada@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	token := decode[service.AuthResponse](t, resp.Body.Bytes()).Data.AccessToken

	resp = ts.api.Get("/api/v1/me/favorites", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/auth/signout", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Signed out", decode[MessageBody](t, resp.Body.Bytes()).Data.Message)

	// The revoked token is ignored, so the caller is anonymous again.
	resp = ts.api.Get("/api/v1/me/favorites", bearer(token))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSignOut_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signout")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRefresh(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"name": "ada", "email": "ada@example.com", "password": "hunter22", "confirm_password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	first := decode[service.AuthResponse](t, resp.Body.Bytes()).Data

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": first.RefreshToken})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	second := decode[service.AuthResponse](t, resp.Body.Bytes()).Data
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, first.SessionID, second.SessionID)

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "TOKEN_EXPIRED", decode[any](t, resp.Body.Bytes()).Code)
}

func TestPasswordResetFlow(t *testing.T) {
	ts := setupTestServer(t)
	ts.signUp(t, "ada")

	const ack = "If an account exists for that email, a reset link is on its way."

	resp := ts.api.Post("/api/v1/auth/password/reset-request", map[string]any{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, ack, decode[MessageBody](t, resp.Body.Bytes()).Data.Message)
	assert.Empty(t, ts.mailer.links)

	resp = ts.api.Post("/api/v1/auth/password/reset-request", map[string]any{"email": "ada@example.com"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, ack, decode[MessageBody](t, resp.Body.Bytes()).Data.Message)
	require.Len(t, ts.mailer.links, 1)

	link, err := url.Parse(ts.mailer.links[0])
	require.NoError(t, err)
	assert.Equal(t, "reset", link.Query().Get("mode"))
	resetToken := link.Query().Get("token")
	require.NotEmpty(t, resetToken)

	resp = ts.api.Post("/api/v1/auth/password/reset", map[string]any{
		"token": resetToken, "password": "brand-new-pw", "confirm_password": "brand-new-pw",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/auth/password/reset", map[string]any{
		"token": resetToken, "password": "another-pw", "confirm_password": "another-pw",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Reset link is invalid or has expired", decode[any](t, resp.Body.Bytes()).Error)

	resp = ts.api.Post("/api/v1/auth/signin", map[string]any{"email": "ada@example.com", "password": "brand-new-pw"})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestUpdatePassword(t *testing.T) {
	ts := setupTestServer(t)
	token, _ := ts.signUp(t, "ada")

	resp := ts.api.Put("/api/v1/auth/password", bearer(token), map[string]any{
		"password": "changed-pw", "confirm_password": "changed-pw",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Password updated", decode[MessageBody](t, resp.Body.Bytes()).Data.Message)

	resp = ts.api.Post("/api/v1/auth/signin", map[string]any{"email": "ada@example.com", "password": "changed-pw"})
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAuthRateLimit(t *testing.T) {
	ts := setupTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{AuthPerMinute: 2, AuthBurst: 2}
	})
	creds := map[string]any{"email": "nobody@example.com", "password": "hunter22"}

	for range 2 {
		resp := ts.api.Post("/api/v1/auth/signin", creds)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	}

	resp := ts.api.Post("/api/v1/auth/signin", creds)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "RATE_LIMITED", decode[any](t, resp.Body.Bytes()).Code)

	// Reads are never limited.
	assert.Equal(t, http.StatusOK, ts.api.Get("/api/v1/properties").Code)
}
