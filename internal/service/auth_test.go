package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estately/estately-server/internal/auth"
	"github.com/estately/estately-server/internal/domain"
	domainerrors "github.com/estately/estately-server/internal/errors"
	"github.com/estately/estately-server/internal/store/sqlite"
)

type captureMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, _, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.links, "no reset email sent")
	u, err := url.Parse(m.links[len(m.links)-1])
	require.NoError(t, err)
	assert.Equal(t, "/auth", u.Path)
	assert.Equal(t, "reset", u.Query().Get("mode"))
	return u.Query().Get("token")
}

type forgetRecorder struct {
	mu    sync.Mutex
	users []string
}

func (f *forgetRecorder) Forget(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
}

type authFixture struct {
	svc     *AuthService
	store   *sqlite.Store
	mailer  *captureMailer
	forgets *forgetRecorder
}

func setupAuthTest(t *testing.T) *authFixture {
	t.Helper()
	st := newTestStore(t)
	tokens := newTestTokens(t)
	sessions := NewSessionService(st, tokens, discardLogger())
	f := &authFixture{store: st, mailer: &captureMailer{}, forgets: &forgetRecorder{}}
	f.svc = NewAuthService(st, tokens, sessions, f.forgets, f.mailer, discardLogger(), AuthOptions{
		PublicURL: "https://estately.test/",
	})
	return f
}

func signUp(t *testing.T, svc *AuthService, name, email string) *AuthResponse {
	t.Helper()
	resp, err := svc.SignUp(context.Background(), SignUpRequest{
		Name:            name,
		Email:           email,
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
	}, auth.ClientInfo{IPAddress: "127.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return resp
}

func TestCheckNewPassword(t *testing.T) {
	tests := []struct {
		name, password, confirm, want string
	}{
		{"ok", "secret1", "secret1", ""},
		{"mismatch reported first", "abc", "abd", "Passwords do not match"},
		{"too short", "abc", "abc", "Password must be at least 6 characters long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckNewPassword(tt.password, tt.confirm)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestAuthService_SignUp_FirstUserIsAdmin(t *testing.T) {
	f := setupAuthTest(t)
	ctx := context.Background()

	first := signUp(t, f.svc, "Ada", "ada@example.com")
	assert.True(t, first.IsAdmin)
	assert.NotEmpty(t, first.AccessToken)
	assert.NotEmpty(t, first.RefreshToken)
	assert.Equal(t, "Ada", first.Profile.Name)

	second := signUp(t, f.svc, "Bob", "bob@example.com")
	assert.False(t, second.IsAdmin)

	isAdmin, err := f.store.HasRole(ctx, second.User.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, isAdmin)
	isMember, err := f.store.HasRole(ctx, second.User.ID, domain.RoleMember)
	require.NoError(t, err)
	assert.True(t, isMember)
}

func TestAuthService_SignUp_DuplicateEmail(t *testing.T) {
	f := setupAuthTest(t)
	signUp(t, f.svc, "Ada", "ada@example.com")

	_, err := f.svc.SignUp(context.Background(), SignUpRequest{
		Name: "Ada Again", Email: "ADA@example.com", Password: "hunter22", ConfirmPassword: "hunter22",
	}, auth.ClientInfo{})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeAlreadyExists, domainerrors.CodeOf(err))
}

func TestAuthService_SignUp_PasswordRules(t *testing.T) {
	f := setupAuthTest(t)

	_, err := f.svc.SignUp(context.Background(), SignUpRequest{
		Name: "Ada", Email: "ada@example.com", Password: "abc", ConfirmPassword: "abd",
	}, auth.ClientInfo{})
	require.Error(t, err)
	assert.Equal(t, "Passwords do not match", err.Error())

	count, err := f.store.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAuthService_SignIn(t *testing.T) {
	f := setupAuthTest(t)
	ctx := context.Background()
	signUp(t, f.svc, "Ada", "ada@example.com")

	resp, err := f.svc.SignIn(ctx, SignInRequest{Email: "ada@example.com", Password: "hunter22"}, auth.ClientInfo{})
	require.NoError(t, err)
	assert.True(t, resp.IsAdmin)

	for _, req := range []SignInRequest{
		{Email: "ada@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "hunter22"},
	} {
		_, err := f.svc.SignIn(ctx, req, auth.ClientInfo{})
		require.Error(t, err)
		assert.Equal(t, domainerrors.CodeInvalidCredentials, domainerrors.CodeOf(err))
		assert.Equal(t, "Invalid email or password", err.Error())
	}
}

func TestAuthService_VerifyAccessToken(t *testing.T) {
	f := setupAuthTest(t)
	ctx := context.Background()
	resp := signUp(t, f.svc, "Ada", "ada@example.com")

	identity, err := f.svc.VerifyAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, identity.User.ID)
	assert.Equal(t, resp.SessionID, identity.SessionID)
	assert.True(t, identity.IsAdmin)

	_, err = f.svc.VerifyAccessToken(ctx, "v4.local.garbage")
	assert.Equal(t, domainerrors.CodeTokenExpired, domainerrors.CodeOf(err))
}

func TestAuthService_SignOut_RevokesAccessToken(t *testing.T) {
	f := setupAuthTest(t)
	ctx := context.Background()
	resp := signUp(t, f.svc, "Ada", "ada@example.com")

	require.NoError(t, f.svc.SignOut(ctx, resp.User.ID, resp.SessionID))
	assert.Equal(t, []string{resp.User.ID}, f.forgets.users)

	_, err := f.svc.VerifyAccessToken(ctx, resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeTokenExpired, domainerrors.CodeOf(err))

	_, err = f.svc.Refresh(ctx, resp.RefreshToken, auth.ClientInfo{})
	assert.Equal(t, domainerrors.CodeTokenExpired, domainerrors.CodeOf(err))
}

func TestAuthService_Refresh_RotatesToken(t *testing.T) {
	f := setupAuthTest(t)
	ctx := context.Background()
	resp := signUp(t, f.svc, "Ada", "ada@example.com")

	rotated, err := f.svc.Refresh(ctx, resp.RefreshToken, auth.ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, rotated.SessionID)
	assert.NotEqual(t, resp.RefreshToken, rotated.RefreshToken)

	// The old refresh token is spent.
	_, err = f.svc.Refresh(ctx, resp.RefreshToken, auth.ClientInfo{})
	assert.Equal(t, domainerrors.CodeTokenExpired, domainerrors.CodeOf(err))

	_, err = f.svc.Refresh(ctx, "", auth.ClientInfo{})
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestAuthService_PasswordReset(t *testing.T) {
	f := setupAuthTest(t)
	ctx := context.Background()
	resp := signUp(t, f.svc, "Ada", "ada@example.com")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))
	token := f.mailer.lastToken(t)
	require.NotEmpty(t, token)

	err := f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "newpass1", ConfirmPassword: "newpass1"})
	require.NoError(t, err)

	// Sessions opened before the reset are gone.
	_, err = f.svc.VerifyAccessToken(ctx, resp.AccessToken)
	assert.Error(t, err)
	assert.Contains(t, f.forgets.users, resp.User.ID)

	_, err = f.svc.SignIn(ctx, SignInRequest{Email: "ada@example.com", Password: "hunter22"}, auth.ClientInfo{})
	assert.Equal(t, domainerrors.CodeInvalidCredentials, domainerrors.CodeOf(err))
	_, err = f.svc.SignIn(ctx, SignInRequest{Email: "ada@example.com", Password: "newpass1"}, auth.ClientInfo{})
	require.NoError(t, err)

	// Single use.
	err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, Password: "another1", ConfirmPassword: "another1"})
	require.Error(t, err)
	assert.Equal(t, "Reset link is invalid or has expired", err.Error())
}

func TestAuthService_RequestPasswordReset_UnknownEmail(t *testing.T) {
	f := setupAuthTest(t)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.mailer.links)

	err := f.svc.RequestPasswordReset(context.Background(), "not-an-email")
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestAuthService_UpdatePassword(t *testing.T) {
	f := setupAuthTest(t)
	ctx := context.Background()
	resp := signUp(t, f.svc, "Ada", "ada@example.com")

	err := f.svc.UpdatePassword(ctx, nil, "newpass1", "newpass1")
	assert.True(t, errors.Is(err, domainerrors.ErrUnauthorized))

	err = f.svc.UpdatePassword(ctx, resp.User, "short", "short")
	assert.Equal(t, "Password must be at least 6 characters long", err.Error())

	require.NoError(t, f.svc.UpdatePassword(ctx, resp.User, "newpass1", "newpass1"))
	_, err = f.svc.SignIn(ctx, SignInRequest{Email: "ada@example.com", Password: "newpass1"}, auth.ClientInfo{})
	require.NoError(t, err)
}

func TestSessionService_PurgeExpired(t *testing.T) {
	st := newTestStore(t)
	sessions := NewSessionService(st, newTestTokens(t), discardLogger())
	ctx := context.Background()
	user := seedUser(t, st, "Ada")

	live, err := sessions.CreateSession(ctx, user, auth.ClientInfo{})
	require.NoError(t, err)

	purgedSessions, purgedResets, err := sessions.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, purgedSessions)
	assert.Zero(t, purgedResets)

	require.NoError(t, sessions.ValidateSession(ctx, live.SessionID))

	n, err := sessions.RevokeAll(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Error(t, sessions.ValidateSession(ctx, live.SessionID))
}
