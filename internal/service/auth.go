package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/estately/estately-server/internal/auth"
	"github.com/estately/estately-server/internal/domain"
	domainerrors "github.com/estately/estately-server/internal/errors"
	"github.com/estately/estately-server/internal/id"
	"github.com/estately/estately-server/internal/store"
	"github.com/estately/estately-server/internal/validation"
)

// FavoritesForgetter drops cached favorite state for a user.
type FavoritesForgetter interface {
	Forget(userID string)
}

// AuthOptions tunes AuthService.
type AuthOptions struct {
	// ResetTokenTTL is how long an emailed reset link stays valid.
	ResetTokenTTL time.Duration
	// PublicURL is the origin reset links point at.
	PublicURL string
}

// AuthService handles sign-up, sign-in, password management and access
// token verification. Session bookkeeping is delegated to SessionService.
type AuthService struct {
	store     store.Store
	tokens    *auth.TokenService
	sessions  *SessionService
	favorites FavoritesForgetter
	mailer    Mailer
	validator *validation.Validator
	logger    *slog.Logger
	opts      AuthOptions
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store store.Store,
	tokens *auth.TokenService,
	sessions *SessionService,
	favorites FavoritesForgetter,
	mailer Mailer,
	logger *slog.Logger,
	opts AuthOptions,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	return &AuthService{
		store:     store,
		tokens:    tokens,
		sessions:  sessions,
		favorites: favorites,
		mailer:    mailer,
		validator: validation.New(),
		logger:    logger,
		opts:      opts,
	}
}

// SignUpRequest contains account creation data.
type SignUpRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,max=1024"`
	ConfirmPassword string `json:"confirm_password"`
}

// SignInRequest contains user credentials.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordRequest completes an emailed password reset.
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User    *domain.User    `json:"user"`
	Profile *domain.Profile `json:"profile,omitempty"`
	IsAdmin bool            `json:"is_admin"`
	SessionResponse
}

// CheckNewPassword applies the password rules shared by sign-up, reset and
// update. Mismatch is reported before length.
func CheckNewPassword(password, confirm string) error {
	if password != confirm {
		return domainerrors.Validation("Passwords do not match")
	}
	if len(password) < auth.MinPasswordLength {
		return domainerrors.Validation("Password must be at least 6 characters long")
	}
	return nil
}

// SignUp creates an account with its profile and the member role, then
// signs it in. The first account ever created is also an admin.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest, client auth.ClientInfo) (*AuthResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := CheckNewPassword(req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		Syncable:     domain.Syncable{ID: userID},
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: passwordHash,
		DisplayName:  req.Name,
		LastLoginAt:  now,
	}
	user.InitTimestamps()
	profile := domain.ProfileFor(user)

	existing, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	roles := []domain.Role{domain.RoleMember}
	if existing == 0 {
		roles = append(roles, domain.RoleAdmin)
	}

	if err := s.store.CreateAccount(ctx, user, profile, roles); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("An account with this email already exists")
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	session, err := s.sessions.CreateSession(ctx, user, client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("account created", "user_id", user.ID, "admin", existing == 0)

	return &AuthResponse{
		User:            user,
		Profile:         profile,
		IsAdmin:         existing == 0,
		SessionResponse: *session,
	}, nil
}

// SignIn authenticates credentials and opens a session. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest, client auth.ClientInfo) (*AuthResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	invalid := domainerrors.InvalidCredentials("Invalid email or password")

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	if !auth.VerifyPasswordFor(hash, req.Password) {
		return nil, invalid
	}

	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		s.logger.Warn("failed to update last login time", "user_id", user.ID, "error", err)
	}

	session, err := s.sessions.CreateSession(ctx, user, client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	isAdmin, err := s.store.HasRole(ctx, user.ID, domain.RoleAdmin)
	if err != nil {
		s.logger.Warn("role lookup failed", "user_id", user.ID, "error", err)
	}

	s.logger.Info("user signed in", "user_id", user.ID)

	return &AuthResponse{
		User:            user,
		IsAdmin:         isAdmin,
		SessionResponse: *session,
	}, nil
}

// Refresh rotates a refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client auth.ClientInfo) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, domainerrors.Validation("refresh_token is required")
	}
	session, user, err := s.sessions.RefreshSession(ctx, refreshToken, client)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, SessionResponse: *session}, nil
}

// SignOut ends the session and drops the user's cached favorites.
func (s *AuthService) SignOut(ctx context.Context, userID, sessionID string) error {
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	if s.favorites != nil {
		s.favorites.Forget(userID)
	}
	return nil
}

// RequestPasswordReset emails a single-use reset link when the account
// exists. The outcome is the same either way.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.validator.Var("email", email, "required,email"); err != nil {
		return err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("password reset for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	resetID, err := id.Generate("reset")
	if err != nil {
		return fmt.Errorf("generate reset ID: %w", err)
	}
	token, hash := auth.NewResetToken()
	now := time.Now()
	reset := &domain.PasswordReset{
		ID:        resetID,
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.opts.ResetTokenTTL),
		CreatedAt: now,
	}
	if err := s.store.CreatePasswordReset(ctx, reset); err != nil {
		return fmt.Errorf("save password reset: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name(), s.resetLink(token)); err != nil {
		s.logger.Error("failed to send password reset email", "user_id", user.ID, "error", err)
		return domainerrors.Internal("Failed to send reset email").WithCause(err)
	}

	s.logger.Info("password reset requested", "user_id", user.ID)
	return nil
}

func (s *AuthService) resetLink(token string) string {
	q := url.Values{"mode": {"reset"}, "token": {token}}
	return strings.TrimRight(s.opts.PublicURL, "/") + "/auth?" + q.Encode()
}

// ResetPassword consumes a reset token and sets a new password. Every
// session of the account is revoked.
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if err := CheckNewPassword(req.Password, req.ConfirmPassword); err != nil {
		return err
	}

	expired := domainerrors.TokenExpired("Reset link is invalid or has expired")

	reset, err := s.store.GetPasswordResetByToken(ctx, auth.HashToken(req.Token))
	if errors.Is(err, store.ErrNotFound) {
		return expired
	}
	if err != nil {
		return fmt.Errorf("lookup password reset: %w", err)
	}
	now := time.Now()
	if !reset.Usable(now) {
		return expired
	}

	// Consume first so a concurrent second use fails.
	if err := s.store.MarkPasswordResetUsed(ctx, reset.ID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return expired
		}
		return fmt.Errorf("consume password reset: %w", err)
	}

	user, err := s.store.GetUser(ctx, reset.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if err := s.setPassword(ctx, user, req.Password); err != nil {
		return err
	}

	if _, err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		return err
	}
	if s.favorites != nil {
		s.favorites.Forget(user.ID)
	}

	s.logger.Info("password reset completed", "user_id", user.ID)
	return nil
}

// UpdatePassword changes the password of a signed-in user.
func (s *AuthService) UpdatePassword(ctx context.Context, user *domain.User, password, confirm string) error {
	if user == nil {
		return domainerrors.Unauthorized("Please sign in to change your password")
	}
	if err := CheckNewPassword(password, confirm); err != nil {
		return err
	}
	if err := s.setPassword(ctx, user, password); err != nil {
		return err
	}
	s.logger.Info("password updated", "user_id", user.ID)
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domainerrors.Validation("Password exceeds maximum length").WithCause(err)
	}
	user.PasswordHash = hash
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Identity is the caller behind a verified access token.
type Identity struct {
	User      *domain.User
	SessionID string
	IsAdmin   bool
}

// VerifyAccessToken validates a token and resolves the user behind it.
// The session must still be live, so sign-out and password resets take
// effect before the token expires.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*Identity, error) {
	claims, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, domainerrors.TokenExpired("invalid or expired access token").WithCause(err)
	}

	if err := s.sessions.ValidateSession(ctx, claims.SessionID); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	isAdmin, err := s.store.HasRole(ctx, user.ID, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("role lookup: %w", err)
	}

	return &Identity{User: user, SessionID: claims.SessionID, IsAdmin: isAdmin}, nil
}
