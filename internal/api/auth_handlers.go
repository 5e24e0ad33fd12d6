package api

import (
	"context"
	"net"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/estately/estately-server/internal/auth"
	"github.com/estately/estately-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "signUp",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/signup",
		Summary:       "Sign up",
		Description:   "Creates an account with the member role and signs it in. The first account also becomes an admin.",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusCreated,
	}, s.handleSignUp)

	huma.Register(s.api, huma.Operation{
		OperationID: "signIn",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signin",
		Summary:     "Sign in",
		Description: "Authenticates with email and password and returns access and refresh tokens",
		Tags:        []string{"Authentication"},
	}, s.handleSignIn)

	huma.Register(s.api, huma.Operation{
		OperationID: "refreshTokens",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges a refresh token for a new token pair. The old refresh token stops working.",
		Tags:        []string{"Authentication"},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID: "signOut",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signout",
		Summary:     "Sign out",
		Description: "Ends the current session",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSignOut)

	huma.Register(s.api, huma.Operation{
		OperationID: "requestPasswordReset",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/password/reset-request",
		Summary:     "Request password reset",
		Description: "Emails a reset link when the account exists. The response is the same either way.",
		Tags:        []string{"Authentication"},
	}, s.handleRequestPasswordReset)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetPassword",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/password/reset",
		Summary:     "Reset password",
		Description: "Sets a new password using an emailed reset token and signs out every session",
		Tags:        []string{"Authentication"},
	}, s.handleResetPassword)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePassword",
		Method:      http.MethodPut,
		Path:        "/api/v1/auth/password",
		Summary:     "Update password",
		Description: "Changes the password of the signed-in user",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePassword)
}

// === DTOs ===

// ClientHeaders captures the caller details stored on a session.
type ClientHeaders struct {
	UserAgent  string `header:"User-Agent"`
	remoteAddr string
}

// Resolve implements huma.Resolver.
func (c *ClientHeaders) Resolve(ctx huma.Context) []error {
	c.remoteAddr = ctx.RemoteAddr()
	return nil
}

func (c *ClientHeaders) client() auth.ClientInfo {
	ip := c.remoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return auth.ClientInfo{IPAddress: ip, UserAgent: c.UserAgent}.Normalize()
}

// SignUpInput wraps the sign-up request for huma.
type SignUpInput struct {
	ClientHeaders
	Body service.SignUpRequest
}

// SignInInput wraps the sign-in request for huma.
type SignInInput struct {
	ClientHeaders
	Body service.SignInRequest
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" doc:"Refresh token"`
}

// RefreshInput wraps the refresh request for huma.
type RefreshInput struct {
	ClientHeaders
	Body RefreshRequest
}

// AuthOutput wraps the auth response for huma.
type AuthOutput struct {
	Body service.AuthResponse
}

// ResetRequestBody asks for a reset email.
type ResetRequestBody struct {
	Email string `json:"email" doc:"Account email"`
}

// ResetRequestInput wraps the reset request for huma.
type ResetRequestInput struct {
	Body ResetRequestBody
}

// ResetPasswordInput wraps a password reset for huma.
type ResetPasswordInput struct {
	Body service.ResetPasswordRequest
}

// UpdatePasswordRequest changes the signed-in user's password.
type UpdatePasswordRequest struct {
	Password        string `json:"password" doc:"New password"`
	ConfirmPassword string `json:"confirm_password" doc:"New password again"`
}

// UpdatePasswordInput wraps a password update for huma.
type UpdatePasswordInput struct {
	Body UpdatePasswordRequest
}

// === Handlers ===

func (s *Server) handleSignUp(ctx context.Context, input *SignUpInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.SignUp(ctx, input.Body, input.client())
	if err != nil {
		return nil, s.handlerError(err, "sign up failed")
	}
	return &AuthOutput{Body: *resp}, nil
}

func (s *Server) handleSignIn(ctx context.Context, input *SignInInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.SignIn(ctx, input.Body, input.client())
	if err != nil {
		return nil, s.handlerError(err, "sign in failed")
	}
	return &AuthOutput{Body: *resp}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Refresh(ctx, input.Body.RefreshToken, input.client())
	if err != nil {
		return nil, s.handlerError(err, "token refresh failed")
	}
	return &AuthOutput{Body: *resp}, nil
}

func (s *Server) handleSignOut(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Auth.SignOut(ctx, id.User.ID, id.SessionID); err != nil {
		return nil, s.handlerError(err, "sign out failed", "user_id", id.User.ID)
	}
	return &MessageOutput{Body: MessageBody{Message: "Signed out"}}, nil
}

func (s *Server) handleRequestPasswordReset(ctx context.Context, input *ResetRequestInput) (*MessageOutput, error) {
	if err := s.services.Auth.RequestPasswordReset(ctx, input.Body.Email); err != nil {
		return nil, s.handlerError(err, "password reset request failed")
	}
	return &MessageOutput{Body: MessageBody{
		Message: "If an account exists for that email, a reset link is on its way.",
	}}, nil
}

func (s *Server) handleResetPassword(ctx context.Context, input *ResetPasswordInput) (*MessageOutput, error) {
	if err := s.services.Auth.ResetPassword(ctx, input.Body); err != nil {
		return nil, s.handlerError(err, "password reset failed")
	}
	return &MessageOutput{Body: MessageBody{Message: "Password updated. Please sign in again."}}, nil
}

func (s *Server) handleUpdatePassword(ctx context.Context, input *UpdatePasswordInput) (*MessageOutput, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Auth.UpdatePassword(ctx, id.User, input.Body.Password, input.Body.ConfirmPassword); err != nil {
		return nil, s.handlerError(err, "password update failed", "user_id", id.User.ID)
	}
	return &MessageOutput{Body: MessageBody{Message: "Password updated"}}, nil
}
