package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/estately/estately-server/internal/domain"
	domainerrors "github.com/estately/estately-server/internal/errors"
	"github.com/estately/estately-server/internal/service"
	"github.com/estately/estately-server/internal/sse"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// identityKey is the context key for the verified caller.
const identityKey ctxKey = "identity"

// withIdentity stores the caller in context.
func withIdentity(ctx context.Context, id *service.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// identityFrom returns the caller, or nil for anonymous requests.
func identityFrom(ctx context.Context) *service.Identity {
	id, _ := ctx.Value(identityKey).(*service.Identity)
	return id
}

// currentUser returns the signed-in user or nil. Handlers pass it straight to
// services, which decide whether anonymous access is allowed.
func currentUser(ctx context.Context) *domain.User {
	if id := identityFrom(ctx); id != nil {
		return id.User
	}
	return nil
}

// requireIdentity returns the caller or a 401.
func requireIdentity(ctx context.Context) (*service.Identity, error) {
	id := identityFrom(ctx)
	if id == nil {
		return nil, domainerrors.Unauthorized("Authentication required")
	}
	return id, nil
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// authMiddleware validates Bearer tokens and stores the caller in context.
// Missing or invalid tokens continue anonymously; handlers that need a user
// reject the request themselves.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || auth == nil {
				next.ServeHTTP(w, r)
				return
			}

			id, err := auth.VerifyAccessToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

// identifyStream resolves SSE callers. EventSource cannot set headers, so
// the token may also arrive as the access_token query parameter. A token
// that fails verification rejects the stream; no token means anonymous.
func (s *Server) identifyStream(r *http.Request) (sse.Identity, error) {
	if id := identityFrom(r.Context()); id != nil {
		return sse.Identity{UserID: id.User.ID, IsAdmin: id.IsAdmin}, nil
	}

	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		token = r.URL.Query().Get("access_token")
	}
	if token == "" {
		return sse.Identity{}, nil
	}

	id, err := s.services.Auth.VerifyAccessToken(r.Context(), token)
	if err != nil {
		return sse.Identity{}, err
	}
	return sse.Identity{UserID: id.User.ID, IsAdmin: id.IsAdmin}, nil
}
