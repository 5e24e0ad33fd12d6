package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/estately/estately-server/internal/auth"
	"github.com/estately/estately-server/internal/config"
	"github.com/estately/estately-server/internal/logger"
)

// SigningKey is the symmetric key that seals session tokens. It lives in the
// data directory so sessions survive restarts.
type SigningKey []byte

// ProvideSigningKey reads the session signing key, creating it on first boot.
func ProvideSigningKey(i do.Injector) (SigningKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	log.Info("Session signing key ready",
		"dir", filepath.Clean(cfg.Data.BasePath),
		"session_ttl", cfg.Auth.RefreshTokenDuration,
		"access_ttl", cfg.Auth.AccessTokenDuration,
		"reset_ttl", cfg.Auth.ResetTokenDuration,
	)

	return SigningKey(key), nil
}

// ProvideTokenService issues and verifies the bearer tokens handed to clients.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[SigningKey](i)

	return auth.NewTokenService(key, cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
}
