package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/iamcore/pkg/cryptox"
	"github.com/aussiebroadwan/iamcore/pkg/jwtx"
)

// Keys is the secret material the services are built from.
type Keys struct {
	Signer  *jwtx.HS256
	Hasher  *cryptox.MultiHasher
	Secrets *cryptox.SecretBox
}

// InitAuthKeys builds the token signer, the password hasher and the OTP
// secret box.
//
// The pepper file is created on first start. Losing it makes every existing
// Argon2id digest unverifiable, so it belongs on a persistent volume next to
// the database.
//
// Without AUTH_TFA_SECRET_KEY, OTP secrets are stored in plaintext.
func InitAuthKeys(cfg Config, logger *slog.Logger) (Keys, error) {
	signer, err := jwtx.NewHS256([]byte(cfg.JWTSecret), cfg.Issuer, cfg.Audience)
	if err != nil {
		return Keys{}, fmt.Errorf("token signer: %w", err)
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return Keys{}, fmt.Errorf("load pepper: %w", err)
	}
	hasher, err := cryptox.NewHasher(cfg.PasswordHasher, pepper, cfg.BcryptCost)
	if err != nil {
		return Keys{}, fmt.Errorf("password hasher: %w", err)
	}

	box, err := cryptox.NewSecretBox(cfg.TFASecretKey)
	if err != nil {
		return Keys{}, fmt.Errorf("otp secret box: %w", err)
	}
	if !box.Enabled() {
		logger.Warn("AUTH_TFA_SECRET_KEY is not set, OTP secrets are stored unencrypted")
		box = nil
	}

	logger.Info("auth keys initialized",
		"issuer", cfg.Issuer,
		"audience", cfg.Audience,
		"password_hasher", cfg.PasswordHasher,
		"otp_sealing", box != nil,
	)
	return Keys{Signer: signer, Hasher: hasher, Secrets: box}, nil
}
