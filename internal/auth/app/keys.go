package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/moduhq/modu/pkg/cryptox"
	"github.com/moduhq/modu/pkg/jwtx"
)

// loadOrGenerateSigner reads the RSA signing key from cfg.SigningKeyFile,
// generating and persisting a new one on first boot. Tokens issued before
// a restart stay verifiable because the key survives on disk.
func loadOrGenerateSigner(cfg Config, logger *slog.Logger) (*jwtx.RS256Signer, error) {
	pemKey, err := os.ReadFile(cfg.SigningKeyFile)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		logger.Info("signing key not found, generating", "file", cfg.SigningKeyFile, "bits", cfg.RSABits)
		pemKey, err = cryptox.GenerateRSAKey(cfg.RSABits)
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		if err := os.WriteFile(cfg.SigningKeyFile, pemKey, 0o600); err != nil {
			return nil, fmt.Errorf("persist signing key: %w", err)
		}
	default:
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	signer, err := jwtx.NewSignerRS256(cfg.SigningKeyID, pemKey)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return signer, nil
}
