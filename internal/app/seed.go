package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"datashelf/internal/config"
	"datashelf/internal/domain"
)

// seedAdmin creates the bootstrap ADMIN account when configured and not
// already present. Idempotent: an existing account with the configured
// username is left untouched.
func seedAdmin(ctx context.Context, accounts domain.AccountRepository, hasher domain.CredentialHasher, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Bootstrap.AdminUsername == "" {
		return nil
	}
	if cfg.Bootstrap.AdminPassword == "" {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD is required when BOOTSTRAP_ADMIN_USERNAME is set")
	}

	_, err := accounts.GetByUsername(ctx, cfg.Bootstrap.AdminUsername)
	if err == nil {
		return nil // already seeded
	}
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		return fmt.Errorf("bootstrap admin lookup: %w", err)
	}

	hash, err := hasher.Hash(cfg.Bootstrap.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin password: %w", err)
	}
	if _, err := accounts.Create(ctx, &domain.Account{
		Username:     cfg.Bootstrap.AdminUsername,
		Role:         domain.RoleAdmin,
		Enabled:      true,
		PasswordHash: hash,
	}); err != nil {
		return fmt.Errorf("bootstrap admin create: %w", err)
	}
	logger.Info("bootstrap admin account created", "username", cfg.Bootstrap.AdminUsername)
	return nil
}
