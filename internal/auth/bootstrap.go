package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vantage-intel/vantage-intel/internal/shared"
)

// EnsureAdmin creates the initial admin account when it does not already
// exist. The password comes from configuration, never from a literal.
func EnsureAdmin(ctx context.Context, logger *slog.Logger, store Store, hasher *Hasher, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: bootstrap admin requires username and password", shared.ErrInvalidInput)
	}
	exists, err := store.Exists(ctx, NormalizeUsername(username))
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := store.Insert(ctx, NormalizeUsername(username), hash, RoleAdmin); err != nil {
		// Another instance may have won the race; the unique constraint
		// makes that outcome indistinguishable from "already exists".
		if errors.Is(err, shared.ErrConflict) {
			return nil
		}
		return err
	}
	if logger != nil {
		logger.Info("bootstrap admin created", slog.String("username", NormalizeUsername(username)))
	}
	return nil
}
