package cli

import (
	"context"
	"fmt"

	"github.com/pipecalc/pipesync/internal/client/storage"
)

func (c *Cli) runLogout(ctx context.Context) error {
	// Удаляем сессию даже если токен уже истек
	if _, err := c.authService.Username(ctx); err != nil {
		if err == storage.ErrAuthNotFound {
			fmt.Println("Not logged in.")
			return nil
		}
		return fmt.Errorf("failed to check auth status: %w", err)
	}

	if err := c.authService.Logout(ctx); err != nil {
		return err
	}

	fmt.Println("✓ Logged out.")
	fmt.Println()
	fmt.Println("Local records are kept on this device. Pending changes will be")
	fmt.Println("uploaded after the next login and sync.")

	return nil
}
