package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogin(ctx context.Context, passwords Passwords) error {
	fmt.Println("=== Login ===")
	fmt.Println()

	username, err := readInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	password, err := c.getPassword(passwords)
	if err != nil {
		return fmt.Errorf("failed to get password: %w", err)
	}

	if err := c.authService.Login(ctx, username, password); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("✓ Login successful!")
	fmt.Println()
	fmt.Println("Your session tokens are stored encrypted on this device.")
	fmt.Println("You can now work offline; run 'pipesync sync' to push your changes.")

	return nil
}
