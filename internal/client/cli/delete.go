package cli

import (
	"context"
	"fmt"

	"github.com/pipecalc/pipesync/internal/client/storage"
)

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing record ID. Usage: pipesync delete <id>")
	}
	id := args[0]

	if err := c.recordsService.Delete(ctx, id); err != nil {
		if err == storage.ErrRecordNotFound {
			return fmt.Errorf("record %s not found", id)
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}

	fmt.Printf("✓ Record %s deleted locally.\n", id)
	fmt.Println()
	fmt.Println("The deletion will reach the server on the next sync.")

	return nil
}
