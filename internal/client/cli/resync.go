package cli

import (
	"context"
	"fmt"

	"github.com/pipecalc/pipesync/internal/client/storage"
)

func (c *Cli) runResync(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing record ID. Usage: pipesync resync <id>")
	}
	id := args[0]

	if err := c.recordsService.ForceResync(ctx, id); err != nil {
		if err == storage.ErrRecordNotFound {
			return fmt.Errorf("record %s not found", id)
		}
		return err
	}

	fmt.Printf("✓ Record %s queued for retry.\n", id)
	fmt.Println()
	fmt.Println("The local version will be uploaded on the next sync.")

	return nil
}
