package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runQueue(ctx context.Context) error {
	stats := c.queue.Stats(time.Now())

	fmt.Println("=== Sync Queue ===")
	fmt.Println()
	fmt.Printf("Total queued:  %d\n", stats.Total)
	fmt.Printf("Ready now:     %d\n", stats.Eligible)
	fmt.Printf("Waiting retry: %d\n", stats.Waiting)
	fmt.Printf("Need resync:   %d\n", stats.Retired)

	if stats.Retired > 0 {
		fmt.Println()
		fmt.Println("Records that exhausted retries stay out of automatic sync.")
		fmt.Println("Use 'pipesync resync <id>' to retry them.")
	}

	return nil
}
