package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/pipecalc/pipesync/internal/client/storage"
	"github.com/pipecalc/pipesync/internal/models"
)

func (c *Cli) runStatus(ctx context.Context) error {
	fmt.Println("=== PipeSync Status ===")
	fmt.Println()

	// Авторизация
	username, err := c.authService.Username(ctx)
	switch {
	case err == storage.ErrAuthNotFound:
		fmt.Println("Auth:     not logged in")
	case err != nil:
		return fmt.Errorf("failed to get auth data: %w", err)
	default:
		authenticated, err := c.authService.IsAuthenticated(ctx)
		if err != nil {
			return fmt.Errorf("failed to check auth status: %w", err)
		}
		if authenticated {
			fmt.Printf("Auth:     logged in as %s\n", username)
		} else {
			fmt.Printf("Auth:     session for %s has expired, please login again\n", username)
		}
	}

	// Сеть
	fmt.Printf("Network:  %s (%s)\n", c.netMonitor.Status(), c.netMonitor.NetworkType())

	stats, err := c.syncService.Statistics(ctx)
	if err != nil {
		return err
	}

	// Очередь
	fmt.Printf("Queue:    %d ready, %d waiting for retry, %d need manual resync\n",
		stats.QueueReady, stats.QueueWaiting, stats.QueueRetired)

	// Конфликты
	conflicts, err := c.recordsService.List(ctx, storage.QueryFilter{Status: models.StatusConflict})
	if err != nil {
		return fmt.Errorf("failed to query conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		fmt.Printf("Conflicts: %d record(s) need attention, see 'pipesync list' and 'pipesync resync <id>'\n", len(conflicts))
	}

	// Последняя сессия
	if stats.LastSyncAt.IsZero() {
		fmt.Println("Sync:     never synchronized")
		return nil
	}

	outcome := "ok"
	if !stats.LastSuccess {
		outcome = "failed"
	}
	fmt.Printf("Sync:     last session %s at %s\n", outcome, stats.LastSyncAt.Format(time.RFC3339))
	fmt.Printf("          uploaded %d, downloaded %d, conflicts %d, failed %d (success rate %.0f%%)\n",
		stats.Uploaded, stats.Downloaded, stats.Conflicts, stats.Failed, stats.SuccessRate*100)

	return nil
}
