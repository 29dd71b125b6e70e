package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pipecalc/pipesync/internal/client/sync"
	"github.com/pipecalc/pipesync/internal/models"
)

// runSync выполняет полную сессию: загрузка очереди и скачивание дельты
func (c *Cli) runSync(ctx context.Context, passwords Passwords) error {
	fmt.Println("=== Synchronization ===")

	// Для запросов к серверу нужен расшифрованный access token
	if err := c.Unlock(ctx, passwords); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Starting synchronization with server...")

	session, err := c.syncService.FullSync(ctx)
	return c.reportSession(session, err)
}

// runPush выполняет быструю сессию "sync now": только загрузка очереди.
// С флагом --force backoff игнорируется.
func (c *Cli) runPush(ctx context.Context, args []string, passwords Passwords) error {
	fmt.Println("=== Push Pending Records ===")

	force := false
	for _, arg := range args {
		if arg == "--force" || arg == "-force" {
			force = true
		}
	}

	if err := c.Unlock(ctx, passwords); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Uploading pending records...")

	var (
		session *models.SyncSession
		err     error
	)
	if force {
		session, err = c.syncService.ForceProcessQueue(ctx)
	} else {
		session, err = c.syncService.IncrementalSync(ctx)
	}
	return c.reportSession(session, err)
}

func (c *Cli) reportSession(session *models.SyncSession, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, sync.ErrOffline):
			return fmt.Errorf("device is offline, your changes are safe locally and will sync later")
		case errors.Is(err, sync.ErrSyncInProgress):
			return fmt.Errorf("another synchronization is already running")
		case errors.Is(err, sync.ErrSuspended):
			fmt.Println()
			fmt.Println("Network became unstable, synchronization suspended.")
			fmt.Println("Uploaded records are saved; run 'pipesync sync' again later.")
		default:
			return fmt.Errorf("synchronization failed: %w", err)
		}
	}

	if session == nil {
		return nil
	}

	fmt.Println()
	switch {
	case session.Cancelled:
		fmt.Println("Synchronization was cancelled.")
	case session.Success:
		fmt.Println("✓ Synchronization completed successfully!")
	default:
		fmt.Println("Synchronization finished with errors.")
	}
	fmt.Println()
	fmt.Printf("Uploaded to server:     %d record(s)\n", session.UploadedCount)
	fmt.Printf("Downloaded from server: %d record(s)\n", session.DownloadedCount)
	if session.ConflictCount > 0 {
		fmt.Printf("Conflicts detected:     %d (see 'pipesync list')\n", session.ConflictCount)
	}
	if session.FailedCount > 0 {
		fmt.Printf("Failed uploads:         %d (see 'pipesync list')\n", session.FailedCount)
	}
	fmt.Printf("Duration:               %s\n", session.FinishedAt.Sub(session.StartedAt).Round(time.Millisecond))

	return nil
}
