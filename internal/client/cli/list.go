package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/pipecalc/pipesync/internal/client/storage"
	"github.com/pipecalc/pipesync/internal/models"
)

func (c *Cli) runList(ctx context.Context, args []string) error {
	filter := storage.QueryFilter{}
	if len(args) > 0 {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		filter.Kind = kind
	}

	list, err := c.recordsService.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No records found.")
		fmt.Println()
		fmt.Println("Use 'pipesync add calculation' to save your first calculation.")
		return nil
	}

	fmt.Printf("Found %d record(s):\n", len(list))
	fmt.Println()

	for i, record := range list {
		fmt.Printf("%d. %s\n", i+1, record.ID)
		fmt.Printf("   Kind:    %s\n", record.Kind)
		fmt.Printf("   Status:  %s%s\n", record.SyncStatus, statusHint(record))
		fmt.Printf("   Updated: %s\n", record.UpdatedAt.Format(time.RFC3339))
		if record.LastError != "" {
			fmt.Printf("   Error:   %s\n", record.LastError)
		}
		fmt.Println()
	}

	fmt.Println("Use 'pipesync get <id>' to view payload details.")

	return nil
}

// statusHint подсказывает пользователю следующий шаг для проблемных статусов
func statusHint(record *models.Record) string {
	switch record.SyncStatus {
	case models.StatusConflict:
		return " (server version differs, use 'pipesync resync <id>' to keep local)"
	case models.StatusFailed:
		return " (upload failed, use 'pipesync resync <id>' to retry)"
	default:
		return ""
	}
}
