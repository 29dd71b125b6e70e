package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pipecalc/pipesync/internal/client/storage"
)

func (c *Cli) runGet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing record ID. Usage: pipesync get <id>")
	}
	id := args[0]

	record, err := c.recordsService.Get(ctx, id)
	if err != nil {
		if err == storage.ErrRecordNotFound {
			return fmt.Errorf("record %s not found", id)
		}
		return fmt.Errorf("failed to get record: %w", err)
	}

	fmt.Printf("ID:        %s\n", record.ID)
	fmt.Printf("Kind:      %s\n", record.Kind)
	fmt.Printf("Status:    %s\n", record.SyncStatus)
	if record.Deleted {
		fmt.Println("Deleted:   yes (pending sync to server)")
	}
	fmt.Printf("Created:   %s\n", record.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated:   %s\n", record.UpdatedAt.Format(time.RFC3339))
	if record.ServerID != "" {
		fmt.Printf("Server ID: %s\n", record.ServerID)
	}
	if record.LastError != "" {
		fmt.Printf("Error:     %s\n", record.LastError)
	}

	fmt.Println()
	fmt.Println("Payload:")
	fmt.Println(indentJSON(record.Payload))

	return nil
}

// indentJSON форматирует payload для чтения; при ошибке отдает как есть
func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
