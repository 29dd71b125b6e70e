package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pipecalc/pipesync/internal/models"
)

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing record kind. Usage: pipesync add <calculation|parameters> [JSON]")
	}

	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}

	// Payload берем из аргумента либо читаем из stdin (для пайпов)
	var payload json.RawMessage
	if len(args) > 1 {
		payload = json.RawMessage(args[1])
	} else {
		fmt.Fprintln(os.Stderr, "Reading payload JSON from stdin...")
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read payload from stdin: %w", err)
		}
		payload = json.RawMessage(data)
	}

	record, err := c.recordsService.Create(ctx, kind, payload)
	if err != nil {
		return err
	}

	fmt.Println("✓ Record saved locally.")
	fmt.Println()
	fmt.Printf("ID:     %s\n", record.ID)
	fmt.Printf("Kind:   %s\n", record.Kind)
	fmt.Printf("Status: %s\n", record.SyncStatus)
	fmt.Println()
	fmt.Println("The record is queued for upload. Run 'pipesync sync' when online.")

	return nil
}

// parseKind принимает и короткие пользовательские имена, и канонические
func parseKind(s string) (models.RecordKind, error) {
	switch s {
	case "calculation", "calc", string(models.KindCalculationRecord):
		return models.KindCalculationRecord, nil
	case "parameters", "params", string(models.KindParameterSet):
		return models.KindParameterSet, nil
	default:
		return "", fmt.Errorf("unknown record kind: %s. Use: calculation or parameters", s)
	}
}
