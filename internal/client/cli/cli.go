// Package cli реализует консольный интерфейс клиента pipesync.
// Все команды работы с записями выполняются локально и не требуют сети;
// пароль нужен только командам, которым нужен access token (sync).
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/pipecalc/pipesync/internal/client/auth"
	"github.com/pipecalc/pipesync/internal/client/netmon"
	"github.com/pipecalc/pipesync/internal/client/queue"
	"github.com/pipecalc/pipesync/internal/client/records"
	"github.com/pipecalc/pipesync/internal/client/storage"
	"github.com/pipecalc/pipesync/internal/client/sync"
)

// Passwords источники пароля, переданные через флаги
type Passwords struct {
	FromFile string
	FromArgs string
}

type Cli struct {
	authService    *auth.Service
	recordsService *records.Service
	syncService    *sync.Service
	queue          *queue.Queue
	netMonitor     *netmon.Monitor
}

func New(
	authService *auth.Service,
	recordsService *records.Service,
	syncService *sync.Service,
	q *queue.Queue,
	netMonitor *netmon.Monitor,
) *Cli {
	return &Cli{
		authService:    authService,
		recordsService: recordsService,
		syncService:    syncService,
		queue:          q,
		netMonitor:     netMonitor,
	}
}

// Unlock выводит ключ шифрования токенов из пароля пользователя.
// Нужен командам, которым требуется access token: токены лежат в BoltDB
// зашифрованными, а ключ нигде не хранится.
func (c *Cli) Unlock(ctx context.Context, passwords Passwords) error {
	if _, err := c.authService.Username(ctx); err != nil {
		if err == storage.ErrAuthNotFound {
			return fmt.Errorf("not authenticated. Please run 'pipesync login' first")
		}
		return fmt.Errorf("failed to get auth data: %w", err)
	}

	password, err := c.getPassword(passwords)
	if err != nil {
		return fmt.Errorf("failed to get password: %w", err)
	}

	if err := c.authService.Unlock(ctx, password); err != nil {
		return err
	}

	return nil
}

// getPassword retrieves the password from various sources with priority:
// 1. Environment variable PIPESYNC_PASSWORD
// 2. File specified in the --password-file flag
// 3. Command-line parameter --password
// 4. Interactive prompt (fallback)
func (c *Cli) getPassword(passwords Passwords) (string, error) {
	// Priority 1: Environment variable
	if envPassword := os.Getenv("PIPESYNC_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	// Priority 2: File
	if passwords.FromFile != "" {
		content, err := os.ReadFile(passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	// Priority 3: CLI parameter
	if passwords.FromArgs != "" {
		return passwords.FromArgs, nil
	}

	// Priority 4: Interactive prompt (fallback)
	password, err := readPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	return password, nil
}

func PrintUsage() {
	fmt.Println("PipeSync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pipesync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version              Show version information")
	fmt.Println("  --server URL           Server URL (default: http://localhost:8080)")
	fmt.Println("  --data-dir PATH        Directory for local databases (default: ~/.pipesync)")
	fmt.Println("  --password PASSWORD    Password (not recommended, use env var or file)")
	fmt.Println("  --password-file PATH   Path to file containing password")
	fmt.Println()
	fmt.Println("Password Priority (highest to lowest):")
	fmt.Println("  1. PIPESYNC_PASSWORD environment variable")
	fmt.Println("  2. --password-file (file path)")
	fmt.Println("  3. --password (command line)")
	fmt.Println("  4. Interactive prompt (fallback)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login                    Login to server")
	fmt.Println("  logout                   Logout and remove local session")
	fmt.Println("  status                   Show auth, network and queue status")
	fmt.Println("  add <kind> [JSON]        Add a record (calculation|parameters), payload from arg or stdin")
	fmt.Println("  list [kind]              List local records")
	fmt.Println("  get <id>                 Show full record details")
	fmt.Println("  delete <id>              Delete a record (soft delete, synced to server)")
	fmt.Println("  sync                     Full sync: upload pending records, download server changes")
	fmt.Println("  push                     Quick sync: upload pending records only")
	fmt.Println("  push --force             Upload immediately, ignoring retry backoff")
	fmt.Println("  queue                    Show sync queue statistics")
	fmt.Println("  resync <id>              Force retry of a failed or conflicted record")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Work offline, sync later")
	fmt.Println("  pipesync add calculation '{\"pipe_diameter\": 530, \"wall_thickness\": 8}'")
	fmt.Println("  pipesync list calculation")
	fmt.Println()
	fmt.Println("  # Using environment variable (recommended)")
	fmt.Println("  export PIPESYNC_PASSWORD='mySecretPassword123'")
	fmt.Println("  pipesync sync")
	fmt.Println()
	fmt.Println("  # Using password file (for automation)")
	fmt.Println("  echo 'mySecretPassword123' > ~/.pipesync-password")
	fmt.Println("  chmod 600 ~/.pipesync-password")
	fmt.Println("  pipesync --password-file ~/.pipesync-password sync")
	fmt.Println()
	fmt.Println("  # Other examples")
	fmt.Println("  pipesync get b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5")
	fmt.Println("  pipesync resync b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5")
	fmt.Println("  pipesync --server https://example.com login")
}

// readInput читает строку из stdin
func readInput(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readPassword читает пароль без эха в терминал
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(password)), nil
}
