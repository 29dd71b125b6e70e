package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pipecalc/pipesync/internal/client/api"
	"github.com/pipecalc/pipesync/internal/client/auth"
	"github.com/pipecalc/pipesync/internal/client/cli"
	"github.com/pipecalc/pipesync/internal/client/netmon"
	"github.com/pipecalc/pipesync/internal/client/queue"
	"github.com/pipecalc/pipesync/internal/client/records"
	"github.com/pipecalc/pipesync/internal/client/storage/boltdb"
	"github.com/pipecalc/pipesync/internal/client/storage/sqlite"
	"github.com/pipecalc/pipesync/internal/client/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dataDir := flag.String("data-dir", "", "Directory for local databases (default: ~/.pipesync)")
	password := flag.String("password", "", "Password (not recommended, use env var or file)")
	passwordFile := flag.String("password-file", "", "Path to file containing password")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	command := args[0]

	// Логи уходят в stderr, чтобы не мешать выводу команд
	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	dir, err := resolveDataDir(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare data directory: %v\n", err)
		os.Exit(1)
	}

	// Создаем контекст
	ctx := context.Background()

	// Открываем Local Store (SQLite): источник истины для записей
	store, err := sqlite.New(ctx, filepath.Join(dir, "records.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open local store: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close local store", "error", err)
		}
	}()

	// Открываем BoltDB: токены и метаданные синхронизации
	boltStorage, err := boltdb.New(ctx, filepath.Join(dir, "pipesync.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	// Создаем API клиент
	apiClient := api.NewClient(*serverURL)

	// Восстанавливаем очередь синхронизации из статусов записей
	q := queue.New(queue.DefaultConfig(), logger)
	if err := q.Rebuild(ctx, store, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to rebuild sync queue: %v\n", err)
		os.Exit(1)
	}

	// Монитор сети: проверка связности через health endpoint сервера
	monitor := netmon.New(netmon.CheckerFunc(apiClient.Health), logger, netmon.DefaultConfig())
	monitor.Start(ctx)
	defer monitor.Stop()

	authService := auth.NewService(apiClient, auth.NewStore(boltStorage), logger)
	recordsService := records.NewService(store, q, logger)
	syncService := sync.NewService(apiClient, store, boltStorage, q, monitor, authService, logger)

	c := cli.New(authService, recordsService, syncService, q, monitor)
	c.Run(ctx, command, args[1:], cli.Passwords{
		FromFile: *passwordFile,
		FromArgs: *password,
	})
}

// resolveDataDir возвращает каталог для локальных баз, создавая его при
// необходимости. Пустой путь означает ~/.pipesync.
func resolveDataDir(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".pipesync")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	return dir, nil
}

func printVersion() {
	fmt.Printf("PipeSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
