package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/marco/movieExplorer/internal/api"
	"github.com/marco/movieExplorer/internal/config"
	"github.com/marco/movieExplorer/internal/details"
	"github.com/marco/movieExplorer/internal/favorites"
	"github.com/marco/movieExplorer/internal/favorites/storage"
	"github.com/marco/movieExplorer/internal/logctx"
	"github.com/marco/movieExplorer/internal/search"
)

var (
	configPath = flag.String("config", "", "Path to configuration file (env only when empty)")
	verbose    = flag.Bool("verbose", false, "Show detailed logging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if *verbose {
		fmt.Printf("Configuration loaded from: %s\n", orEnv(*configPath))
		fmt.Printf("Proxy: %s\n", cfg.Client.ProxyURL)
		fmt.Printf("Favorites: %s (%s)\n", cfg.Favorites.Dir, cfg.Favorites.Backend)
	}

	backend, err := storage.Open(cfg.Favorites.Backend, cfg.Favorites.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening favorites storage: %v\n", err)
		os.Exit(1)
	}
	favs := favorites.Open(favorites.NewBackendStorage(backend), favorites.Options{
		Logger: log,
		OnWriteError: func(err error) {
			fmt.Fprintf(os.Stderr, "Warning: favorites not saved: %v\n", err)
		},
	})

	client := api.New(cfg.Client.ProxyURL, cfg.ClientTimeout())
	app := NewApp(search.NewSession(client), details.NewFetcher(client), favs, os.Stdout, *verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx = logctx.Into(ctx, log)

	code := 0
	if flag.NArg() > 0 {
		if err := app.Execute(ctx, strings.Join(flag.Args(), " ")); err != nil && !errors.Is(err, errQuit) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			code = 1
		}
	} else {
		runShell(ctx, app)
	}

	cancel()
	if err := favs.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing favorites storage: %v\n", err)
		code = 1
	}
	os.Exit(code)
}

// runShell reads commands from stdin until quit, EOF or a signal.
func runShell(ctx context.Context, app *App) {
	fmt.Println("Movie Explorer. Type help for commands.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				fmt.Println()
				return
			}
			if err := app.Execute(ctx, line); err != nil {
				if !errors.Is(err, errQuit) {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				}
				return
			}
		}
	}
}

func orEnv(path string) string {
	if path == "" {
		return "environment"
	}
	return path
}
