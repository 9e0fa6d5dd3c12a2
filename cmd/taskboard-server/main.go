package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	server "github.com/kazz187/taskboard/internal"
	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/internal/breakdown"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/internal/navigation"
	"github.com/kazz187/taskboard/pkg/clog"
	"github.com/kazz187/taskboard/pkg/panicerr"
	"github.com/kazz187/taskboard/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	if err := run(env); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// run owns every resource it opens; deferred cleanup has finished by the
// time it returns.
func run(env *config.Env) error {
	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Setup storage
	store, closeStorage, err := env.StorageEnv.OpenStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", env.StorageEnv.Type, err)
	}
	defer func() {
		if err := closeStorage(); err != nil {
			slog.Error("failed to close storage", "error", err)
		}
	}()

	var local *storage.LocalStorage
	if env.StorageEnv.Watch {
		var ok bool
		if local, ok = store.(*storage.LocalStorage); !ok {
			return errors.New("storage watch requires local storage")
		}
	}

	var journal *eventbus.Journal
	if env.BaseEnv.JournalDir != "" {
		if journal, err = eventbus.NewJournal(env.BaseEnv.JournalDir); err != nil {
			return fmt.Errorf("failed to open event journal: %w", err)
		}
	}

	// Setup event bus
	bus := eventbus.New()

	// Setup stores
	boardStore := board.NewStore(store, board.WithEventBus(bus))
	boardStore.LoadFromStorage(ctx)

	navOpts := []navigation.Option{navigation.WithEventBus(bus)}
	if env.NavigationEnv.File != "" {
		f, err := navigation.LoadFile(env.NavigationEnv.File)
		if err != nil {
			return fmt.Errorf("failed to load navigation file: %w", err)
		}
		navOpts = append(navOpts, f.Options()...)
	}
	navStore := navigation.NewStore(navOpts...)

	// Setup servers
	boardServer := board.NewServer(boardStore, board.NewSnapshotService(boardStore, store), bus)
	navigationServer := navigation.NewServer(navStore)
	var breakdownServer *breakdown.Server
	if env.AIEnv.Enabled {
		claude := breakdown.NewClaude(env.AIEnv.WorkDir, breakdown.WithTimeout(env.AIEnv.Timeout))
		breakdownServer = breakdown.NewServer(breakdown.NewService(boardStore, claude))
	}

	srv := server.NewServer(env, boardServer, navigationServer, breakdownServer)

	var serveErr error
	wg := conc.NewWaitGroup()
	wg.Go(func() {
		err := panicerr.Safe(func() error { return srv.ListenAndServe(ctx) })()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
			cancel()
		}
	})

	if journal != nil {
		wg.Go(func() {
			if err := panicerr.SafeContext(func(ctx context.Context) error { return journal.Run(ctx, bus) })(ctx); err != nil {
				slog.Error("event journal stopped", "error", err)
			}
		})
	}

	if local != nil {
		watcher := storage.NewWatcher(local, boardStore.StorageKey(), func(ctx context.Context) {
			if boardStore.LoadFromStorage(ctx) {
				slog.InfoContext(ctx, "reloaded tasks from disk")
			}
		})
		wg.Go(func() {
			if err := panicerr.SafeContext(watcher.Run)(ctx); err != nil {
				slog.Error("storage watcher stopped", "error", err)
			}
		})
	}

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after stream contexts are cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	wg.Wait()
	return serveErr
}
