package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/story-graph/data"
	"github.com/jwebster45206/story-graph/internal/config"
	"github.com/jwebster45206/story-graph/internal/logger"
	"github.com/jwebster45206/story-graph/internal/storage"
	"github.com/jwebster45206/story-graph/pkg/engine"
	pkgstorage "github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/jwebster45206/story-graph/pkg/wait"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() {
		_ = logFile.Close() // Ignore error in defer
	}()
	log := logger.WithSlot(logger.Setup(cfg, logFile), cfg.SaveSlot)

	st, source, err := storage.NewStoryLoader(data.StoryJSON, log).Load(cfg.StoryPath)
	if err != nil {
		logger.WithError(log, err).Error("Failed to load story")
		return fmt.Errorf("failed to load story: %w", err)
	}
	log.Info("Story loaded", "source", source, "nodes", len(st.Nodes))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		logger.WithError(log, err).Error("Failed to open save storage", "backend", cfg.SaveBackend)
		return fmt.Errorf("failed to open %s save storage: %w", cfg.SaveBackend, err)
	}
	defer func() {
		_ = store.Close() // Ignore error in defer
	}()

	sched := wait.NewScheduler(cfg.Debug, cfg.DebugDelay)
	it := engine.New(st, store, cfg.SaveSlot, engine.Options{
		Logger:    log,
		Scheduler: sched,
		OnWaitComplete: func() {
			fmt.Fprint(os.Stdout, "\a")
		},
	})

	var notice string
	save, err := it.Load(ctx)
	switch {
	case errors.Is(err, pkgstorage.ErrCorruptSave):
		notice = "Your saved game could not be read and was reset."
		logger.WithError(log, err).Warn("Save discarded")
	case err != nil:
		return fmt.Errorf("failed to read save: %w", err)
	}

	p := tea.NewProgram(NewConsoleUI(ctx, it, sched, cfg.Language, save, notice),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	_, runErr := p.Run()

	// One last save on a fresh context: ctx may already be cancelled by the signal
	persistCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := it.Persist(persistCtx); err != nil && !errors.Is(err, engine.ErrNoSession) {
		logger.WithError(log, err).Error("Final save failed")
		return fmt.Errorf("failed to save progress: %w", err)
	}
	log.Info("Progress saved, exiting")

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("error running program: %w", runErr)
	}
	return nil
}
