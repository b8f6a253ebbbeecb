// Package watcher re-runs analyses when Java sources change: changed files
// are dropped from the declaration index and the configured targets are
// solved again.
package watcher

import (
	"context"
	"log/slog"
)

// WatchCoordinator routes file changes to the index and the rerun hook.
type WatchCoordinator struct {
	files  FileWatcher
	index  Invalidator
	rerun  Rerun
	logger *slog.Logger
	ctx    context.Context
}

// NewWatchCoordinator creates a new watch coordinator. A nil logger uses
// slog.Default.
func NewWatchCoordinator(files FileWatcher, index Invalidator, rerun Rerun, logger *slog.Logger) *WatchCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchCoordinator{
		files:  files,
		index:  index,
		rerun:  rerun,
		logger: logger,
	}
}

// Start begins routing file changes. Blocks until ctx is cancelled or the
// file watcher fails to start.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		c.cleanup()
		return err
	}
	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		c.logger.Warn("file watcher stop failed", "error", err)
	}
}

// handleFileChange invalidates the changed files and reruns. Changes that
// arrive while the rerun is in progress are held until it finishes.
func (c *WatchCoordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}

	c.files.Pause()
	defer c.files.Resume()

	for _, f := range files {
		c.index.InvalidatePath(f)
	}
	c.logger.Info("sources changed", "files", len(files))

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.rerun(ctx, files); err != nil {
		c.logger.Error("rerun failed", "error", err)
	}
}
