package commands

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/lpspool/internal/logger"
	"github.com/marmos91/lpspool/pkg/config"
)

// watchConfig reloads logging settings when the config file changes.
//
// Only logging level and format are applied live; everything else
// (ports, spool layout, limits) requires a restart. The watch runs until
// ctx is cancelled.
//
// The parent directory is watched rather than the file itself: editors
// and config management tools typically replace the file atomically,
// which would drop a watch on the file's inode.
func watchConfig(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	target := filepath.Clean(path)

	go func() {
		defer func() { _ = watcher.Close() }()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				applyLoggingConfig(path)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watch error", "error", err.Error())
			}
		}
	}()

	logger.Debug("Watching config file for logging changes", "path", path)
	return nil
}

// applyLoggingConfig re-reads the config file and applies the logging
// section. A config file that fails to load leaves the current settings
// untouched.
func applyLoggingConfig(path string) {
	cfg, err := config.Load(path)
	if err != nil {
		logger.Warn("Config reload failed, keeping current logging settings",
			"path", path, "error", err.Error())
		return
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	logger.Info("Logging settings reloaded",
		"level", cfg.Logging.Level, "format", cfg.Logging.Format)
}
