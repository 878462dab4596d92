package waypoint

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"go.viam.com/pathtracker/logging"
)

// Watch reloads the waypoint file whenever it is written or recreated and hands every path that
// parses to onChange. It blocks until ctx is done. The parent directory is watched so editors
// that replace the file by rename are picked up.
func Watch(
	ctx context.Context,
	file string,
	defaultVelocity float64,
	logger logging.Logger,
	onChange func(*Path),
) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating path watcher")
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Debugw("closing path watcher", "error", err)
		}
	}()

	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "watching %s", filepath.Dir(abs))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("path watcher error", "error", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			p, err := LoadFile(abs, defaultVelocity)
			if err != nil {
				logger.Warnw("ignoring unreadable path update", "file", abs, "error", err)
				continue
			}
			logger.Infow("path file reloaded", "file", abs, "waypoints", p.Len())
			onChange(p)
		}
	}
}
