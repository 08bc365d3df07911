package file

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the configuration whenever the file is written or recreated,
// until ctx is done. It returns once the watcher is running.
func (f *File[T]) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory (more reliable for editors that do atomic saves)
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	go f.watchLoop(ctx, watcher)
	f.logger.Info().Msg("watching config file for changes")
	return nil
}

func (f *File[T]) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	filename := filepath.Base(f.path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			f.logger.Debug().Str("event", event.Op.String()).Msg("config file changed")
			if err := f.Reload(); err != nil {
				f.logger.Error().Err(err).Msg("file watch reload failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.logger.Error().Err(err).Msg("file watcher error")
		case <-ctx.Done():
			return
		}
	}
}
