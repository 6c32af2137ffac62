package server

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the registry whenever the source file is written or replaced,
// until ctx is done. The directory is watched so editors that save by rename
// are picked up.
func (s *Server) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	abs, err := filepath.Abs(s.source)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolving %s: %w", s.source, err)
	}

	if err = watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	go s.watchLoop(ctx, watcher, filepath.Base(abs))

	s.log.WithField("source", abs).Info("watching source for changes")

	return nil
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, filename string) {
	defer watcher.Close()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			s.log.WithField("event", event.Op.String()).Debug("source changed")
			if err := s.Reload(ctx); err != nil {
				s.log.WithError(err).Error("reload failed, keeping the current registry")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Error("watcher error")

		case <-ctx.Done():
			return
		}
	}
}
