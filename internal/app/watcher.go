package app

import (
	"context"
	"fmt"
	"time"

	fsw "github.com/corey/keyspot/internal/adapters/fsnotify"
	"github.com/corey/keyspot/internal/domain/keywords"
)

// watchReloadTimeout bounds a reload triggered by a keyword file change.
const watchReloadTimeout = 30 * time.Second

// startWatcher watches the keyword file when the source is file-backed.
func (a *App) startWatcher() error {
	fs, ok := a.source.(keywords.FileSource)
	if !ok {
		return fmt.Errorf("source %s is not a file", a.source.Name())
	}
	w, err := fsw.NewWatcher(fsw.DefaultDebounce, a.cfg.Logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Watch(fs.Path, a.onKeywordFileChanged); err != nil {
		w.Stop()
		return err
	}
	a.Watcher = w
	a.log.WithField("file", fs.Path).Info("watching keyword file")
	return nil
}

// onKeywordFileChanged reloads the keyword set after the file settles.
// A failed reload keeps the previous matcher serving.
func (a *App) onKeywordFileChanged(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), watchReloadTimeout)
	defer cancel()

	log := a.log.WithField("file", path)
	res, err := a.Reload(ctx)
	if err != nil {
		log.WithError(err).Warn("reload after keyword file change failed, keeping previous set")
		return
	}
	log.WithField("patterns", res.Patterns).WithField("changed", res.Changed).Info("keyword file reloaded")
}
