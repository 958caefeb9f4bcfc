package mirror

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/util"
)

// Watch reports collections whose mirror file was rewritten by another
// process (for example a second showcasectl instance sharing the
// directory). Rapid writes are coalesced over debounce. Writes made by f
// itself are ignored. Watch blocks until ctx is cancelled.
func (f *File) Watch(ctx context.Context, debounce time.Duration, log *zap.Logger, fn func(catalog.Collection)) error {
	if err := util.EnsureDir(f.dir); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(f.dir); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	log.Debug("watching mirror directory", zap.String("dir", f.dir))

	pending := map[catalog.Collection]time.Time{}
	tick := time.NewTicker(debounce / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if c, ok := f.collectionFor(ev.Name); ok {
				pending[c] = time.Now()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("mirror watch error", zap.Error(err))

		case now := <-tick.C:
			for c, at := range pending {
				if now.Sub(at) < debounce {
					continue
				}
				delete(pending, c)
				if f.Changed(c) {
					log.Info("mirror changed on disk", zap.String("collection", string(c)))
					fn(c)
				}
			}
		}
	}
}

func (f *File) collectionFor(name string) (catalog.Collection, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".yml") {
		return "", false
	}
	c, err := catalog.ParseCollection(strings.TrimSuffix(base, ".yml"))
	if err != nil {
		return "", false
	}
	return c, true
}
