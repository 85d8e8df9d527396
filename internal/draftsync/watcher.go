package draftsync

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/andressep95/session-service/internal/autosave"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Observer receives every snapshot read from the draft file.
type Observer interface {
	Observe(snap autosave.Snapshot)
}

// Watcher feeds the draft file into an Observer whenever it changes on disk.
type Watcher struct {
	path string
	obs  Observer
	log  logrus.FieldLogger
}

func NewWatcher(path string, obs Observer, log logrus.FieldLogger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve draft path: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Watcher{
		path: abs,
		obs:  obs,
		log:  log.WithField("draft", abs),
	}, nil
}

// Run reads the draft once, then again after every write, until ctx is done.
// The parent directory is watched rather than the file so editors that save by
// renaming a temp file over the draft are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch draft directory: %w", err)
	}

	w.reload()

	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Error("File watcher error")
		}
	}
}

func (w *Watcher) reload() {
	snap, err := ReadDraft(w.path)
	if err != nil {
		// editors often leave the file briefly empty or partial mid-save
		w.log.WithError(err).Debug("Skipping unreadable draft")
		return
	}
	w.obs.Observe(snap)
}
