package session

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reloads the Store when the token file is written or removed by
// another process (a login or logout from the CLI).
type Watcher struct {
	store    *Store
	debounce time.Duration
	onChange func(Snapshot)
	logger   *logrus.Entry
}

// NewWatcher creates a Watcher for the store's token file. onChange is
// called with the new session whenever the token changes.
func NewWatcher(store *Store, debounce time.Duration, onChange func(Snapshot)) *Watcher {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		store:    store,
		debounce: debounce,
		onChange: onChange,
		logger:   store.logger.WithField("worker", "token-watcher"),
	}
}

// Name returns the worker's name.
func (w *Watcher) Name() string { return "token-watcher" }

// Run watches the token file's directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	tokenFile := w.store.TokenFile()
	if tokenFile == "" {
		<-ctx.Done()
		return nil
	}
	tokenFile = filepath.Clean(tokenFile)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// fsnotify cannot watch a file that does not exist yet, so watch its directory.
	dir := filepath.Dir(tokenFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	if err := fw.Add(dir); err != nil {
		return err
	}

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != tokenFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			// Trailing debounce: editors write a file in several steps.
			if timer == nil {
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.debounce)
			}
		case <-fire:
			w.reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) reload() {
	before := w.store.Current().Token
	if err := w.store.Load(); err != nil {
		w.logger.WithError(err).Warn("Failed to reload token file")
	}
	after := w.store.Current()
	if after.Token == before {
		return
	}
	if after.LoggedIn() {
		w.logger.Info("Token file changed, session replaced")
	} else {
		w.logger.Info("Token file removed, session cleared")
	}
	if w.onChange != nil {
		w.onChange(after)
	}
}
