package config

import (
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher holds an atomically-swappable Config snapshot kept in sync with a
// config file on disk, plus a subscriber hook invoked after every successful
// reload.
type Watcher struct {
	path    string
	current atomic.Pointer[Config]
	onLoad  func(*Config)
}

// NewWatcher loads path once and returns a Watcher serving that snapshot.
func NewWatcher(path string, onLoad func(*Config)) (*Watcher, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, onLoad: onLoad}
	w.current.Store(cfg)
	if onLoad != nil {
		onLoad(cfg)
	}
	return w, nil
}

// Current returns the most recently loaded Config snapshot.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// Start begins watching the config file for writes/renames (atomic-save
// editors replace the file, which fsnotify reports as a rename of the old
// path plus a create of the new one, so the parent directory is watched
// rather than the file alone) and reloads on change, debounced to absorb
// bursts from editors that write in multiple steps.
func (w *Watcher) Start(stop <-chan struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("config: failed to create file watcher, reload disabled")
		return
	}

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		log.WithError(err).WithField("dir", dir).Warn("config: failed to watch config directory, reload disabled")
		_ = watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		const debounceWindow = 200 * time.Millisecond

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceWindow, w.reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config: file watcher error")
			case <-stop:
				if debounce != nil {
					debounce.Stop()
				}
				return
			}
		}
	}()
}

func (w *Watcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		log.WithError(err).WithField("path", w.path).Warn("config: reload failed, keeping previous configuration")
		return
	}
	w.current.Store(cfg)
	log.WithField("path", w.path).Info("config: reloaded")
	if w.onLoad != nil {
		w.onLoad(cfg)
	}
}
