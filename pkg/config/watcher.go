package config

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Live holds the current configuration and is safe for concurrent reads.
type Live struct {
	ptr atomic.Pointer[Config]
}

// NewLive wraps cfg.
func NewLive(cfg *Config) *Live {
	l := &Live{}
	l.ptr.Store(cfg)
	return l
}

// Get returns the current configuration. Callers must not mutate it.
func (l *Live) Get() *Config { return l.ptr.Load() }

// Set replaces the configuration seen by subsequent Get calls.
func (l *Live) Set(cfg *Config) { l.ptr.Store(cfg) }

// ForbiddenKeywords returns the current deny-list.
func (l *Live) ForbiddenKeywords() []string { return l.Get().Keywords.Forbidden }

// Watcher reloads keyword lists and labels when the config file changes.
// Structural settings (device, app, storage) are not swapped mid-session.
type Watcher struct {
	path    string
	live    *Live
	log     zerolog.Logger
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	mu      sync.Mutex
	done    chan struct{}
}

// NewWatcher returns a watcher for path feeding live.
func NewWatcher(path string, live *Live, log zerolog.Logger) *Watcher {
	return &Watcher{path: path, live: live, log: log}
}

// Start begins watching the directory containing the config file.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})

	w.log.Info().Str("path", w.path).Msg("watching config for keyword changes")
	go w.watch(fw, w.stopCh, w.done)
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.watcher == nil {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.watcher.Close()
	w.watcher = nil
	done := w.done
	w.mu.Unlock()
	<-done
}

func (w *Watcher) watch(fw *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	var debounce *time.Timer
	var fire <-chan time.Time
	target := filepath.Clean(w.path)

	for {
		select {
		case <-stop:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(300 * time.Millisecond)
			fire = debounce.C
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	fresh, err := Load(w.path)
	if err != nil {
		w.log.Warn().Err(err).Msg("config reload rejected, keeping previous")
		return
	}
	current := *w.live.Get()
	current.Keywords = fresh.Keywords
	current.Labels = fresh.Labels
	w.live.Set(&current)
	w.log.Info().
		Int("forbidden", len(current.Keywords.Forbidden)).
		Int("promotional", len(current.Keywords.Promotional)).
		Msg("config reloaded")
}
