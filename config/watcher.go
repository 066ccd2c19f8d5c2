package config

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/tachyontrading/tachyon/logging"
)

const namedLogger = "cfgwatcher"

// Watcher holds the live configuration and reloads it when the file on disk
// changes, notifying registered listeners.
type Watcher struct {
	log  *logging.Logger
	cfg  Config
	root string

	cfgUpdateListeners []func(Config)
	mu                 sync.Mutex
}

// NewWatcher loads the configuration under root and starts watching the
// file for changes until the context is done.
func NewWatcher(ctx context.Context, log *logging.Logger, root string) (*Watcher, error) {
	watcherLog := log.Named(namedLogger)
	// always notified of configuration changes, whatever the root level
	watcherLog.SetLevel(logging.DebugLevel)

	w := &Watcher{
		log:                watcherLog,
		root:               root,
		cfgUpdateListeners: []func(Config){},
	}
	if err := w.load(); err != nil {
		return nil, err
	}
	if err := w.watch(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// Get returns the current configuration.
func (w *Watcher) Get() Config {
	w.mu.Lock()
	cfg := w.cfg
	w.mu.Unlock()
	return cfg
}

// OnConfigUpdate registers a listener called after every successful reload.
func (w *Watcher) OnConfigUpdate(f func(Config)) {
	w.mu.Lock()
	w.cfgUpdateListeners = append(w.cfgUpdateListeners, f)
	w.mu.Unlock()
}

func (w *Watcher) notifyCfgUpdate() {
	w.mu.Lock()
	for _, f := range w.cfgUpdateListeners {
		f(w.cfg)
	}
	w.mu.Unlock()
}

func (w *Watcher) load() error {
	cfg, err := Read(w.root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()
	return nil
}

func (w *Watcher) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(FilePath(w.root)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event := <-watcher.Events:
				if event.Op&fsnotify.Write == fsnotify.Write {
					w.log.Info("configuration updated",
						logging.String("event", event.Name))
					if err := w.load(); err != nil {
						w.log.Error("unable to load configuration", logging.Error(err))
						continue
					}
					w.notifyCfgUpdate()
				}
			case err := <-watcher.Errors:
				w.log.Error("config watcher received error event", logging.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
