package config

import (
	"context"
	"maps"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
)

// Reload is the part of the configuration applied without a restart:
// the resource table and the log level.
type Reload struct {
	BackendBaseURL string
	Resources      map[string]string
	LogLevel       string
}

// ReloadOf extracts the hot-reloadable settings of cfg.
func ReloadOf(cfg *Config) Reload {
	return Reload{
		BackendBaseURL: cfg.Backend.BaseURL,
		Resources:      maps.Clone(cfg.Resources),
		LogLevel:       cfg.Log.Level,
	}
}

// ResourcesChanged reports whether the resource table must be rebuilt.
func (r Reload) ResourcesChanged(prev Reload) bool {
	return r.BackendBaseURL != prev.BackendBaseURL || !maps.Equal(r.Resources, prev.Resources)
}

// LogLevelChanged reports whether the log level differs.
func (r Reload) LogLevelChanged(prev Reload) bool {
	return r.LogLevel != prev.LogLevel
}

// ReloadFunc applies a changed Reload. prev is the set in effect before.
type ReloadFunc func(next, prev Reload)

// ErrorCallback is called when a changed file is rejected.
type ErrorCallback func(error)

// RestartRequired lists the sections of next that differ from prev but
// only take effect on restart.
func RestartRequired(prev, next *Config) []string {
	a, b := *prev, *next
	// hot-reloadable fields never need a restart
	a.Resources, b.Resources = nil, nil
	a.Log.Level, b.Log.Level = "", ""
	a.Backend.BaseURL, b.Backend.BaseURL = "", ""

	sections := []struct {
		name string
		a, b interface{}
	}{
		{"server", a.Server, b.Server},
		{"log", a.Log, b.Log},
		{"tracing", a.Tracing, b.Tracing},
		{"metrics", a.Metrics, b.Metrics},
		{"pdp", a.PDP, b.PDP},
		{"policy", a.Policy, b.Policy},
		{"backend", a.Backend, b.Backend},
		{"upstream", a.Upstream, b.Upstream},
		{"credential", a.Credential, b.Credential},
		{"vault", a.Vault, b.Vault},
		{"eventLog", a.EventLog, b.EventLog},
		{"rateLimit", a.RateLimit, b.RateLimit},
		{"cors", a.CORS, b.CORS},
	}

	var changed []string
	for _, s := range sections {
		if !reflect.DeepEqual(s.a, s.b) {
			changed = append(changed, s.name)
		}
	}
	return changed
}

// Watcher reloads the resource table and log level when the config file
// changes. A file that fails to load or validate leaves the current
// settings in place.
type Watcher struct {
	path          string
	fs            *fsnotify.Watcher
	apply         ReloadFunc
	errorCallback ErrorCallback
	logger        observability.Logger
	debounceDelay time.Duration

	reloadMu sync.Mutex
	mu       sync.RWMutex
	current  *Config
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// WatcherOption is a functional option for configuring the watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long the file must be quiet before a reload.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = delay
	}
}

// WithLogger sets the logger for the watcher.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the callback for rejected files.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *Watcher) {
		w.errorCallback = callback
	}
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, apply ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:          absPath,
		fs:            fs,
		apply:         apply,
		debounceDelay: 100 * time.Millisecond,
		logger:        observability.NopLogger(),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start reads the file as the baseline and begins watching. The
// directory is watched so editors that replace the file are seen.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	cfg, err := LoadConfig(w.path)
	if err != nil {
		return err
	}
	w.current = cfg

	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.running = true
	go w.loop(ctx)

	w.logger.Info("watching configuration file", observability.String("path", w.path))
	return nil
}

// Stop stops watching and releases the file watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	return w.fs.Close()
}

// Current returns the last accepted configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// ForceReload reads the file now instead of waiting for a change.
func (w *Watcher) ForceReload() error {
	return w.reload()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	debounce := time.NewTimer(w.debounceDelay)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(w.debounceDelay)

		case <-debounce.C:
			_ = w.reload()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.reject(err)
		}
	}
}

func (w *Watcher) reload() error {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	next, err := LoadConfig(w.path)
	if err != nil {
		w.reject(err)
		return err
	}

	w.mu.Lock()
	prev := w.current
	w.current = next
	w.mu.Unlock()

	if prev == nil {
		if w.apply != nil {
			w.apply(ReloadOf(next), Reload{})
		}
		return nil
	}

	if sections := RestartRequired(prev, next); len(sections) > 0 {
		w.logger.Warn("configuration changes need a restart to take effect",
			observability.Strings("sections", sections))
	}

	nextSet, prevSet := ReloadOf(next), ReloadOf(prev)
	if !nextSet.ResourcesChanged(prevSet) && !nextSet.LogLevelChanged(prevSet) {
		w.logger.Debug("no hot-reloadable changes", observability.String("path", w.path))
		return nil
	}

	w.logger.Info("applying configuration reload",
		observability.Bool("resources", nextSet.ResourcesChanged(prevSet)),
		observability.Bool("log_level", nextSet.LogLevelChanged(prevSet)),
	)
	if w.apply != nil {
		w.apply(nextSet, prevSet)
	}
	return nil
}

func (w *Watcher) reject(err error) {
	w.logger.Error("configuration reload rejected", observability.Error(err))
	if w.errorCallback != nil {
		w.errorCallback(err)
	}
}
