// Package configwatcher provides modules file monitoring for shipctl.
// When enabled, it watches the modules file and starts a new session
// whenever the file is written, so edited definitions take effect without
// a restart.
package configwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/shipctl/pkg/log"
	"github.com/bft-labs/shipctl/pkg/shipctl"
)

// Resetter starts a new controller session.
type Resetter interface {
	Reset(ctx context.Context, reason string) error
}

// Plugin implements modules file watching.
type Plugin struct {
	mu sync.Mutex

	retryInterval time.Duration
	debounceDelay time.Duration
	resetTimeout  time.Duration

	path     string
	resetter Resetter
	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	resets   int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// RetryInterval is the delay between reset attempts on failure.
	// Default: 5 seconds
	RetryInterval time.Duration

	// DebounceDelay is how long the file must stay unchanged before the
	// session is reset. Editors often write a file several times.
	// Default: 250 milliseconds
	DebounceDelay time.Duration

	// ResetTimeout bounds one reset request.
	// Default: 10 seconds
	ResetTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RetryInterval: 5 * time.Second,
		DebounceDelay: 250 * time.Millisecond,
		ResetTimeout:  10 * time.Second,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}

	return &Plugin{
		retryInterval: cfg.RetryInterval,
		debounceDelay: cfg.DebounceDelay,
		resetTimeout:  cfg.ResetTimeout,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching cfg.ModulesFile.
func (p *Plugin) Initialize(ctx context.Context, cfg shipctl.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	var resetter Resetter
	if cfg.Controller != nil {
		resetter = cfg.Controller
	}
	return p.start(ctx, cfg.ModulesFile, resetter, logger)
}

func (p *Plugin) start(ctx context.Context, path string, resetter Resetter, logger log.Logger) error {
	p.mu.Lock()
	p.path = path
	p.resetter = resetter
	p.logger = logger
	p.mu.Unlock()

	if path == "" || resetter == nil {
		logger.Warn("config watcher disabled: no modules file or controller")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace files by rename, which drops a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	logger.Info("config watcher started", log.String("path", path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and waits for a pending reset.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Lock()
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

// Resets returns how many sessions the plugin has reset.
func (p *Plugin) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReset(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReset(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil && p.debounce.Stop() {
		// The stopped timer never ran; release its slot.
		p.wg.Done()
	}
	p.wg.Add(1)
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		defer p.wg.Done()
		p.resetWithRetry(ctx)
	})
}

// resetWithRetry retries until success or context cancellation.
func (p *Plugin) resetWithRetry(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		resetCtx, cancel := context.WithTimeout(ctx, p.resetTimeout)
		err := p.resetter.Reset(resetCtx, "modules file changed")
		cancel()
		if err == nil {
			p.mu.Lock()
			p.resets++
			p.mu.Unlock()
			p.logger.Info("config watcher: session reset", log.Int("attempts", attempt))
			return
		}

		p.logger.Error("config watcher: reset failed", log.Err(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.retryInterval):
		}
	}
}

var _ shipctl.Plugin = (*Plugin)(nil)
