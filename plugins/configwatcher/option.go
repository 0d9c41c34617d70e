package configwatcher

import "github.com/bft-labs/shipctl/pkg/shipctl"

// WithConfigWatcher returns a shipctl Option that enables modules file
// watching.
//
// Usage:
//
//	ctl, err := shipctl.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 500 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) shipctl.Option {
	return shipctl.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher returns a shipctl Option that enables modules
// file watching with default settings.
func WithDefaultConfigWatcher() shipctl.Option {
	return WithConfigWatcher(DefaultConfig())
}
