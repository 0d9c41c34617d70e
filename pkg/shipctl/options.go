package shipctl

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/shipctl/internal/app"
	"github.com/bft-labs/shipctl/internal/device"
	"github.com/bft-labs/shipctl/internal/ports"
	"github.com/bft-labs/shipctl/pkg/log"
)

// Re-exported types for embedding applications.
type (
	// Logger is the structured logger interface from pkg/log.
	Logger = log.Logger

	// Controller is the goroutine-safe command surface of a running
	// instance.
	Controller = app.Controller

	// Reply is the outcome of a module or property command.
	Reply = app.Reply

	// Status is a snapshot of every module of the current session.
	Status = ports.Status

	// Notifier receives module notifications.
	Notifier = ports.Notifier

	// DeviceBank holds the devices modules drive.
	DeviceBank = device.Bank
)

// Plugin extends a Shipctl instance. Plugins are initialized in
// registration order after the controller started and shut down in
// reverse order before it stops.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	ModulesFile string
	StatusDir   string
	ShipName    string
	Logger      Logger
	Controller  Controller
}

// Option configures optional behavior of Shipctl.
type Option func(*options)

type options struct {
	logger       Logger
	eventHandler EventHandler
	plugins      []Plugin
	notifiers    []ports.Notifier
	devices      *device.Bank
	registry     *prometheus.Registry
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger. If not provided, nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for lifecycle events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithNotifier adds an observer of module notifications.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifiers = append(o.notifiers, n)
	}
}

// WithDevices sets the device bank modules drive. A fresh bank is used
// when not provided.
func WithDevices(bank *DeviceBank) Option {
	return func(o *options) {
		o.devices = bank
	}
}

// WithMetricsRegistry registers controller metrics with reg instead of a
// private registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}
