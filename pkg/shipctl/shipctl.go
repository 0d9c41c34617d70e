package shipctl

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/shipctl/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/shipctl/internal/adapters/http"
	logAdapter "github.com/bft-labs/shipctl/internal/adapters/log"
	"github.com/bft-labs/shipctl/internal/adapters/mqtt"
	"github.com/bft-labs/shipctl/internal/app"
	"github.com/bft-labs/shipctl/internal/device"
	"github.com/bft-labs/shipctl/internal/metrics"
	"github.com/bft-labs/shipctl/internal/ports"
	"github.com/bft-labs/shipctl/internal/registry"
)

// Shipctl is a module controller that can be embedded in other
// applications. Use New() to create an instance, then Start() to load the
// modules and serve commands.
type Shipctl struct {
	config   Config
	opts     options
	logger   ports.Logger
	emitter  *eventEmitterWrapper
	devices  *device.Bank
	registry *prometheus.Registry
	recorder *metrics.PrometheusRecorder

	mu       sync.RWMutex
	host     *app.Host
	ctrl     *app.Serialized
	periodic *app.PeriodicCheck
	server   *httpAdapter.Server
	mqtt     *mqtt.Client
	started  []Plugin
}

// New creates a new Shipctl instance with the given configuration.
// The instance is created in StateStopped; call Start() to load modules.
func New(cfg Config, opts ...Option) (*Shipctl, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	devices := o.devices
	if devices == nil {
		devices = device.NewBank()
	}
	reg := o.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Shipctl{
		config:   cfg,
		opts:     o,
		logger:   o.logger,
		emitter:  &eventEmitterWrapper{handler: o.eventHandler},
		devices:  devices,
		registry: reg,
		recorder: metrics.NewPrometheusRecorder(reg),
	}, nil
}

// Start loads the modules and begins serving in the background. It returns
// once the first session is queued; initialization completes on the
// following ticks. The provided context bounds the lifetime of the
// controller.
func (s *Shipctl) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.host != nil {
		return ErrAlreadyRunning
	}

	notifiers := logAdapter.Multi{logAdapter.NewNotifier(s.logger)}
	notifiers = append(notifiers, s.opts.notifiers...)

	var (
		client   *mqtt.Client
		notifier *mqtt.Notifier
		topics   = mqtt.Topics{Prefix: s.config.MQTT.TopicPrefix, Ship: s.config.ShipName}
	)
	if s.config.MQTT.Broker != "" {
		c, err := mqtt.Connect(mqtt.Config{
			Broker:   s.config.MQTT.Broker,
			ClientID: s.config.MQTT.ClientID,
			Username: s.config.MQTT.Username,
			Password: s.config.MQTT.Password,
			QoS:      s.config.MQTT.QoS,
			Topics:   topics,
		}, s.logger)
		if err != nil {
			return err
		}
		client = c
		notifier = mqtt.NewNotifier(client, topics, s.recorder, s.logger)
		notifiers = append(notifiers, notifier)
	}

	host := app.NewHost(app.HostConfig{TickInterval: s.config.TickInterval}, app.HostDeps{
		Source:   registry.FileSource(s.config.ModulesFile),
		Devices:  s.devices.Open,
		Notifier: notifiers,
		Recorder: s.recorder,
		Status:   fs.NewStatusFileRepository(s.config.StatusDir),
		Logger:   s.logger,
		Emitter:  s.emitter,
	})
	if err := host.Start(); err != nil {
		closeClient(client)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	lc := host.Lifecycle()
	lc.SetCancel(cancel)

	lc.AddWorker()
	go func() {
		defer lc.WorkerDone()
		if err := host.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("controller loop stopped", ports.Err(err))
		}
	}()

	s.host = host
	s.ctrl = app.NewSerialized(host)
	s.mqtt = client

	if err := s.startSurfaces(runCtx, notifier, topics); err != nil {
		_ = s.stopLocked()
		return err
	}
	return nil
}

func (s *Shipctl) startSurfaces(ctx context.Context, notifier *mqtt.Notifier, topics mqtt.Topics) error {
	lc := s.host.Lifecycle()

	if notifier != nil {
		lc.AddWorker()
		go func() {
			defer lc.WorkerDone()
			notifier.Run(ctx)
		}()
		intake := mqtt.NewIntake(s.ctrl, s.mqtt, notifier, topics, s.logger)
		if err := intake.Start(ctx); err != nil {
			return fmt.Errorf("subscribe to commands: %w", err)
		}
	}

	if s.config.ForceState {
		p, err := app.NewPeriodicCheck(s.ctrl, s.config.CheckInterval, s.logger)
		if err != nil {
			return err
		}
		p.Start()
		s.periodic = p
	}

	if s.config.HTTPAddr != "" {
		handler := httpAdapter.NewHandler(s.ctrl, metrics.HTTPHandler(s.registry), s.logger)
		srv := httpAdapter.NewServer(s.config.HTTPAddr, handler, s.logger)
		if _, err := srv.Start(); err != nil {
			return fmt.Errorf("start http api: %w", err)
		}
		s.server = srv
	}

	pluginCfg := PluginConfig{
		ModulesFile: s.config.ModulesFile,
		StatusDir:   s.config.StatusDir,
		ShipName:    s.config.ShipName,
		Logger:      s.logger,
		Controller:  s.ctrl,
	}
	for _, p := range s.opts.plugins {
		if err := p.Initialize(ctx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			return err
		}
		s.started = append(s.started, p)
		s.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}
	return nil
}

// Stop shuts plugins and surfaces down, stops the controller loop and
// persists a final status. Returns ErrShutdownTimeout if the loop did not
// stop in time.
func (s *Shipctl) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Shipctl) stopLocked() error {
	host := s.host
	if host == nil {
		return ErrNotRunning
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()

	for i := len(s.started) - 1; i >= 0; i-- {
		p := s.started[i]
		if err := p.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		}
	}
	s.started = nil

	if s.server != nil {
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http api shutdown", ports.Err(err))
		}
		s.server = nil
	}
	if s.periodic != nil {
		_ = s.periodic.Stop()
		s.periodic = nil
	}

	host.Lifecycle().Cancel()
	err := host.Lifecycle().WaitWithTimeout(app.ShutdownTimeout)
	if err == nil {
		err = host.Stop()
	}

	closeClient(s.mqtt)
	s.mqtt = nil
	s.host = nil
	s.ctrl = nil
	return err
}

func closeClient(c *mqtt.Client) {
	if c != nil {
		_ = c.Close()
	}
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Shipctl) Status() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.host == nil {
		return StateStopped
	}
	return convertPhase(s.host.Phase())
}

// Controller returns the command surface, or nil when stopped.
func (s *Shipctl) Controller() Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctrl == nil {
		return nil
	}
	return s.ctrl
}

// Snapshot returns the status of every module of the current session.
func (s *Shipctl) Snapshot(ctx context.Context) (Status, error) {
	ctrl := s.Controller()
	if ctrl == nil {
		return Status{}, ErrNotRunning
	}
	return ctrl.Status(ctx)
}

// Devices returns the device bank modules drive.
func (s *Shipctl) Devices() *DeviceBank {
	return s.devices
}

// Registry returns the Prometheus registry controller metrics are
// registered with.
func (s *Shipctl) Registry() *prometheus.Registry {
	return s.registry
}
