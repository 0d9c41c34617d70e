// Package shipctl provides an embeddable controller for ship modules.
//
// A module is a named ship system (reactor, engines, lights) that is
// brought up and down through an ordered sequence of property changes.
// The controller loads the modules from a TOML or YAML file, initializes
// them one per tick, and exposes commands to toggle modules and their
// properties.
//
// # Basic Usage
//
//	cfg := shipctl.Config{
//	    ModulesFile: "/etc/shipctl/modules.toml",
//	}
//
//	ctl, err := shipctl.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := ctl.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
//	reply, err := ctl.Controller().ToggleState(ctx, "Reactor", "console")
//
//	if err := ctl.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Surfaces
//
// With [Config.HTTPAddr] set the controller serves a JSON API and
// Prometheus metrics. With [MQTTConfig.Broker] set notifications are
// published as CloudEvents and console commands are accepted on the
// commands topic. With [Config.ForceState] on, every module is checked on
// [Config.CheckInterval] and devices that drifted are forced back.
//
// # Lifecycle States
//
// A Shipctl instance is in one of [StateStopped], [StateInitializing],
// [StateRunning], [StateStopping] or [StateFaulted]. A session with
// configuration faults ends in StateFaulted and rejects module commands
// until the modules file is fixed and the session reset.
//
// # Plugins
//
// Plugins are started after the controller and stopped before it:
//
//	import "github.com/bft-labs/shipctl/plugins/configwatcher"
//
//	ctl, err := shipctl.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
//	)
package shipctl
