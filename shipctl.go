// Package shipctl runs a ship module controller until its context ends.
//
// Example usage:
//
//	cfg := shipctl.Config{ModulesFile: "/etc/shipctl/modules.toml", ForceState: true}
//	if err := shipctl.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// For control over the lifecycle, plugins and commands use
// github.com/bft-labs/shipctl/pkg/shipctl directly.
package shipctl

import (
	"context"

	"github.com/bft-labs/shipctl/pkg/shipctl"
)

// Config holds the configuration of the controller.
type Config = shipctl.Config

// Option configures optional behavior of the controller.
type Option = shipctl.Option

// Run starts the controller and blocks until ctx is canceled, then stops
// it. It returns the first start or stop error.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	ctl, err := shipctl.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := ctl.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return ctl.Stop()
}
