package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/shipctl/internal/cliconfig"
	"github.com/bft-labs/shipctl/pkg/log"
	"github.com/bft-labs/shipctl/pkg/shipctl"
	"github.com/bft-labs/shipctl/plugins/configwatcher"
)

const helpDescription = `
Sequence a ship's modules through their startup and shutdown procedures.

Highlights:
  - Modules are defined in a TOML or YAML file and reloaded when it changes.
  - Commands over HTTP, MQTT or the console; notifications as CloudEvents.
  - Periodic checks force drifted devices back to their commanded state.
`

var exampleUsage = strings.TrimSpace(`
  shipctl --modules-file ./modules.toml
  shipctl --config $HOME/.shipctl/config.toml --mqtt-broker tcp://localhost:1883
  shipctl validate ./modules.toml
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath, envPath string

	bootLog := cliconfig.Logger(zerolog.InfoLevel)

	root := &cobra.Command{
		Use:           "shipctl",
		Short:         "Sequence a ship's modules through startup and shutdown",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath, envPath); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.shipctl/config.toml)")
	root.PersistentFlags().StringVar(&envPath, "env-file", ".env", "dotenv file with SHIPCTL_* variables")

	root.Flags().StringVar(&cfg.ModulesFile, "modules-file", cfg.ModulesFile, "TOML or YAML file with module definitions")
	root.Flags().StringVar(&cfg.ShipName, "ship-name", cfg.ShipName, "ship name used in topics and event sources")
	root.Flags().DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "scheduler tick interval")
	root.Flags().DurationVar(&cfg.CheckInterval, "check-interval", cfg.CheckInterval, "periodic module check interval")
	root.Flags().BoolVar(&cfg.ForceState, "force-state", cfg.ForceState, "periodically force drifted devices back to their commanded state")
	root.Flags().BoolVar(&cfg.Debug, "debug", cfg.Debug, "log at debug level")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP API listen address (empty disables)")
	root.Flags().StringVar(&cfg.StatusDir, "status-dir", cfg.StatusDir, "directory for status.json (defaults to the modules file directory)")
	root.Flags().StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "MQTT broker URL (empty disables)")
	root.Flags().StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client id (default: shipctl-<ship-name>)")
	root.Flags().StringVar(&cfg.MQTTTopicPrefix, "mqtt-topic-prefix", cfg.MQTTTopicPrefix, "MQTT topic prefix")
	root.Flags().StringVar(&cfg.MQTTUsername, "mqtt-username", cfg.MQTTUsername, "MQTT username")
	root.Flags().StringVar(&cfg.MQTTPassword, "mqtt-password", cfg.MQTTPassword, "MQTT password")

	root.AddCommand(validateCommand())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		bootLog.Error().Err(err).Msg("shipctl")
		stop()
		os.Exit(1)
	}
}

// loadConfig applies the config file, the environment and then flags, in
// increasing precedence.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath, envPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.LoadDotEnv(envPath); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	return cfg.Validate()
}

func run(ctx context.Context, cfg cliconfig.Config) error {
	zl := cliconfig.Logger(log.ParseLevel(cfg.LogLevel))
	zl.Info().Interface("config", cfg.Redacted()).Msg("configuration")
	logger := log.NewZerologAdapterWithLogger(zl)

	ctl, err := shipctl.New(shipctl.Config{
		ModulesFile:   cfg.ModulesFile,
		ShipName:      cfg.ShipName,
		TickInterval:  cfg.TickInterval,
		ForceState:    cfg.ForceState,
		CheckInterval: cfg.CheckInterval,
		StatusDir:     cfg.StatusDir,
		HTTPAddr:      cfg.HTTPAddr,
		MQTT: shipctl.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
		},
	},
		shipctl.WithLogger(logger),
		configwatcher.WithDefaultConfigWatcher(),
	)
	if err != nil {
		return fmt.Errorf("create controller: %w", err)
	}

	if err := ctl.Start(ctx); err != nil {
		return fmt.Errorf("start controller: %w", err)
	}

	<-ctx.Done()
	zl.Info().Msg("received signal, stopping...")

	if err := ctl.Stop(); err != nil && !errors.Is(err, shipctl.ErrNotRunning) {
		return fmt.Errorf("stop controller: %w", err)
	}
	return nil
}

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [modules-file]",
		Short: "Parse a modules file and report configuration faults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cliconfig.DefaultModulesFile
			if len(args) == 1 {
				path = args[0]
			}

			names, err := shipctl.ValidateModules(path)
			out := cmd.OutOrStdout()
			for _, n := range names {
				fmt.Fprintf(out, "module %s\n", n)
			}
			if err != nil {
				for _, line := range strings.Split(err.Error(), "\n") {
					fmt.Fprintf(out, "fault: %s\n", line)
				}
				return fmt.Errorf("%s: configuration has faults", path)
			}
			fmt.Fprintf(out, "%s: %d modules, no faults\n", path, len(names))
			return nil
		},
	}
}
