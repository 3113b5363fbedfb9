package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/echolens-ai/echolens/cmd/analyze"
	"github.com/echolens-ai/echolens/cmd/chat"
	"github.com/echolens-ai/echolens/cmd/devices"
	"github.com/echolens-ai/echolens/cmd/serve"
	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "echolens",
		Short:         "EchoLens real-time audio awareness",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		// flags are static, a binding failure is a programming error
		panic(err)
	}

	devicesCmd := devices.Command()
	rootCmd.AddCommand(
		serve.Command(settings),
		analyze.Command(settings),
		chat.Command(settings),
		devicesCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := conf.ValidateSettings(settings); err != nil {
			return err
		}
		if err := initialize(settings); err != nil {
			return err
		}
		// device listing needs no error reporting
		if cmd.Name() == devicesCmd.Name() {
			return nil
		}
		return telemetry.InitSentry(settings)
	}

	return rootCmd
}

// initialize replaces the bootstrap logger with one built from the settings.
func initialize(settings *conf.Settings) error {
	cl, err := logger.NewCentralLogger(settings.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)
	return nil
}

// setupFlags defines flags that are global to the command line interface.
// Flags override the configuration file and environment.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	flags.StringVar(&settings.Main.Name, "name", settings.Main.Name, "Node name used in notifications and MQTT payloads")
	flags.StringVar(&settings.Main.Log.Level, "loglevel", settings.Main.Log.Level, "Log level: trace, debug, info, warn, error")

	if err := viper.BindPFlag("debug", flags.Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("main.name", flags.Lookup("name")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("main.log.level", flags.Lookup("loglevel")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
