// Package serve implements the command that runs the pipeline and the web API.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/echolens-ai/echolens/internal/api"
	"github.com/echolens-ai/echolens/internal/app"
	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/httpserver"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/telemetry"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the audio pipeline and the web API",
		Long:  "Start the audio pipeline and serve the REST API and level stream until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		panic(err)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	flags := cmd.Flags()
	flags.StringVarP(&settings.WebServer.Port, "port", "p", settings.WebServer.Port, "HTTP listen port")
	flags.StringVar(&settings.Audio.Mode, "mode", settings.Audio.Mode, "Initial pipeline mode: live or demo")
	flags.StringVar(&settings.Audio.Device, "device", settings.Audio.Device, "Capture device name or ID for live mode")
	flags.BoolVar(&settings.Audio.AutoStart, "autostart", settings.Audio.AutoStart, "Start the pipeline on launch")

	for key, name := range map[string]string{
		"webserver.port":  "port",
		"audio.mode":      "mode",
		"audio.device":    "device",
		"audio.autostart": "autostart",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}

// Run builds the services and serves until ctx is cancelled.
func Run(ctx context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("serve")
	defer telemetry.Flush(telemetry.DefaultFlushTimeout)

	a, err := app.New(ctx, settings)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := a.NewServer()
	if err != nil {
		return err
	}

	if a.Retention != nil {
		a.Retention.Start()
		defer a.Retention.Stop()
	}

	if settings.Audio.AutoStart {
		if _, err := a.Pipeline.Start(ctx); err != nil {
			log.Warn("pipeline did not start, it can be started from the API", logger.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer telemetry.RecoverPanic("httpserver")
		return httpserver.Run(gctx, srv, api.DefaultShutdownTimeout)
	})
	g.Go(func() error {
		// stop the pipeline on a signal or when the server fails
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), api.DefaultShutdownTimeout)
		defer cancel()
		if _, err := a.Pipeline.Stop(stopCtx); err != nil {
			log.Warn("failed to stop pipeline", logger.Error(err))
		}
		return nil
	})

	err = g.Wait()
	log.Info("shutdown complete")
	return err
}
