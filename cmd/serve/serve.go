package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vulminator-io/vulminator/internal/api"
	"github.com/vulminator-io/vulminator/internal/app"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
	"github.com/vulminator-io/vulminator/pkg/shared/logger"
)

// RunOptionsServe holds the arguments for the serve command.
type RunOptionsServe struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

var (
	AppConfig         *config.Config
	serveOptions      RunOptionsServe
	exampleServeUsage = `  # Serving the API on the configured address
  vulminator serve

  # Serving the API on all interfaces
  vulminator serve --host 0.0.0.0 --port 8080`
)

// ServeCmd represents the serve command.
var ServeCmd = &cobra.Command{
	Use:                   "serve [--host HOST] [--port PORT] [--shutdown-timeout DURATION]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleServeUsage,
	Short:                 "Serves the analysis HTTP API",
	Args:                  cobra.NoArgs,
	RunE:                  runServeCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-serve")

	if err := validateServeArgs(&serveOptions, AppConfig); err != nil {
		logger.Error("invalid serve arguments", "error", err)
		return err
	}

	service, err := app.NewService(AppConfig, logger)
	if err != nil {
		logger.Error("failed to initialize run service", "error", err)
		return err
	}
	server := api.New(service, serveOptions.Host, serveOptions.Port, AppConfig.Vulminator.WorkspaceFolder, logger.Named("api"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "address", server.Addr())
		return server.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", serveOptions.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveOptions.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down API server: %w", err)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("runs still in progress after shutdown timeout: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("serve command failed", "error", err)
		return err
	}

	logger.Info("serve command completed successfully")
	return nil
}

func init() {
	ServeCmd.Flags().StringVar(&serveOptions.Host, "host", "", "Address to listen on. Defaults to server.host from the configuration.")
	ServeCmd.Flags().IntVar(&serveOptions.Port, "port", 0, "Port to listen on. Defaults to server.port from the configuration.")
	ServeCmd.Flags().DurationVar(&serveOptions.ShutdownTimeout, "shutdown-timeout", 30*time.Second, "How long to wait for running analyses on shutdown.")
	ServeCmd.Flags().BoolP("help", "h", false, "Show help for the serve command.")
}
