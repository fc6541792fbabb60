package submit

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vulminator-io/vulminator/internal/api"
	"github.com/vulminator-io/vulminator/internal/jobs"
	"github.com/vulminator-io/vulminator/pkg/shared/cli"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
	"github.com/vulminator-io/vulminator/pkg/shared/httpclient"
	"github.com/vulminator-io/vulminator/pkg/shared/logger"
)

// RunOptionsSubmit holds the arguments for the submit command.
type RunOptionsSubmit struct {
	Server       string
	Preset       string
	Token        string
	NoAIReport   bool
	Wait         bool
	PollInterval time.Duration
}

var (
	AppConfig          *config.Config
	submitOptions      RunOptionsSubmit
	exampleSubmitUsage = `  # Queueing an analysis on the configured server
  vulminator submit https://github.com/acme/shop

  # Queueing an analysis on a remote server and waiting for it to finish
  vulminator submit --server http://vulminator.internal:8000 --wait https://github.com/acme/shop`
)

// SubmitCmd represents the submit command.
var SubmitCmd = &cobra.Command{
	Use:                   "submit [--server URL] [--preset/-p PRESET] [--token TOKEN] [--no-ai-report] [--wait] REPO_URL",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleSubmitUsage,
	Short:                 "Queues an analysis on a running server",
	RunE:                  runSubmitCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runSubmitCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !cli.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-submit")

	req, err := validateSubmitArgs(&submitOptions, args, AppConfig)
	if err != nil {
		logger.Error("invalid submit arguments", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(httpclient.InitializeRestyClient(logger, AppConfig), submitOptions.Server)
	runID, err := client.Submit(ctx, req)
	if err != nil {
		logger.Error("failed to submit run", "error", err)
		return err
	}
	logger.Info("run queued", "run_id", runID, "server", submitOptions.Server)

	if !submitOptions.Wait {
		fmt.Fprintln(cmd.OutOrStdout(), runID)
		return nil
	}

	run, err := client.Wait(ctx, runID, submitOptions.PollInterval)
	if err != nil {
		logger.Error("failed to wait for run", "run_id", runID, "error", err)
		return err
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if run.Status == jobs.StatusFailed {
		return fmt.Errorf("run %s failed: %s", run.ID, run.Message)
	}
	return nil
}

// defaultServer returns the base URL of the server configured in cfg.
func defaultServer(cfg *config.Config) string {
	return "http://" + net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
}

func init() {
	SubmitCmd.Flags().StringVar(&submitOptions.Server, "server", "", "Base URL of the API server. Defaults to the configured server address.")
	SubmitCmd.Flags().StringVarP(&submitOptions.Preset, "preset", "p", "", "Scan preset: fast, balanced or exhaustive. Defaults to fast.")
	SubmitCmd.Flags().StringVar(&submitOptions.Token, "token", "", "GitHub token used to publish the pull request.")
	SubmitCmd.Flags().BoolVar(&submitOptions.NoAIReport, "no-ai-report", false, "Write the plain findings listing instead of a model written report.")
	SubmitCmd.Flags().BoolVar(&submitOptions.Wait, "wait", false, "Poll the run until it completes or fails and print its final status.")
	SubmitCmd.Flags().DurationVar(&submitOptions.PollInterval, "poll-interval", 5*time.Second, "Interval between status polls when waiting.")
	SubmitCmd.Flags().BoolP("help", "h", false, "Show help for the submit command.")
}
