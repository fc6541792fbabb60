package analyse

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vulminator-io/vulminator/internal/app"
	"github.com/vulminator-io/vulminator/internal/jobs"
	"github.com/vulminator-io/vulminator/pkg/shared/cli"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
	"github.com/vulminator-io/vulminator/pkg/shared/files"
	"github.com/vulminator-io/vulminator/pkg/shared/logger"
)

// RunOptionsAnalyse holds the arguments for the analyse command.
type RunOptionsAnalyse struct {
	Preset     string
	Token      string
	NoAIReport bool
	OutputPath string
}

var (
	AppConfig           *config.Config
	analyseOptions      RunOptionsAnalyse
	exampleAnalyseUsage = `  # Analysing a repository with the default fast preset
  vulminator analyse https://github.com/acme/shop

  # Analysing a repository with the exhaustive preset and publishing a pull request
  vulminator analyse --preset exhaustive --token $GITHUB_TOKEN https://github.com/acme/shop

  # Analysing a repository without the model written report and saving the run status
  vulminator analyse --no-ai-report --output /path/to/run.json https://github.com/acme/shop`
)

// AnalyseCmd represents the analyse command.
var AnalyseCmd = &cobra.Command{
	Use:                   "analyse [--preset/-p PRESET] [--token TOKEN] [--no-ai-report] [--output/-o PATH] REPO_URL",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleAnalyseUsage,
	Short:                 "Runs one analysis in the foreground and prints the final run status",
	RunE:                  runAnalyseCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runAnalyseCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !cli.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-analyse")

	req, err := validateAnalyseArgs(&analyseOptions, args)
	if err != nil {
		logger.Error("invalid analyse arguments", "error", err)
		return err
	}

	service, err := app.NewService(AppConfig, logger)
	if err != nil {
		logger.Error("failed to initialize run service", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := service.Run(ctx, req)
	if err := writeRun(cmd, run, analyseOptions.OutputPath); err != nil {
		logger.Error("failed to write result", "error", err)
		return err
	}

	if run.Status == jobs.StatusFailed {
		err := fmt.Errorf("run %s failed: %s", run.ID, run.Message)
		logger.Error("analyse command failed", "error", err)
		return err
	}

	logger.Info("analyse command completed successfully", "run_id", run.ID, "findings", len(run.Findings))
	return nil
}

// writeRun prints the run as JSON and saves it to outputPath when one is given.
func writeRun(cmd *cobra.Command, run jobs.Run, outputPath string) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	if outputPath != "" {
		if err := files.WriteFile(outputPath, data); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// Initialize flags for the analyse command.
func init() {
	AnalyseCmd.Flags().StringVarP(&analyseOptions.Preset, "preset", "p", "", "Scan preset: fast, balanced or exhaustive. Defaults to fast.")
	AnalyseCmd.Flags().StringVar(&analyseOptions.Token, "token", "", "GitHub token used to publish the pull request. Defaults to publisher.github_token.")
	AnalyseCmd.Flags().BoolVar(&analyseOptions.NoAIReport, "no-ai-report", false, "Write the plain findings listing instead of a model written report.")
	AnalyseCmd.Flags().StringVarP(&analyseOptions.OutputPath, "output", "o", "", "Path to a file where the final run status is saved as JSON.")
	AnalyseCmd.Flags().BoolP("help", "h", false, "Show help for the analyse command.")
}
