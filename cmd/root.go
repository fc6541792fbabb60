package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vulminator-io/vulminator/cmd/analyse"
	"github.com/vulminator-io/vulminator/cmd/serve"
	"github.com/vulminator-io/vulminator/cmd/submit"
	"github.com/vulminator-io/vulminator/cmd/version"
	"github.com/vulminator-io/vulminator/pkg/shared/config"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "vulminator [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Vulminator runs security analysis of a repository and proposes fixes as a pull request.",
		Long: `Vulminator clones a repository, runs static analysis and a dependency audit,
upgrades vulnerable packages, annotates risky files and publishes a security report
as a pull request against the repository.`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml)")

	rootCmd.AddCommand(serve.ServeCmd)
	rootCmd.AddCommand(analyse.AnalyseCmd)
	rootCmd.AddCommand(submit.SubmitCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		return 1
	}
	return 0
}

func initConfig() {
	var err error

	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	serve.Init(AppConfig)
	analyse.Init(AppConfig)
	submit.Init(AppConfig)
	version.Init(AppConfig)
}
