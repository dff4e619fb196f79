package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rouge-eval/backend/pkg/config"
	"github.com/rouge-eval/backend/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rouge",
		Short: "Score summaries with ROUGE-1.5.5",
		Long: `rouge runs the ROUGE-1.5.5 perl script over an SPL config file and
prints the per-summary and average recall, precision and F-measure.

Run 'rouge eval rouge.spl' to score a config.
Run 'rouge parse report.txt' to read a report produced elsewhere.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			level := "warn"
			if verbose {
				level = "debug"
			}
			return logger.Init(level, "console", "stderr")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("format", "text", "output format (text, json, yaml)")

	rootCmd.AddCommand(
		evalCmd(),
		parseCmd(),
		argsCmd(),
		cacheCmd(),
		versionCmd(),
	)

	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("script"); v != "" {
		cfg.Rouge.ScriptPath = v
	}
	if v, _ := cmd.Flags().GetString("data"); v != "" {
		cfg.Rouge.DataPath = v
	}
	if v, _ := cmd.Flags().GetString("interpreter"); v != "" {
		cfg.Rouge.Interpreter = v
	}
	return cfg, nil
}

func addRougeFlags(cmd *cobra.Command) {
	cmd.Flags().String("script", "", "path to ROUGE-1.5.5.pl (overrides rouge.scriptPath)")
	cmd.Flags().String("data", "", "ROUGE data directory (overrides rouge.dataPath)")
	cmd.Flags().String("interpreter", "", "interpreter for the script (overrides rouge.interpreter)")
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rouge %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
