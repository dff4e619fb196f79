package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rouge-eval/backend/internal/evaluation"
	"github.com/rouge-eval/backend/internal/rouge"
	"github.com/rouge-eval/backend/internal/rouge/report"
	"github.com/rouge-eval/backend/internal/storage/sqlite"
	"github.com/rouge-eval/backend/pkg/logger"
)

func evalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval CONFIG",
		Short: "Score the summaries listed in an SPL config file",
		Long: `Run ROUGE-1.5.5 over CONFIG, a file with one line per system summary:
the summary path followed by the paths of its references.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			scoring := scoringConfig(cmd.Flags(), cfg.Scoring)
			withConf, _ := cmd.Flags().GetBool("conf")
			record, _ := cmd.Flags().GetBool("record")

			opts := evaluation.Options{WorkDir: cfg.Rouge.WorkDir}
			if record {
				store, err := sqlite.NewClient(cfg.SQLite.Path)
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.InitSchema(); err != nil {
					return err
				}
				opts.Store = store
			}

			provider := rouge.NewScriptProvider(cfg.Rouge.Interpreter, cfg.Rouge.ScriptPath)
			ev := evaluation.NewEvaluator(rouge.NewEvaluator(provider, cfg.Rouge.DataPath), opts)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run, err := ev.EvaluateConfig(ctx, args[0], scoring, withConf)
			if err != nil {
				return err
			}
			return evaluation.WriteRun(cmd.OutOrStdout(), run, format)
		},
	}

	addScoringFlags(cmd)
	addRougeFlags(cmd)
	cmd.Flags().Bool("conf", false, "include 95% confidence intervals")
	cmd.Flags().Bool("record", false, "store the run in the configured SQLite database")

	return cmd
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse REPORT_FILE",
		Short: "Parse a ROUGE-1.5.5 report without running the script",
		Long:  `Parse REPORT_FILE ("-" for stdin) as ROUGE-1.5.5 output produced with -a.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			maxNGram, _ := cmd.Flags().GetInt("max-ngram")
			lcs, _ := cmd.Flags().GetBool("lcs")

			scoring := rouge.DefaultScoringConfig()
			scoring.MaxNGram = maxNGram
			scoring.UseLCS = lcs
			if err := scoring.ValidateScorable(); err != nil {
				return err
			}

			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			rs, err := report.ParseAll(text, scoring.Orders()...)
			if err != nil {
				return err
			}
			logger.Debug("Parsed report", zap.String("file", args[0]), zap.Int("rows", len(rs.Rows)))
			return evaluation.WriteResult(cmd.OutOrStdout(), rs, format)
		},
	}

	d := rouge.DefaultScoringConfig()
	cmd.Flags().IntP("max-ngram", "n", d.MaxNGram, "orders ROUGE-1 through ROUGE-N expected in the report")
	cmd.Flags().BoolP("lcs", "l", d.UseLCS, "also expect ROUGE-L")

	return cmd
}

func argsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "args CONFIG",
		Short: "Print the ROUGE command line eval would run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			scoring := scoringConfig(cmd.Flags(), cfg.Scoring)

			argv, err := rouge.BuildArgs(scoring, cfg.Rouge.DataPath, args[0])
			if err != nil {
				return err
			}
			provider := rouge.NewScriptProvider(cfg.Rouge.Interpreter, cfg.Rouge.ScriptPath)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(provider.Command(argv), " "))
			return err
		},
	}

	addScoringFlags(cmd)
	addRougeFlags(cmd)

	return cmd
}

func outputFormat(cmd *cobra.Command) (evaluation.Format, error) {
	v, _ := cmd.Flags().GetString("format")
	return evaluation.ParseFormat(v)
}

func readInput(stdin io.Reader, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read report: %w", err)
	}
	return string(data), nil
}
