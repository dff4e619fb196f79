package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rouge-eval/backend/internal/rouge"
)

func addScoringFlags(cmd *cobra.Command) {
	d := rouge.DefaultScoringConfig()
	f := cmd.Flags()
	f.IntP("max-ngram", "n", d.MaxNGram, "compute ROUGE-1 through ROUGE-N")
	f.BoolP("lcs", "l", d.UseLCS, "also compute ROUGE-L")
	f.Bool("show-all", d.ShowAll, "report every evaluated summary, not only the average")
	f.Bool("stemmer", d.UseStemmer, "apply the Porter stemmer")
	f.Int("length", d.SummaryLength, "truncate summaries to this length (300 or more scores whole summaries)")
	f.String("length-unit", string(d.LengthUnit), "unit of --length (word, byte)")
	f.Int("samples", d.NumResamplingSamples, "bootstrap resampling samples")
	f.String("formula", string(d.ScoringFormula), "multi-reference scoring formula (A average, B best)")
	f.Bool("remove-stopwords", d.RemoveStopwords, "drop stopwords before scoring")
}

// scoringConfig starts from the configured defaults and applies only the
// flags given on the command line.
func scoringConfig(flags *pflag.FlagSet, base rouge.ScoringConfig) rouge.ScoringConfig {
	cfg := base
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "max-ngram":
			cfg.MaxNGram, _ = flags.GetInt(f.Name)
		case "lcs":
			cfg.UseLCS, _ = flags.GetBool(f.Name)
		case "show-all":
			cfg.ShowAll, _ = flags.GetBool(f.Name)
		case "stemmer":
			cfg.UseStemmer, _ = flags.GetBool(f.Name)
		case "length":
			cfg.SummaryLength, _ = flags.GetInt(f.Name)
		case "length-unit":
			v, _ := flags.GetString(f.Name)
			cfg.LengthUnit = rouge.LengthUnit(v)
		case "samples":
			cfg.NumResamplingSamples, _ = flags.GetInt(f.Name)
		case "formula":
			v, _ := flags.GetString(f.Name)
			cfg.ScoringFormula = rouge.ScoringFormula(v)
		case "remove-stopwords":
			cfg.RemoveStopwords, _ = flags.GetBool(f.Name)
		}
	})
	return cfg
}
