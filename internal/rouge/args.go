package rouge

import (
	"strconv"
)

// ConfigFormat is the -z marker for config files listing one system summary
// and its references per line.
const ConfigFormat = "SPL"

// BuildArgs returns the ROUGE script arguments for cfg, evaluating the
// summaries listed in configPath against the data directory dataDir. The
// interpreter and script path are not included.
func BuildArgs(cfg ScoringConfig, dataDir, configPath string) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	args := []string{"-e", dataDir, "-a"}

	if cfg.MaxNGram > 0 {
		args = append(args, "-n", strconv.Itoa(cfg.MaxNGram))
	}

	if !cfg.UseLCS {
		args = append(args, "-x")
	}

	if cfg.ShowAll {
		args = append(args, "-d")
	}

	if cfg.UseStemmer {
		args = append(args, "-m")
	}

	if cfg.RemoveStopwords {
		args = append(args, "-s")
	}

	if cfg.SummaryLength < FullLengthThreshold {
		switch cfg.LengthUnit {
		case LengthUnitWord:
			args = append(args, "-l", strconv.Itoa(cfg.SummaryLength))
		case LengthUnitByte:
			args = append(args, "-b", strconv.Itoa(cfg.SummaryLength))
		}
	}

	args = append(args, "-r", strconv.Itoa(cfg.NumResamplingSamples))
	args = append(args, "-f", string(cfg.ScoringFormula))
	args = append(args, "-z", ConfigFormat, configPath)

	return args, nil
}
