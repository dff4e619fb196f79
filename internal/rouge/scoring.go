// Package rouge drives the ROUGE-1.5.5 script: it builds the command line,
// runs it through a ReportProvider and parses the report into tables.
package rouge

import (
	apperrors "github.com/rouge-eval/backend/pkg/errors"

	"github.com/rouge-eval/backend/internal/rouge/table"
)

// LengthUnit selects how summaries are truncated before scoring.
type LengthUnit string

const (
	LengthUnitWord LengthUnit = "word"
	LengthUnitByte LengthUnit = "byte"
)

// ScoringFormula selects how scores over multiple references are combined:
// A averages them (model average), B keeps the best (best model).
type ScoringFormula string

const (
	FormulaA ScoringFormula = "A"
	FormulaB ScoringFormula = "B"
)

// FullLengthThreshold is the summary length at and above which no
// truncation flag is passed and whole summaries are scored.
const FullLengthThreshold = 300

// ScoringConfig is the set of options passed to the ROUGE script.
type ScoringConfig struct {
	MaxNGram             int            `json:"max_ngram" yaml:"max_ngram" mapstructure:"maxNGram"`
	UseLCS               bool           `json:"use_lcs" yaml:"use_lcs" mapstructure:"useLCS"`
	ShowAll              bool           `json:"show_all" yaml:"show_all" mapstructure:"showAll"`
	UseStemmer           bool           `json:"use_stemmer" yaml:"use_stemmer" mapstructure:"useStemmer"`
	SummaryLength        int            `json:"summary_length" yaml:"summary_length" mapstructure:"summaryLength"`
	LengthUnit           LengthUnit     `json:"length_unit" yaml:"length_unit" mapstructure:"lengthUnit"`
	NumResamplingSamples int            `json:"num_resampling_samples" yaml:"num_resampling_samples" mapstructure:"numResamplingSamples"`
	ScoringFormula       ScoringFormula `json:"scoring_formula" yaml:"scoring_formula" mapstructure:"scoringFormula"`
	RemoveStopwords      bool           `json:"remove_stopwords" yaml:"remove_stopwords" mapstructure:"removeStopwords"`
}

// DefaultScoringConfig scores ROUGE-1 through ROUGE-4 on the first 100
// words with stemming and 1000 bootstrap samples.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		MaxNGram:             4,
		UseLCS:               false,
		ShowAll:              true,
		UseStemmer:           true,
		SummaryLength:        100,
		LengthUnit:           LengthUnitWord,
		NumResamplingSamples: 1000,
		ScoringFormula:       FormulaA,
		RemoveStopwords:      false,
	}
}

// Validate returns a configuration error for options the script cannot take.
func (c ScoringConfig) Validate() error {
	if c.MaxNGram < 0 {
		return apperrors.ConfigurationError("max_ngram must be >= 0 but found %d", c.MaxNGram)
	}
	if c.LengthUnit != LengthUnitWord && c.LengthUnit != LengthUnitByte {
		return apperrors.ConfigurationError("length_unit must be either 'word' or 'byte' but found %s", c.LengthUnit)
	}
	if c.ScoringFormula != FormulaA && c.ScoringFormula != FormulaB {
		return apperrors.ConfigurationError("scoring_formula must be either 'A' or 'B' but found %s", c.ScoringFormula)
	}
	return nil
}

// Orders lists the metric orders a report is parsed for: 1..MaxNGram, then
// L when UseLCS is set.
func (c ScoringConfig) Orders() []table.Order {
	return table.Orders(c.MaxNGram, c.UseLCS)
}

// ValidateScorable is Validate plus a check that at least one order is
// requested.
func (c ScoringConfig) ValidateScorable() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Orders()) == 0 {
		return apperrors.ConfigurationError("nothing to score: max_ngram is 0 and LCS is disabled")
	}
	return nil
}
