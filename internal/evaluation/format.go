package evaluation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/rouge-eval/backend/internal/rouge/table"
	"github.com/rouge-eval/backend/internal/storage/models"
	apperrors "github.com/rouge-eval/backend/pkg/errors"
)

// Format selects how results are rendered for the CLI.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", apperrors.ValidationError(fmt.Sprintf("unknown output format %q (want text, json or yaml)", s))
}

// WriteRun renders a finished run. Text output is a short header followed by
// the result table.
func WriteRun(w io.Writer, run *models.EvaluationRun, f Format) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, run)
	case FormatYAML:
		return writeYAML(w, run)
	}

	fmt.Fprintf(w, "Evaluation %s\n", run.ID)
	fmt.Fprintf(w, "Status: %s", run.Status)
	if run.Cached {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintf(w, "\nDuration: %dms\n\n", run.DurationMS)
	if run.Result == nil {
		if run.Error != "" {
			fmt.Fprintf(w, "Error: %s\n", run.Error)
		}
		return nil
	}
	return writeText(w, run.Result)
}

// WriteResult renders a bare result set.
func WriteResult(w io.Writer, rs *table.ResultSet, f Format) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, rs)
	case FormatYAML:
		return writeYAML(w, rs)
	}
	return writeText(w, rs)
}

func writeText(w io.Writer, rs *table.ResultSet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprint(tw, "name")
	for _, col := range rs.Columns {
		fmt.Fprintf(tw, "\t%s", col)
	}
	fmt.Fprintln(tw)

	for _, row := range rs.Rows {
		fmt.Fprint(tw, row.Name)
		for _, col := range rs.Columns {
			if v, ok := row.Values[col]; ok {
				fmt.Fprintf(tw, "\t%.5f", v)
			} else {
				fmt.Fprint(tw, "\t-")
			}
		}
		fmt.Fprintln(tw)
	}

	if len(rs.Confidence) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "95% confidence\tlower\tupper")
		for _, ci := range rs.Confidence {
			fmt.Fprintf(tw, "%s\t%.5f\t%.5f\n", ci.Label, ci.Lower, ci.Upper)
		}
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
