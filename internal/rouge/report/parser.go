// Package report turns the plain-text output of ROUGE-1.5.5 into tables.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/rouge-eval/backend/pkg/errors"

	"github.com/rouge-eval/backend/internal/rouge/table"
)

type average struct {
	value, lower, upper float64
}

// Parse extracts the per-segment rows, the average row and the recall
// confidence interval for one order. It fails with a parse error when any
// of the three average lines for order is missing or a value is malformed.
func Parse(text string, order table.Order) (*table.MetricTable, *table.ConfidenceInterval, error) {
	g := grammarFor(order)
	mt := &table.MetricTable{Order: order, Rows: []table.MetricRow{}}
	seen := make(map[string]bool)
	averages := make(map[string]*average, 3)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")

		kind, fields := g.classify(line)
		switch kind {
		case lineEval:
			row, err := parseEval(fields)
			if err != nil {
				return nil, nil, err
			}
			if seen[row.Name] {
				return nil, nil, apperrors.ParseError(apperrors.ReasonDuplicateRow,
					fmt.Sprintf("%s: duplicate segment %q", order.Label(), row.Name), nil)
			}
			seen[row.Name] = true
			mt.Rows = append(mt.Rows, row)

		case lineAverage:
			// ROUGE prints each average once; keep the first like a regex search would
			if _, ok := averages[fields[0]]; ok {
				continue
			}
			avg, err := parseAverage(fields[1:])
			if err != nil {
				return nil, nil, err
			}
			averages[fields[0]] = avg
		}
	}

	for _, kind := range []string{"R", "P", "F"} {
		if averages[kind] == nil {
			return nil, nil, apperrors.ParseError(apperrors.ReasonNotFound,
				fmt.Sprintf("ROUGE-%s Average_%s line not found", order, kind), nil)
		}
	}

	if seen[table.AverageRow] {
		return nil, nil, apperrors.ParseError(apperrors.ReasonDuplicateRow,
			fmt.Sprintf("%s: segment named %q collides with the average row", order.Label(), table.AverageRow), nil)
	}
	mt.Rows = append(mt.Rows, table.MetricRow{
		Name:      table.AverageRow,
		Recall:    averages["R"].value,
		Precision: averages["P"].value,
		FMeasure:  averages["F"].value,
	})

	recall := averages["R"]
	if recall.lower > recall.upper {
		return nil, nil, apperrors.ParseError(apperrors.ReasonInvalidInterval,
			fmt.Sprintf("%s: confidence interval %g - %g is inverted", order.Label(), recall.lower, recall.upper), nil)
	}
	ci := &table.ConfidenceInterval{
		Label: order.Label(),
		Lower: recall.lower,
		Upper: recall.upper,
	}

	return mt, ci, nil
}

// ParseAll parses every order and merges the tables, confidence included.
func ParseAll(text string, orders ...table.Order) (*table.ResultSet, error) {
	tables := make([]*table.MetricTable, 0, len(orders))
	confs := make([]table.ConfidenceInterval, 0, len(orders))
	for _, o := range orders {
		mt, ci, err := Parse(text, o)
		if err != nil {
			return nil, err
		}
		tables = append(tables, mt)
		confs = append(confs, *ci)
	}

	rs := table.Merge(tables...)
	rs.Confidence = confs
	return rs, nil
}

func parseEval(fields []string) (table.MetricRow, error) {
	row := table.MetricRow{Name: strings.TrimSpace(fields[0])}
	targets := []*float64{&row.Recall, &row.Precision, &row.FMeasure}
	for i, raw := range fields[1:] {
		v, err := parseScore(raw)
		if err != nil {
			return table.MetricRow{}, err
		}
		*targets[i] = v
	}
	return row, nil
}

func parseAverage(fields []string) (*average, error) {
	var vals [3]float64
	for i, raw := range fields {
		v, err := parseScore(raw)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return &average{value: vals[0], lower: vals[1], upper: vals[2]}, nil
}

func parseScore(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperrors.ParseError(apperrors.ReasonNotNumeric, fmt.Sprintf("score %q is not numeric", s), err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.ParseError(apperrors.ReasonNotNumeric, fmt.Sprintf("score %q is not a finite number", s), nil)
	}
	return v, nil
}
