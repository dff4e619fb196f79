// Package table holds the tabular results parsed from a ROUGE report.
package table

import (
	"fmt"
	"strconv"
)

// AverageRow names the synthetic row holding the corpus averages.
const AverageRow = "average"

// Order is a ROUGE metric order: an n-gram length or LCS.
type Order string

// LCS selects longest common subsequence scoring (ROUGE-L).
const LCS Order = "L"

// NGram returns the order for n-gram length n.
func NGram(n int) Order {
	return Order(strconv.Itoa(n))
}

// ParseOrder accepts "1", "2", ... or "L" (case-insensitive for L).
func ParseOrder(s string) (Order, error) {
	if s == "L" || s == "l" {
		return LCS, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid rouge order %q", s)
	}
	return NGram(n), nil
}

// Label returns the order label, e.g. "rouge-2" or "rouge-L".
func (o Order) Label() string {
	return "rouge-" + string(o)
}

// Columns returns the recall, precision and F-measure column labels.
func (o Order) Columns() [3]string {
	l := o.Label()
	return [3]string{l + "-R", l + "-P", l + "-F"}
}

// Orders lists the orders scored for maxNGram and lcs: 1..maxNGram, then L.
func Orders(maxNGram int, lcs bool) []Order {
	orders := make([]Order, 0, maxNGram+1)
	for n := 1; n <= maxNGram; n++ {
		orders = append(orders, NGram(n))
	}
	if lcs {
		orders = append(orders, LCS)
	}
	return orders
}

// MetricRow is one evaluated segment, or the average.
type MetricRow struct {
	Name      string  `json:"name" yaml:"name"`
	Recall    float64 `json:"recall" yaml:"recall"`
	Precision float64 `json:"precision" yaml:"precision"`
	FMeasure  float64 `json:"fmeasure" yaml:"fmeasure"`
}

// MetricTable holds the rows parsed for a single order. Row names are unique.
type MetricTable struct {
	Order Order       `json:"order" yaml:"order"`
	Rows  []MetricRow `json:"rows" yaml:"rows"`
}

// Row looks up a row by name.
func (t *MetricTable) Row(name string) (MetricRow, bool) {
	for _, r := range t.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return MetricRow{}, false
}

// Average returns the synthetic average row.
func (t *MetricTable) Average() (MetricRow, bool) {
	return t.Row(AverageRow)
}

// ConfidenceInterval is the 95% bootstrap interval reported for one order.
type ConfidenceInterval struct {
	Label string  `json:"label" yaml:"label"`
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}
