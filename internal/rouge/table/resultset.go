package table

// ResultRow is one row of a merged result set. Values is keyed by column
// label; a column the row was not scored under is absent.
type ResultRow struct {
	Name   string             `json:"name" yaml:"name"`
	Values map[string]float64 `json:"values" yaml:"values"`
}

// ResultSet is the column-wise merge of one MetricTable per order, plus the
// row-wise concatenation of their confidence intervals when requested.
type ResultSet struct {
	Columns    []string             `json:"columns" yaml:"columns"`
	Rows       []ResultRow          `json:"rows" yaml:"rows"`
	Confidence []ConfidenceInterval `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// Merge aligns tables by row name. Rows keep first-appearance order across
// tables and the average row always comes last.
func Merge(tables ...*MetricTable) *ResultSet {
	rs := &ResultSet{
		Columns: make([]string, 0, 3*len(tables)),
		Rows:    []ResultRow{},
	}
	index := make(map[string]int)

	var average *ResultRow
	for _, t := range tables {
		cols := t.Order.Columns()
		rs.Columns = append(rs.Columns, cols[:]...)

		for _, r := range t.Rows {
			var row *ResultRow
			if r.Name == AverageRow {
				if average == nil {
					average = &ResultRow{Name: AverageRow, Values: make(map[string]float64, 3*len(tables))}
				}
				row = average
			} else {
				i, ok := index[r.Name]
				if !ok {
					i = len(rs.Rows)
					index[r.Name] = i
					rs.Rows = append(rs.Rows, ResultRow{Name: r.Name, Values: make(map[string]float64, 3*len(tables))})
				}
				row = &rs.Rows[i]
			}
			row.Values[cols[0]] = r.Recall
			row.Values[cols[1]] = r.Precision
			row.Values[cols[2]] = r.FMeasure
		}
	}

	if average != nil {
		rs.Rows = append(rs.Rows, *average)
	}
	return rs
}

// Value returns the cell at (row, column).
func (rs *ResultSet) Value(row, column string) (float64, bool) {
	for _, r := range rs.Rows {
		if r.Name == row {
			v, ok := r.Values[column]
			return v, ok
		}
	}
	return 0, false
}

// RowNames lists row names in table order.
func (rs *ResultSet) RowNames() []string {
	names := make([]string, len(rs.Rows))
	for i, r := range rs.Rows {
		names[i] = r.Name
	}
	return names
}
