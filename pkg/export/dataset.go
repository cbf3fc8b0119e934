package export

import "fmt"

// Column is one table column. Weight sizes it relative to the others in
// paginated output; zero counts as one.
type Column struct {
	Header string
	Weight float64
}

// Dataset is ordered tabular export content.
type Dataset struct {
	Title    string
	Subtitle string
	Columns  []Column
	Rows     [][]string
}

// Headers returns the column headers in order.
func (d Dataset) Headers() []string {
	out := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		out[i] = col.Header
	}
	return out
}

func (d Dataset) validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset requires at least one column")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Columns))
		}
	}
	return nil
}
