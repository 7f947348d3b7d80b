package step

import "fmt"

// Record is one concrete step of a scenario, as produced by a feature parser.
type Record struct {
	// Index is the zero-based position of the step within its scenario.
	Index int `json:"index" yaml:"-"`

	Keyword Keyword `json:"keyword" yaml:"keyword"`
	Text    string  `json:"text" yaml:"text"`

	// Table is the attached data table, if any. The first row is the header.
	Table Table `json:"table,omitempty" yaml:"table,omitempty"`

	// DocString is the attached doc string, if any.
	DocString *string `json:"docstring,omitempty" yaml:"docstring,omitempty"`

	// Line is the 1-based source line, when known.
	Line int `json:"line,omitempty" yaml:"line,omitempty"`
}

// String renders the record as "Keyword text".
func (r Record) String() string {
	return r.Keyword.String() + " " + r.Text
}

// Table is a Gherkin data table. The first row is treated as the header.
type Table [][]string

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t) == 0
}

// Header returns the first row, or nil for an empty table.
func (t Table) Header() []string {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// Rows returns every row after the header.
func (t Table) Rows() [][]string {
	if len(t) < 2 {
		return nil
	}
	return t[1:]
}

// Records maps each body row onto the header names.
// Returns an error if a row's width differs from the header's.
func (t Table) Records() ([]map[string]string, error) {
	header := t.Header()
	rows := t.Rows()
	out := make([]map[string]string, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("table row %d has %d cells, header has %d", i+1, len(row), len(header))
		}
		rec := make(map[string]string, len(header))
		for j, name := range header {
			rec[name] = row[j]
		}
		out = append(out, rec)
	}
	return out, nil
}
