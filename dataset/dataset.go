// Package dataset holds the in-memory tabular data model shared by every
// analysis operation. A dataset is immutable once loaded; sessions swap
// whole datasets through a Store.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// ColumnType is the logical type inferred for a column at load time.
type ColumnType string

const (
	Numeric  ColumnType = "numeric"
	Text     ColumnType = "text"
	Boolean  ColumnType = "boolean"
	Temporal ColumnType = "temporal"
)

// Column stores one column of values in a typed slice. Missing marks cells
// that were blank in the source file; the value slices carry zero values at
// those positions.
type Column struct {
	Name       string
	Type       ColumnType
	Integer    bool   // numeric column whose values are all whole numbers
	TimeLayout string // layout the temporal values were parsed with

	Floats  []float64
	Bools   []bool
	Times   []time.Time
	Strs    []string
	Missing []bool
}

// Len returns the number of cells in the column, missing ones included.
func (c *Column) Len() int {
	return len(c.Missing)
}

// IsMissing reports whether the cell at row i was blank in the source.
func (c *Column) IsMissing(i int) bool {
	return c.Missing[i]
}

// MissingCount returns how many cells are missing.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// Float returns the numeric value at row i. The second return is false when
// the column is not numeric or the cell is missing.
func (c *Column) Float(i int) (float64, bool) {
	if c.Type != Numeric || c.Missing[i] {
		return 0, false
	}
	return c.Floats[i], true
}

// Numbers returns the non-missing numeric values in row order. It returns
// nil for non-numeric columns.
func (c *Column) Numbers() []float64 {
	if c.Type != Numeric {
		return nil
	}
	out := make([]float64, 0, len(c.Floats))
	for i, v := range c.Floats {
		if !c.Missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// Value returns the cell at row i as a JSON-friendly value: nil for missing
// cells, int64 or float64 for numeric, bool, or a string.
func (c *Column) Value(i int) any {
	if c.Missing[i] {
		return nil
	}
	switch c.Type {
	case Numeric:
		if c.Integer {
			return int64(c.Floats[i])
		}
		return c.Floats[i]
	case Boolean:
		return c.Bools[i]
	case Temporal:
		return c.Times[i].Format(c.TimeLayout)
	default:
		return c.Strs[i]
	}
}

// Display returns the cell at row i formatted for humans. Missing cells
// render as the empty string.
func (c *Column) Display(i int) string {
	if c.Missing[i] {
		return ""
	}
	switch c.Type {
	case Numeric:
		if c.Integer {
			return strconv.FormatInt(int64(c.Floats[i]), 10)
		}
		return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
	case Boolean:
		return strconv.FormatBool(c.Bools[i])
	case Temporal:
		return c.Times[i].Format(c.TimeLayout)
	default:
		return c.Strs[i]
	}
}

// Dtype returns the storage type name reported in dataset summaries.
func (c *Column) Dtype() string {
	switch c.Type {
	case Numeric:
		if c.Integer {
			return "integer"
		}
		return "float"
	case Boolean:
		return "boolean"
	case Temporal:
		return "datetime"
	default:
		return "text"
	}
}

// IsWhole reports whether the non-missing numeric values are all whole
// numbers, regardless of how the column was stored.
func (c *Column) IsWhole() bool {
	if c.Type != Numeric {
		return false
	}
	for i, v := range c.Floats {
		if c.Missing[i] {
			continue
		}
		if v != math.Trunc(v) {
			return false
		}
	}
	return true
}

// Dataset is one loaded table. Columns keep their file order.
type Dataset struct {
	Name    string
	Columns []*Column

	rows int
}

// New builds a dataset after checking that every column has the same length
// and a unique, non-empty name.
func New(name string, cols []*Column) (*Dataset, error) {
	rows := 0
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
		if i == 0 {
			rows = c.Len()
		} else if c.Len() != rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name, c.Len(), rows)
		}
	}
	return &Dataset{Name: name, Columns: cols, rows: rows}, nil
}

// Rows returns the number of data rows.
func (d *Dataset) Rows() int {
	return d.rows
}

// ColumnNames returns the column names in file order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// NumericColumns returns the numeric columns in file order.
func (d *Dataset) NumericColumns() []*Column {
	var out []*Column
	for _, c := range d.Columns {
		if c.Type == Numeric {
			out = append(out, c)
		}
	}
	return out
}
