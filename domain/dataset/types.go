package dataset

import (
	"fmt"
	"math"

	"nhldiag/domain/core"
)

// StatisticalType classifies how a column participates in analysis
type StatisticalType string

const (
	TypeNumeric     StatisticalType = "numeric"
	TypeCategorical StatisticalType = "categorical"
)

// ColumnMeta describes a single column of a loaded dataset
type ColumnMeta struct {
	Name         string          `json:"name"`
	Type         StatisticalType `json:"type"`
	MissingCount int             `json:"missing_count"`
}

// ColumnSpec declares an expected column for load-time validation
type ColumnSpec struct {
	Name string
	Type StatisticalType
}

// Schema declares the expected column set of a tabular source.
// A nil schema means types are inferred from the data.
type Schema struct {
	Columns []ColumnSpec
}

// Spec returns the declared spec for a column name, if present
func (s *Schema) Spec(name string) (ColumnSpec, bool) {
	if s == nil {
		return ColumnSpec{}, false
	}
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// Dataset is an immutable, column-major view of a loaded tabular source.
// Numeric columns store NaN for missing cells; categorical columns store
// the raw label with "" for missing. All pipeline stages are read-only.
type Dataset struct {
	meta        []ColumnMeta
	index       map[string]int
	numeric     [][]float64
	labels      [][]string
	rows        int
	fingerprint core.Fingerprint
}

// New validates column data and builds an immutable dataset.
// Every column must carry exactly rows values of its declared kind.
func New(meta []ColumnMeta, numeric [][]float64, labels [][]string) (*Dataset, error) {
	if len(meta) == 0 {
		return nil, core.NewFormatError("dataset has no columns")
	}
	if len(numeric) != len(meta) || len(labels) != len(meta) {
		return nil, core.NewFormatError("column data does not match column metadata")
	}

	rows := -1
	index := make(map[string]int, len(meta))
	for i, m := range meta {
		if m.Name == "" {
			return nil, core.NewFormatError("column with empty name")
		}
		if _, dup := index[m.Name]; dup {
			return nil, core.NewFormatError("duplicate column name: " + m.Name)
		}
		index[m.Name] = i

		var length int
		switch m.Type {
		case TypeNumeric:
			if numeric[i] == nil || labels[i] != nil {
				return nil, core.NewFormatError("numeric column " + m.Name + " missing numeric data")
			}
			length = len(numeric[i])
		case TypeCategorical:
			if labels[i] == nil || numeric[i] != nil {
				return nil, core.NewFormatError("categorical column " + m.Name + " missing label data")
			}
			length = len(labels[i])
		default:
			return nil, core.NewFormatError("unknown statistical type for column " + m.Name)
		}

		if rows == -1 {
			rows = length
		} else if rows != length {
			return nil, core.NewFormatError("inconsistent column lengths")
		}
	}

	if rows == 0 {
		return nil, fmt.Errorf("%w: dataset construction with %d columns and zero rows", core.ErrEmptyDataset, len(meta))
	}

	names := make([]string, len(meta))
	types := make([]string, len(meta))
	for i, m := range meta {
		names[i] = m.Name
		types[i] = string(m.Type)
	}

	return &Dataset{
		meta:        append([]ColumnMeta(nil), meta...),
		index:       index,
		numeric:     numeric,
		labels:      labels,
		rows:        rows,
		fingerprint: core.ComputeFingerprint(names, types, rows),
	}, nil
}

// RowCount returns the number of rows
func (d *Dataset) RowCount() int { return d.rows }

// ColumnCount returns the number of columns
func (d *Dataset) ColumnCount() int { return len(d.meta) }

// Fingerprint identifies the dataset by schema and shape
func (d *Dataset) Fingerprint() core.Fingerprint { return d.fingerprint }

// Columns returns a copy of the column metadata in declaration order
func (d *Dataset) Columns() []ColumnMeta {
	return append([]ColumnMeta(nil), d.meta...)
}

// Column returns metadata for a named column
func (d *Dataset) Column(name string) (ColumnMeta, bool) {
	i, ok := d.index[name]
	if !ok {
		return ColumnMeta{}, false
	}
	return d.meta[i], true
}

// NumericColumn returns a copy of a numeric column, NaN marking missing cells
func (d *Dataset) NumericColumn(name string) ([]float64, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, core.NewColumnNotFoundError(name)
	}
	if d.meta[i].Type != TypeNumeric {
		return nil, core.NewNonNumericColumnError(name)
	}
	return append([]float64(nil), d.numeric[i]...), nil
}

// Labels returns a copy of a categorical column's raw labels
func (d *Dataset) Labels(name string) ([]string, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, core.NewColumnNotFoundError(name)
	}
	if d.meta[i].Type != TypeCategorical {
		return nil, core.NewFormatError("column " + name + " is not categorical")
	}
	return append([]string(nil), d.labels[i]...), nil
}

// NumericColumns returns the names of all numeric columns in order
func (d *Dataset) NumericColumns() []string {
	var names []string
	for _, m := range d.meta {
		if m.Type == TypeNumeric {
			names = append(names, m.Name)
		}
	}
	return names
}

// PairedComplete returns the values of two numeric columns restricted to
// rows where both are present, along with the originating row indices.
func (d *Dataset) PairedComplete(colA, colB string) (x, y []float64, rows []int, err error) {
	a, err := d.NumericColumn(colA)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := d.NumericColumn(colB)
	if err != nil {
		return nil, nil, nil, err
	}

	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
		rows = append(rows, i)
	}
	return x, y, rows, nil
}
