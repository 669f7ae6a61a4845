package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"nhldiag/domain/core"
	"nhldiag/domain/dataset"
	"nhldiag/ports"
)

// Options holds settings for loading a tabular source
type Options struct {
	Schema        *dataset.Schema // Optional: declared columns to validate against
	Delimiter     rune            // Field delimiter for CSV (default: ',')
	Sheet         string          // Worksheet name for Excel (default: "Sheet1")
	MissingTokens []string        // Cell values treated as missing
}

// DefaultOptions returns default load options
func DefaultOptions() *Options {
	return &Options{
		Delimiter:     ',',
		Sheet:         "Sheet1",
		MissingTokens: []string{"", "NA", "N/A", "NaN", "null"},
	}
}

var _ ports.DatasetReader = (*Reader)(nil)

// Reader loads CSV and Excel files into immutable datasets
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	opts     *Options
}

// NewReader creates a reader that dispatches on file extension
func NewReader(filePath string, opts *Options) *Reader {
	if opts == nil {
		opts = DefaultOptions()
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "csv"
	if ext == ".xlsx" || ext == ".xlsm" {
		fileType = "xlsx"
	}
	return &Reader{filePath: filePath, fileType: fileType, opts: opts}
}

// Read loads the source into a validated dataset
func (r *Reader) Read() (*dataset.Dataset, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file not found: %s", r.filePath)
	}

	switch r.fileType {
	case "csv":
		f, err := os.Open(r.filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer f.Close()
		return ReadCSV(f, r.opts)
	case "xlsx":
		return r.readExcel()
	default:
		return nil, core.NewFormatError("unsupported file type: " + r.fileType)
	}
}

// ReadCSV loads a dataset from a CSV stream
func ReadCSV(rd io.Reader, opts *Options) (*dataset.Dataset, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	reader := csv.NewReader(rd)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		// Ragged rows surface here via csv.ErrFieldCount
		return nil, core.NewFormatError(err.Error())
	}
	return buildDataset(rows, opts)
}

// readExcel loads the configured worksheet
func (r *Reader) readExcel() (*dataset.Dataset, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.opts.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", r.opts.Sheet, err)
	}
	return buildDataset(rows, r.opts)
}

// buildDataset cleans raw rows and assembles a validated column-major dataset
func buildDataset(rows [][]string, opts *Options) (*dataset.Dataset, error) {
	if len(rows) == 0 {
		return nil, core.NewFormatError("source has no header row")
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
		if header[i] == "" {
			return nil, core.NewFormatError(fmt.Sprintf("empty column name at position %d", i))
		}
	}

	// Declared columns must all be present
	if opts.Schema != nil {
		present := make(map[string]bool, len(header))
		for _, h := range header {
			present[h] = true
		}
		for _, spec := range opts.Schema.Columns {
			if !present[spec.Name] {
				return nil, core.NewFormatError("missing declared column: " + spec.Name)
			}
		}
	}

	missing := make(map[string]bool, len(opts.MissingTokens))
	for _, tok := range opts.MissingTokens {
		missing[strings.ToLower(tok)] = true
	}
	isMissing := func(cell string) bool {
		return missing[strings.ToLower(strings.TrimSpace(cell))]
	}

	// Drop all-empty rows; Excel rows may be short, pad them out
	var data [][]string
	for rowNum, row := range rows[1:] {
		if len(row) > len(header) {
			return nil, core.NewFormatError(fmt.Sprintf("row %d has %d fields, header has %d", rowNum+2, len(row), len(header)))
		}
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		padded := make([]string, len(header))
		copy(padded, row)
		data = append(data, padded)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no rows survived cleaning", core.ErrEmptyDataset)
	}

	meta := make([]dataset.ColumnMeta, len(header))
	numeric := make([][]float64, len(header))
	labels := make([][]string, len(header))

	for col, name := range header {
		colType, declared := inferType(name, col, data, opts.Schema, isMissing)

		switch colType {
		case dataset.TypeNumeric:
			values := make([]float64, len(data))
			missingCount := 0
			for rowIdx, row := range data {
				cell := strings.TrimSpace(row[col])
				if isMissing(cell) {
					values[rowIdx] = math.NaN()
					missingCount++
					continue
				}
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					if declared {
						return nil, core.NewFormatError(fmt.Sprintf("non-numeric value %q in declared numeric column %s (row %d)", cell, name, rowIdx+2))
					}
					return nil, core.NewFormatError(fmt.Sprintf("unparseable value %q in column %s (row %d)", cell, name, rowIdx+2))
				}
				values[rowIdx] = v
			}
			meta[col] = dataset.ColumnMeta{Name: name, Type: dataset.TypeNumeric, MissingCount: missingCount}
			numeric[col] = values

		case dataset.TypeCategorical:
			values := make([]string, len(data))
			missingCount := 0
			for rowIdx, row := range data {
				cell := strings.TrimSpace(row[col])
				if isMissing(cell) {
					values[rowIdx] = ""
					missingCount++
					continue
				}
				values[rowIdx] = cell
			}
			meta[col] = dataset.ColumnMeta{Name: name, Type: dataset.TypeCategorical, MissingCount: missingCount}
			labels[col] = values
		}
	}

	return dataset.New(meta, numeric, labels)
}

// inferType resolves a column's statistical type: declared schema wins,
// otherwise numeric when every non-missing cell parses as a float
func inferType(name string, col int, data [][]string, schema *dataset.Schema, isMissing func(string) bool) (dataset.StatisticalType, bool) {
	if spec, ok := schema.Spec(name); ok {
		return spec.Type, true
	}

	sawValue := false
	for _, row := range data {
		cell := strings.TrimSpace(row[col])
		if isMissing(cell) {
			continue
		}
		sawValue = true
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return dataset.TypeCategorical, false
		}
	}
	if !sawValue {
		return dataset.TypeCategorical, false
	}
	return dataset.TypeNumeric, false
}
