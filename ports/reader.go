package ports

import (
	"nhldiag/domain/dataset"
)

// DatasetReader loads an immutable dataset from a tabular source
type DatasetReader interface {
	// Read loads and validates the source. It fails with a format error on
	// inconsistent schema and an empty-dataset error when no rows survive
	// cleaning.
	Read() (*dataset.Dataset, error)
}
