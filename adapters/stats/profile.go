package stats

import (
	"fmt"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"

	"nhldiag/domain/core"
	"nhldiag/domain/dataset"
	"nhldiag/domain/diagnostics"
)

// DefaultTrimProportion is the share trimmed from each tail for the
// trimmed mean.
const DefaultTrimProportion = 0.10

// madNormalScale rescales the median absolute deviation to be a
// consistent estimator of the standard deviation under normality.
const madNormalScale = 1.4826

// ProfileColumn computes robust location and spread statistics for a
// numeric column: mean, median, trimmed mean, MAD, IQR with 1.5*IQR
// outlier fences, and tail percentiles.
func ProfileColumn(ds *dataset.Dataset, column string, trimProportion float64) (diagnostics.ColumnProfile, error) {
	raw, err := ds.NumericColumn(column)
	if err != nil {
		return diagnostics.ColumnProfile{}, fmt.Errorf("profile column %s: %w", column, err)
	}
	if trimProportion <= 0 || trimProportion >= 0.5 {
		trimProportion = DefaultTrimProportion
	}

	values := make([]float64, 0, len(raw))
	for _, v := range raw {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) < MinPairedObservations {
		return diagnostics.ColumnProfile{}, core.NewInsufficientDataError("profile_column "+column, len(values), MinPairedObservations)
	}

	mean, err := mstats.Mean(values)
	if err != nil {
		return diagnostics.ColumnProfile{}, fmt.Errorf("profile column %s: %w", column, err)
	}
	median, err := mstats.Median(values)
	if err != nil {
		return diagnostics.ColumnProfile{}, fmt.Errorf("profile column %s: %w", column, err)
	}
	variance, err := mstats.SampleVariance(values)
	if err != nil {
		return diagnostics.ColumnProfile{}, fmt.Errorf("profile column %s: %w", column, err)
	}
	stdDev, err := mstats.StandardDeviationSample(values)
	if err != nil {
		return diagnostics.ColumnProfile{}, fmt.Errorf("profile column %s: %w", column, err)
	}
	mad, err := mstats.MedianAbsoluteDeviation(values)
	if err != nil {
		return diagnostics.ColumnProfile{}, fmt.Errorf("profile column %s: %w", column, err)
	}

	// Nearest-rank percentiles stay defined for small samples
	percentiles := make(map[string]float64, 5)
	for _, p := range []float64{5, 25, 50, 75, 95} {
		v, err := mstats.PercentileNearestRank(values, p)
		if err != nil {
			return diagnostics.ColumnProfile{}, fmt.Errorf("profile column %s: percentile %.0f: %w", column, p, err)
		}
		percentiles[fmt.Sprintf("p%.0f", p)] = v
	}

	q1 := percentiles["p25"]
	q3 := percentiles["p75"]
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	outliers := 0
	for _, v := range values {
		if v < lower || v > upper {
			outliers++
		}
	}

	return diagnostics.ColumnProfile{
		Column:       column,
		Count:        len(values),
		MissingRate:  1 - float64(len(values))/float64(len(raw)),
		Mean:         mean,
		Median:       median,
		TrimmedMean:  trimmedMean(values, trimProportion),
		MAD:          mad * madNormalScale,
		Variance:     variance,
		StdDev:       stdDev,
		IQR:          iqr,
		LowerBound:   lower,
		UpperBound:   upper,
		OutlierCount: outliers,
		Percentiles:  percentiles,
	}, nil
}

// trimmedMean drops the given proportion from each sorted tail and
// averages the rest
func trimmedMean(values []float64, proportion float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	k := int(proportion * float64(len(sorted)))
	trimmed := sorted[k : len(sorted)-k]

	sum := 0.0
	for _, v := range trimmed {
		sum += v
	}
	return sum / float64(len(trimmed))
}
