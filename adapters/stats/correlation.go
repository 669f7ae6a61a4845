package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"nhldiag/domain/core"
	"nhldiag/domain/dataset"
	"nhldiag/domain/diagnostics"
)

const (
	// MinPairedObservations is the minimum pairwise-complete sample size
	// for any correlation or regression statistic.
	MinPairedObservations = 3

	// DefaultVerdictThreshold is the |rho|-|r| margin that flags a
	// monotonic-but-nonlinear relationship.
	DefaultVerdictThreshold = 0.10

	// weakCorrelation is the significance floor below which both
	// coefficients are treated as noise.
	weakCorrelation = 0.1

	minVariance = 1e-10
)

// AnalyzePair computes Pearson and Spearman coefficients for two numeric
// columns over their pairwise-complete observations.
func AnalyzePair(ds *dataset.Dataset, colA, colB string) (diagnostics.PairCorrelation, error) {
	x, y, _, err := ds.PairedComplete(colA, colB)
	if err != nil {
		return diagnostics.PairCorrelation{}, fmt.Errorf("analyze pair %s/%s: %w", colA, colB, err)
	}

	n := len(x)
	if n < MinPairedObservations {
		return diagnostics.PairCorrelation{}, core.NewInsufficientDataError("analyze_pair "+colA+"/"+colB, n, MinPairedObservations)
	}
	if stat.Variance(x, nil) < minVariance {
		return diagnostics.PairCorrelation{}, fmt.Errorf("%w: column %s has zero variance", core.ErrInsufficientData, colA)
	}
	if stat.Variance(y, nil) < minVariance {
		return diagnostics.PairCorrelation{}, fmt.Errorf("%w: column %s has zero variance", core.ErrInsufficientData, colB)
	}

	pearson := clampCoefficient(stat.Correlation(x, y, nil))
	spearman := clampCoefficient(stat.Correlation(Ranks(x), Ranks(y), nil))

	return diagnostics.PairCorrelation{
		ColumnX:    colA,
		ColumnY:    colB,
		Pearson:    pearson,
		PearsonP:   CorrelationPValue(pearson, n),
		Spearman:   spearman,
		SpearmanP:  CorrelationPValue(spearman, n),
		SampleSize: n,
	}, nil
}

// ClassifyRelationship applies the deterministic verdict rule: a Spearman
// coefficient clearly exceeding Pearson in magnitude signals a monotonic
// nonlinear relationship; two weak coefficients signal none.
// Reasons explain which rule fired.
func ClassifyRelationship(pearson, spearman, threshold float64) (diagnostics.Verdict, []string) {
	if threshold <= 0 {
		threshold = DefaultVerdictThreshold
	}

	absR := math.Abs(pearson)
	absRho := math.Abs(spearman)

	if absRho-absR > threshold {
		return diagnostics.VerdictNonlinearMonotonic,
			[]string{fmt.Sprintf("|rho| exceeds |r| by %.3f (threshold %.2f)", absRho-absR, threshold)}
	}
	if absR < weakCorrelation && absRho < weakCorrelation {
		return diagnostics.VerdictNoRelationship,
			[]string{fmt.Sprintf("both |r|=%.3f and |rho|=%.3f below %.2f", absR, absRho, weakCorrelation)}
	}
	return diagnostics.VerdictLinear, nil
}

// CorrelationPValue computes the exact two-tailed p-value for a
// correlation coefficient via the Student's t-distribution.
func CorrelationPValue(coefficient float64, sampleSize int) float64 {
	if sampleSize < 3 {
		return 1.0
	}

	d := 1 - coefficient*coefficient
	if d <= 0 {
		// Perfect correlation
		return 0
	}

	df := float64(sampleSize - 2)
	tStatistic := coefficient * math.Sqrt(df/d)
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}

	p := 2 * (1 - tDist.CDF(math.Abs(tStatistic)))
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Ranks converts values to ranks, averaging over ties
func Ranks(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return []float64{}
	}

	type pair struct {
		value float64
		index int
	}

	pairs := make([]pair, n)
	for i, val := range data {
		pairs[i] = pair{value: val, index: i}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].value < pairs[j].value
	})

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i + 1
		for j < n && pairs[j].value == pairs[i].value {
			j++
		}

		groupSize := j - i
		avgRank := float64(i+1) + float64(groupSize-1)/2.0
		for k := i; k < j; k++ {
			ranks[pairs[k].index] = avgRank
		}
		i = j
	}

	return ranks
}

// clampCoefficient guards against floating point drift outside [-1, 1]
func clampCoefficient(r float64) float64 {
	if r > 1.0 {
		return 1.0
	}
	if r < -1.0 {
		return -1.0
	}
	return r
}
