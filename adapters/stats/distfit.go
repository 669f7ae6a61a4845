package stats

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"nhldiag/domain/core"
	"nhldiag/domain/dataset"
	"nhldiag/domain/diagnostics"
)

// Family names a candidate distribution family for fitting
type Family string

const (
	FamilyNormal    Family = "normal"
	FamilyLogNormal Family = "lognormal"
	FamilyGamma     Family = "gamma"
)

const (
	gammaMaxIterations = 100
	gammaTolerance     = 1e-10
)

// DefaultFamilies returns the standard candidate set
func DefaultFamilies() []Family {
	return []Family{FamilyNormal, FamilyLogNormal, FamilyGamma}
}

// fittedDist is the slice of distuv behavior needed for scoring a fit
type fittedDist interface {
	CDF(x float64) float64
	LogProb(x float64) float64
}

// FitDistributions fits each candidate family to a numeric column by
// maximum likelihood and ranks them by Kolmogorov-Smirnov statistic,
// best fit first. Ties keep the declaration order of families. Families
// whose support excludes the data (lognormal or gamma over non-positive
// values) are skipped. The context is checked between families so long
// sweeps can be cancelled.
func FitDistributions(ctx context.Context, ds *dataset.Dataset, column string, families []Family) (diagnostics.DistributionFitResult, error) {
	raw, err := ds.NumericColumn(column)
	if err != nil {
		return diagnostics.DistributionFitResult{}, fmt.Errorf("fit distributions %s: %w", column, err)
	}

	values := make([]float64, 0, len(raw))
	for _, v := range raw {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}

	if len(values) < MinPairedObservations {
		return diagnostics.DistributionFitResult{}, core.NewInsufficientDataError("fit_distributions "+column, len(values), MinPairedObservations)
	}
	if stat.Variance(values, nil) < minVariance {
		return diagnostics.DistributionFitResult{}, fmt.Errorf("%w: column %s has zero variance", core.ErrInsufficientData, column)
	}

	if len(families) == 0 {
		families = DefaultFamilies()
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var fits []diagnostics.DistributionFit
	for _, family := range families {
		if err := ctx.Err(); err != nil {
			return diagnostics.DistributionFitResult{}, err
		}

		dist, params, ok, err := fitFamily(family, values)
		if err != nil {
			return diagnostics.DistributionFitResult{}, fmt.Errorf("fit distributions %s: %w", column, err)
		}
		if !ok {
			continue
		}

		fits = append(fits, diagnostics.DistributionFit{
			Family:        string(family),
			Params:        params,
			LogLikelihood: logLikelihood(dist, values),
			KSStatistic:   ksStatistic(dist, sorted),
		})
	}

	// Stable sort keeps declaration order across exact KS ties
	sort.SliceStable(fits, func(i, j int) bool {
		return fits[i].KSStatistic < fits[j].KSStatistic
	})

	return diagnostics.DistributionFitResult{
		Column:     column,
		Ranked:     fits,
		SampleSize: len(values),
	}, nil
}

// fitFamily dispatches the per-family maximum-likelihood fit. The boolean
// is false when the family's support excludes the data.
func fitFamily(family Family, values []float64) (fittedDist, map[string]float64, bool, error) {
	switch family {
	case FamilyNormal:
		dist, params := fitNormal(values)
		return dist, params, true, nil
	case FamilyLogNormal:
		if !allPositive(values) {
			return nil, nil, false, nil
		}
		dist, params := fitLogNormal(values)
		return dist, params, true, nil
	case FamilyGamma:
		if !allPositive(values) {
			return nil, nil, false, nil
		}
		dist, params, err := fitGamma(values)
		if err != nil {
			return nil, nil, false, err
		}
		return dist, params, true, nil
	default:
		return nil, nil, false, fmt.Errorf("unknown distribution family: %s", family)
	}
}

func fitNormal(values []float64) (fittedDist, map[string]float64) {
	mu := stat.Mean(values, nil)

	// MLE uses the biased variance (divide by n)
	sumSq := 0.0
	for _, v := range values {
		d := v - mu
		sumSq += d * d
	}
	sigma := math.Sqrt(sumSq / float64(len(values)))

	return distuv.Normal{Mu: mu, Sigma: sigma}, map[string]float64{"mu": mu, "sigma": sigma}
}

func fitLogNormal(values []float64) (fittedDist, map[string]float64) {
	logs := make([]float64, len(values))
	for i, v := range values {
		logs[i] = math.Log(v)
	}
	mu := stat.Mean(logs, nil)

	sumSq := 0.0
	for _, l := range logs {
		d := l - mu
		sumSq += d * d
	}
	sigma := math.Sqrt(sumSq / float64(len(logs)))

	return distuv.LogNormal{Mu: mu, Sigma: sigma}, map[string]float64{"mu": mu, "sigma": sigma}
}

// fitGamma solves the shape MLE by Newton iteration on
// ln(k) - digamma(k) = ln(mean) - mean(ln x), bounded by
// gammaMaxIterations before giving up with a convergence error.
func fitGamma(values []float64) (fittedDist, map[string]float64, error) {
	mean := stat.Mean(values, nil)
	meanLog := 0.0
	for _, v := range values {
		meanLog += math.Log(v)
	}
	meanLog /= float64(len(values))

	s := math.Log(mean) - meanLog
	if s <= 0 {
		// Degenerate (near-constant) data
		return nil, nil, core.NewFitConvergenceError("gamma", 0)
	}

	// Minka's closed-form initial guess
	k := (3 - s + math.Sqrt((s-3)*(s-3)+24*s)) / (12 * s)

	converged := false
	for i := 0; i < gammaMaxIterations; i++ {
		f := math.Log(k) - mathext.Digamma(k) - s
		fPrime := 1/k - trigamma(k)
		if fPrime == 0 {
			break
		}

		step := f / fPrime
		next := k - step
		for next <= 0 {
			step /= 2
			next = k - step
		}
		k = next

		if math.Abs(step) < gammaTolerance {
			converged = true
			break
		}
	}
	if !converged {
		return nil, nil, core.NewFitConvergenceError("gamma", gammaMaxIterations)
	}

	rate := k / mean
	return distuv.Gamma{Alpha: k, Beta: rate}, map[string]float64{"shape": k, "rate": rate}, nil
}

// trigamma approximates the derivative of the digamma function by
// central difference, which is plenty for Newton steps here
func trigamma(x float64) float64 {
	h := 1e-6 * math.Max(1, x)
	return (mathext.Digamma(x+h) - mathext.Digamma(x-h)) / (2 * h)
}

// ksStatistic computes the Kolmogorov-Smirnov distance between the
// empirical CDF of sorted data and a fitted CDF
func ksStatistic(dist fittedDist, sorted []float64) float64 {
	n := float64(len(sorted))
	d := 0.0
	for i, x := range sorted {
		f := dist.CDF(x)
		upper := math.Abs(f - float64(i+1)/n)
		lower := math.Abs(f - float64(i)/n)
		if upper > d {
			d = upper
		}
		if lower > d {
			d = lower
		}
	}
	return d
}

func logLikelihood(dist fittedDist, values []float64) float64 {
	ll := 0.0
	for _, v := range values {
		ll += dist.LogProb(v)
	}
	return ll
}

func allPositive(values []float64) bool {
	for _, v := range values {
		if v <= 0 {
			return false
		}
	}
	return true
}
