package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"nhldiag/domain/core"
	"nhldiag/domain/dataset"
	"nhldiag/domain/diagnostics"
)

const (
	heteroBins          = 5
	heteroMinBinSize    = 3
	heteroVarianceRatio = 4.0
)

// FitModels fits ordinary-least-squares linear and quadratic models of
// target on predictor. Residuals are reported against the linear model,
// row-aligned with the dataset (NaN where the pair was missing).
func FitModels(ds *dataset.Dataset, predictor, target string) (diagnostics.ModelFitResult, error) {
	x, y, rowIdx, err := ds.PairedComplete(predictor, target)
	if err != nil {
		return diagnostics.ModelFitResult{}, fmt.Errorf("fit models %s->%s: %w", predictor, target, err)
	}

	n := len(x)
	if n < MinPairedObservations {
		return diagnostics.ModelFitResult{}, core.NewInsufficientDataError("fit_models "+predictor+"->"+target, n, MinPairedObservations)
	}
	if stat.Variance(x, nil) < minVariance {
		return diagnostics.ModelFitResult{}, fmt.Errorf("%w: predictor %s has zero variance", core.ErrInsufficientData, predictor)
	}

	// Linear OLS
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	linFitted := make([]float64, n)
	linResiduals := make([]float64, n)
	for i := range x {
		linFitted[i] = alpha + beta*x[i]
		linResiduals[i] = y[i] - linFitted[i]
	}
	linear := diagnostics.ModelFit{
		Degree:       1,
		Coefficients: []float64{alpha, beta},
		RSquared:     rSquared(y, linFitted),
	}

	// Quadratic OLS
	quadCoeffs, err := fitQuadratic(x, y)
	if err != nil {
		return diagnostics.ModelFitResult{}, fmt.Errorf("fit models %s->%s: %w", predictor, target, err)
	}
	quadFitted := make([]float64, n)
	for i := range x {
		quadFitted[i] = quadCoeffs[0] + quadCoeffs[1]*x[i] + quadCoeffs[2]*x[i]*x[i]
	}
	quadratic := diagnostics.ModelFit{
		Degree:       2,
		Coefficients: quadCoeffs,
		RSquared:     rSquared(y, quadFitted),
	}

	// Row-aligned residual sequence
	residuals := make(diagnostics.Residuals, ds.RowCount())
	for i := range residuals {
		residuals[i] = math.NaN()
	}
	for i, row := range rowIdx {
		residuals[row] = linResiduals[i]
	}

	residFittedCorr := 0.0
	if stat.Variance(linFitted, nil) >= minVariance && stat.Variance(linResiduals, nil) >= minVariance {
		residFittedCorr = clampCoefficient(stat.Correlation(linFitted, linResiduals, nil))
	}

	return diagnostics.ModelFitResult{
		Predictor:          predictor,
		Target:             target,
		Linear:             linear,
		Quadratic:          quadratic,
		Residuals:          residuals,
		DeltaRSquared:      quadratic.RSquared - linear.RSquared,
		ResidualFittedCorr: residFittedCorr,
		Heteroscedastic:    heteroscedastic(x, linResiduals),
		SampleSize:         n,
	}, nil
}

// fitQuadratic solves the degree-2 least squares problem via QR on the
// Vandermonde matrix. Coefficients come back in ascending degree order.
func fitQuadratic(x, y []float64) ([]float64, error) {
	distinct := make(map[float64]struct{}, len(x))
	for _, v := range x {
		distinct[v] = struct{}{}
	}
	if len(distinct) < 3 {
		return nil, fmt.Errorf("%w: quadratic fit needs 3 distinct predictor values, have %d", core.ErrInsufficientData, len(distinct))
	}

	n := len(x)
	a := mat.NewDense(n, 3, nil)
	b := mat.NewDense(n, 1, nil)
	for i := range x {
		a.Set(i, 0, 1)
		a.Set(i, 1, x[i])
		a.Set(i, 2, x[i]*x[i])
		b.Set(i, 0, y[i])
	}

	var qr mat.QR
	qr.Factorize(a)

	var c mat.Dense
	if err := qr.SolveTo(&c, false, b); err != nil {
		return nil, fmt.Errorf("quadratic least squares solve: %w", err)
	}

	return []float64{c.At(0, 0), c.At(1, 0), c.At(2, 0)}, nil
}

// rSquared computes the coefficient of determination 1 - SSE/TSS
func rSquared(y, fitted []float64) float64 {
	mean := stat.Mean(y, nil)

	sse, tss := 0.0, 0.0
	for i := range y {
		e := y[i] - fitted[i]
		d := y[i] - mean
		sse += e * e
		tss += d * d
	}

	if tss < minVariance {
		// Constant target: a model reproducing it exactly explains
		// everything there is to explain
		if sse < minVariance {
			return 1
		}
		return 0
	}
	return 1 - sse/tss
}

// heteroscedastic bins residuals by predictor value and compares variance
// across bins. A coarse Goldfeld-Quandt style ratio test: the flag fires
// when the largest qualifying bin variance exceeds the smallest by more
// than heteroVarianceRatio.
func heteroscedastic(x, residuals []float64) bool {
	min, max := x[0], x[0]
	for _, v := range x {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	width := (max - min) / float64(heteroBins)
	if width <= 0 {
		return false
	}

	binned := make([][]float64, heteroBins)
	for i, v := range x {
		bin := int((v - min) / width)
		if bin >= heteroBins {
			bin = heteroBins - 1
		}
		binned[bin] = append(binned[bin], residuals[i])
	}

	minVar, maxVar := math.Inf(1), math.Inf(-1)
	qualifying := 0
	for _, bin := range binned {
		if len(bin) < heteroMinBinSize {
			continue
		}
		qualifying++
		v := stat.Variance(bin, nil)
		if v < minVar {
			minVar = v
		}
		if v > maxVar {
			maxVar = v
		}
	}

	if qualifying < 2 {
		return false
	}
	if minVar < minVariance {
		return maxVar >= minVariance
	}
	return maxVar/minVar > heteroVarianceRatio
}
