package stats

import (
	"math"
	"testing"

	"nhldiag/domain/core"
)

func TestFitModels_PerfectLinear(t *testing.T) {
	n := 20
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i + 1)
		y[i] = 2*x[i] + 3
	}
	ds := makeNumericDataset(t, []string{"x", "y"}, [][]float64{x, y})

	result, err := FitModels(ds, "x", "y")
	if err != nil {
		t.Fatalf("FitModels failed: %v", err)
	}

	if math.Abs(result.Linear.Slope()-2) > 1e-8 {
		t.Errorf("expected slope ~2, got %f", result.Linear.Slope())
	}
	if math.Abs(result.Linear.Intercept()-3) > 1e-8 {
		t.Errorf("expected intercept ~3, got %f", result.Linear.Intercept())
	}
	if math.Abs(result.Linear.RSquared-1) > 1e-9 {
		t.Errorf("expected R^2 ~1, got %f", result.Linear.RSquared)
	}
	for i, r := range result.Residuals {
		if math.Abs(r) > 1e-8 {
			t.Errorf("residual[%d] = %g, expected ~0", i, r)
		}
	}
	if result.Heteroscedastic {
		t.Error("perfect line should not be flagged heteroscedastic")
	}
	if len(result.Residuals) != n {
		t.Errorf("expected %d residuals, got %d", n, len(result.Residuals))
	}
}

func TestFitModels_QuadraticRecovery(t *testing.T) {
	var x, y []float64
	for i := -10; i <= 10; i++ {
		xi := float64(i)
		x = append(x, xi)
		y = append(y, xi*xi-4*xi+1)
	}
	ds := makeNumericDataset(t, []string{"x", "y"}, [][]float64{x, y})

	result, err := FitModels(ds, "x", "y")
	if err != nil {
		t.Fatalf("FitModels failed: %v", err)
	}

	want := []float64{1, -4, 1}
	for i, c := range result.Quadratic.Coefficients {
		if math.Abs(c-want[i]) > 1e-6 {
			t.Errorf("quadratic coefficient[%d] = %f, want %f", i, c, want[i])
		}
	}
	if math.Abs(result.Quadratic.RSquared-1) > 1e-9 {
		t.Errorf("expected quadratic R^2 ~1, got %f", result.Quadratic.RSquared)
	}
	if result.DeltaRSquared < 0.03 {
		t.Errorf("expected quadratic to clearly improve on linear, delta R^2 = %f", result.DeltaRSquared)
	}
}

func TestFitModels_ResidualAlignment(t *testing.T) {
	nan := math.NaN()
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{5, 7, nan, 11, 13, 15}
	ds := makeNumericDataset(t, []string{"x", "y"}, [][]float64{x, y})

	result, err := FitModels(ds, "x", "y")
	if err != nil {
		t.Fatalf("FitModels failed: %v", err)
	}

	if len(result.Residuals) != 6 {
		t.Fatalf("expected row-aligned residuals of length 6, got %d", len(result.Residuals))
	}
	if !math.IsNaN(result.Residuals[2]) {
		t.Errorf("expected NaN residual at missing row, got %f", result.Residuals[2])
	}
	for i, r := range result.Residuals {
		if i == 2 {
			continue
		}
		if math.IsNaN(r) {
			t.Errorf("unexpected NaN residual at row %d", i)
		}
	}
	if result.SampleSize != 5 {
		t.Errorf("expected sample size 5, got %d", result.SampleSize)
	}
}

// Pairs of observations at the same x with symmetric +/-d noise keep the
// OLS fit exactly on the true line, making injected residuals exact.
func makeNoisyLine(spread func(x float64) float64) (x, y []float64) {
	for i := 1; i <= 20; i++ {
		xi := float64(i)
		d := spread(xi)
		x = append(x, xi, xi)
		y = append(y, 2*xi+3+d, 2*xi+3-d)
	}
	return x, y
}

func TestFitModels_HeteroscedasticFlag(t *testing.T) {
	x, y := makeNoisyLine(func(x float64) float64 {
		if x > 10 {
			return 8
		}
		return 1
	})
	ds := makeNumericDataset(t, []string{"x", "y"}, [][]float64{x, y})

	result, err := FitModels(ds, "x", "y")
	if err != nil {
		t.Fatalf("FitModels failed: %v", err)
	}
	if !result.Heteroscedastic {
		t.Error("expected heteroscedastic flag for residual spread growing 8x across bins")
	}
}

func TestFitModels_HomoscedasticNotFlagged(t *testing.T) {
	x, y := makeNoisyLine(func(float64) float64 { return 1 })
	ds := makeNumericDataset(t, []string{"x", "y"}, [][]float64{x, y})

	result, err := FitModels(ds, "x", "y")
	if err != nil {
		t.Fatalf("FitModels failed: %v", err)
	}
	if result.Heteroscedastic {
		t.Error("constant residual spread should not be flagged heteroscedastic")
	}
}

func TestFitModels_InsufficientData(t *testing.T) {
	ds := makeNumericDataset(t, []string{"x", "y"}, [][]float64{{1, 2}, {3, 4}})

	_, err := FitModels(ds, "x", "y")
	if !core.IsInsufficientDataError(err) {
		t.Fatalf("expected insufficient data error, got %v", err)
	}
}

func TestFitModels_TooFewDistinctPredictors(t *testing.T) {
	x := []float64{1, 1, 2, 2}
	y := []float64{1, 2, 3, 4}
	ds := makeNumericDataset(t, []string{"x", "y"}, [][]float64{x, y})

	_, err := FitModels(ds, "x", "y")
	if !core.IsInsufficientDataError(err) {
		t.Fatalf("expected insufficient data error for 2 distinct predictor values, got %v", err)
	}
}
