package stats

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"nhldiag/domain/core"
)

func TestFitDistributions_NormalSample(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n := 10000
	values := make([]float64, n)
	for i := range values {
		values[i] = rng.NormFloat64()*5 + 20
	}
	ds := makeNumericDataset(t, []string{"points"}, [][]float64{values})

	result, err := FitDistributions(context.Background(), ds, "points", DefaultFamilies())
	if err != nil {
		t.Fatalf("FitDistributions failed: %v", err)
	}

	best, ok := result.Best()
	if !ok {
		t.Fatal("expected at least one fitted family")
	}
	if best.Family != string(FamilyNormal) {
		t.Errorf("expected normal ranked first on normal data, got %s", best.Family)
	}
	if best.KSStatistic > 0.05 {
		t.Errorf("expected KS < 0.05 for true family, got %f", best.KSStatistic)
	}
	if math.Abs(best.Params["mu"]-20) > 0.5 {
		t.Errorf("expected mu ~20, got %f", best.Params["mu"])
	}
	if math.Abs(best.Params["sigma"]-5) > 0.5 {
		t.Errorf("expected sigma ~5, got %f", best.Params["sigma"])
	}
}

func TestFitDistributions_LogNormalSample(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	n := 5000
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Exp(rng.NormFloat64())
	}
	ds := makeNumericDataset(t, []string{"v"}, [][]float64{values})

	result, err := FitDistributions(context.Background(), ds, "v", DefaultFamilies())
	if err != nil {
		t.Fatalf("FitDistributions failed: %v", err)
	}

	best, _ := result.Best()
	if best.Family != string(FamilyLogNormal) {
		t.Errorf("expected lognormal ranked first on lognormal data, got %s", best.Family)
	}
	if best.KSStatistic > 0.05 {
		t.Errorf("expected KS < 0.05, got %f", best.KSStatistic)
	}
}

func TestFitDistributions_GammaConverges(t *testing.T) {
	// Shape-3 gamma as a sum of three exponentials
	rng := rand.New(rand.NewSource(5))
	n := 4000
	values := make([]float64, n)
	for i := range values {
		v := 0.0
		for k := 0; k < 3; k++ {
			v += -math.Log(1-rng.Float64()) / 2.0
		}
		values[i] = v
	}
	ds := makeNumericDataset(t, []string{"v"}, [][]float64{values})

	result, err := FitDistributions(context.Background(), ds, "v", DefaultFamilies())
	if err != nil {
		t.Fatalf("FitDistributions failed: %v", err)
	}

	var gammaFit *struct {
		shape, rate, ks float64
	}
	var gammaRank, normalRank int
	for i, fit := range result.Ranked {
		switch fit.Family {
		case string(FamilyGamma):
			gammaRank = i
			gammaFit = &struct{ shape, rate, ks float64 }{fit.Params["shape"], fit.Params["rate"], fit.KSStatistic}
		case string(FamilyNormal):
			normalRank = i
		}
	}

	if gammaFit == nil {
		t.Fatal("expected gamma fit to converge on gamma data")
	}
	if math.Abs(gammaFit.shape-3) > 0.5 {
		t.Errorf("expected shape ~3, got %f", gammaFit.shape)
	}
	if math.Abs(gammaFit.rate-2) > 0.5 {
		t.Errorf("expected rate ~2, got %f", gammaFit.rate)
	}
	if gammaFit.ks > 0.05 {
		t.Errorf("expected KS < 0.05 for true family, got %f", gammaFit.ks)
	}
	if gammaRank > normalRank {
		t.Errorf("expected gamma (rank %d) ahead of normal (rank %d) on skewed gamma data", gammaRank, normalRank)
	}
}

func TestFitDistributions_NegativeDataSkipsPositiveFamilies(t *testing.T) {
	values := []float64{-3, -1, 0, 1, 2, 4, -2, 5, 1.5, -0.5}
	ds := makeNumericDataset(t, []string{"plus_minus"}, [][]float64{values})

	result, err := FitDistributions(context.Background(), ds, "plus_minus", DefaultFamilies())
	if err != nil {
		t.Fatalf("FitDistributions failed: %v", err)
	}

	if len(result.Ranked) != 1 {
		t.Fatalf("expected only the normal family to fit, got %d fits", len(result.Ranked))
	}
	if result.Ranked[0].Family != string(FamilyNormal) {
		t.Errorf("expected normal, got %s", result.Ranked[0].Family)
	}
}

func TestFitDistributions_Cancelled(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	ds := makeNumericDataset(t, []string{"v"}, [][]float64{values})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FitDistributions(ctx, ds, "v", DefaultFamilies())
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFitDistributions_InsufficientData(t *testing.T) {
	nan := math.NaN()
	values := []float64{1, 2, nan, nan, nan}
	ds := makeNumericDataset(t, []string{"v"}, [][]float64{values})

	_, err := FitDistributions(context.Background(), ds, "v", DefaultFamilies())
	if !core.IsInsufficientDataError(err) {
		t.Fatalf("expected insufficient data error, got %v", err)
	}
}

func TestFitGamma_DegenerateData(t *testing.T) {
	// Constant data collapses the digamma equation; the shape MLE cannot
	// converge
	_, _, err := fitGamma([]float64{2, 2, 2})
	if !core.IsFitConvergenceError(err) {
		t.Fatalf("expected fit convergence error on constant data, got %v", err)
	}
}

func TestFitDistributions_UnknownFamily(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	ds := makeNumericDataset(t, []string{"v"}, [][]float64{values})

	_, err := FitDistributions(context.Background(), ds, "v", []Family{"weibull"})
	if err == nil {
		t.Fatal("expected error for unknown family")
	}
}
