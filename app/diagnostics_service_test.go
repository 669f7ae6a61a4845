package app

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nhldiag/domain/dataset"
	"nhldiag/domain/diagnostics"
	"nhldiag/internal"
)

// sweepDataset builds five numeric columns with known relationships:
// a perfect line, a convex monotonic curve, an alternating no-signal
// column, and a column too sparse to analyze.
func sweepDataset(t *testing.T) *dataset.Dataset {
	t.Helper()

	n := 30
	x := make([]float64, n)
	linear := make([]float64, n)
	convex := make([]float64, n)
	alternating := make([]float64, n)
	sparse := make([]float64, n)

	for i := 0; i < n; i++ {
		xi := float64(i + 1)
		x[i] = xi
		linear[i] = 2*xi + 3
		convex[i] = math.Exp(xi / 4)
		if i%2 == 0 {
			alternating[i] = 1
		} else {
			alternating[i] = -1
		}
		sparse[i] = math.NaN()
	}
	sparse[0], sparse[1] = 5, 7

	names := []string{"x", "linear", "convex", "alternating", "sparse"}
	cols := [][]float64{x, linear, convex, alternating, sparse}

	meta := make([]dataset.ColumnMeta, len(names))
	numeric := make([][]float64, len(names))
	labels := make([][]string, len(names))
	for i := range names {
		meta[i] = dataset.ColumnMeta{Name: names[i], Type: dataset.TypeNumeric}
		numeric[i] = cols[i]
	}

	ds, err := dataset.New(meta, numeric, labels)
	require.NoError(t, err)
	return ds
}

func newTestService() *DiagnosticsService {
	return NewDiagnosticsService(internal.NewLogger(internal.LogLevelError), 0.10, 0.10, 2)
}

func findPair(t *testing.T, report *diagnostics.DiagnosticsReport, x, y string) diagnostics.PairDiagnostics {
	t.Helper()
	for _, p := range report.Pairs {
		if p.Pair.X == x && p.Pair.Y == y {
			return p
		}
	}
	t.Fatalf("pair %s/%s not found in report", x, y)
	return diagnostics.PairDiagnostics{}
}

func TestRun_FullSweep(t *testing.T) {
	ds := sweepDataset(t)
	svc := newTestService()

	report, err := svc.Run(context.Background(), ds, RunRequest{})
	require.NoError(t, err)

	assert.False(t, report.RunID.String() == "", "report should carry a run ID")
	assert.Equal(t, ds.Fingerprint(), report.DatasetFingerprint)

	// 5 numeric columns -> 10 pairs; the 4 involving the sparse column
	// are skipped, not fatal
	assert.Len(t, report.Pairs, 6)
	assert.Len(t, report.Skipped, 4)

	lin := findPair(t, report, "x", "linear")
	assert.Equal(t, diagnostics.VerdictLinear, lin.Verdict)
	assert.InDelta(t, 2.0, lin.Models.Linear.Slope(), 1e-8)
	assert.InDelta(t, 3.0, lin.Models.Linear.Intercept(), 1e-8)

	curved := findPair(t, report, "x", "convex")
	assert.Equal(t, diagnostics.VerdictNonlinearMonotonic, curved.Verdict)
	assert.NotEmpty(t, curved.Reasons)

	flat := findPair(t, report, "x", "alternating")
	assert.Equal(t, diagnostics.VerdictNoRelationship, flat.Verdict)

	// Sparse column is excluded from profiles and distribution fits too
	assert.Len(t, report.Profiles, 4)
	assert.Len(t, report.Distributions, 4)
	assert.NotContains(t, report.Profiles, "sparse")

	// Alternating column has negative values: only normal can fit
	alt := report.Distributions["alternating"]
	require.Len(t, alt.Ranked, 1)
	assert.Equal(t, "normal", alt.Ranked[0].Family)
}

func TestRun_ExplicitPair(t *testing.T) {
	ds := sweepDataset(t)
	svc := newTestService()

	report, err := svc.Run(context.Background(), ds, RunRequest{
		Pairs:          []diagnostics.ColumnPair{{X: "x", Y: "linear"}},
		ProfileColumns: []string{"x"},
		DistColumns:    []string{"linear"},
	})
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	assert.Empty(t, report.Skipped)
	assert.Len(t, report.Profiles, 1)
	assert.Len(t, report.Distributions, 1)
}

func TestRun_ExplicitPairFailure(t *testing.T) {
	ds := sweepDataset(t)
	svc := newTestService()

	// Explicitly requested pairs do not get the skip treatment
	report, err := svc.Run(context.Background(), ds, RunRequest{
		Pairs: []diagnostics.ColumnPair{{X: "x", Y: "sparse"}},
	})
	require.Error(t, err)
	assert.Nil(t, report, "failed run must not return a partial report")
}

func TestRun_UnknownColumnFailsSweep(t *testing.T) {
	ds := sweepDataset(t)
	svc := newTestService()

	_, err := svc.Run(context.Background(), ds, RunRequest{
		ProfileColumns: []string{"absent"},
	})
	require.Error(t, err)
}

func TestRun_Cancelled(t *testing.T) {
	ds := sweepDataset(t)
	svc := newTestService()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Run(ctx, ds, RunRequest{})
	require.Error(t, err)
	assert.Nil(t, report)
}

func TestEnumeratePairs(t *testing.T) {
	pairs := enumeratePairs([]string{"a", "b", "c"})
	want := []diagnostics.ColumnPair{{X: "a", Y: "b"}, {X: "a", Y: "c"}, {X: "b", Y: "c"}}
	assert.Equal(t, want, pairs)
}
