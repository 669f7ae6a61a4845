package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"nhldiag/adapters/stats"
	"nhldiag/domain/core"
	"nhldiag/domain/dataset"
	"nhldiag/domain/diagnostics"
	"nhldiag/internal"
)

// RunRequest selects what a pipeline run analyzes. Empty fields default
// to the full numeric sweep.
type RunRequest struct {
	Pairs          []diagnostics.ColumnPair // explicit pairs; empty means all numeric pairs
	ProfileColumns []string                 // empty means all numeric columns
	DistColumns    []string                 // empty means all numeric columns
	Families       []stats.Family           // empty means normal/lognormal/gamma
}

// DiagnosticsService orchestrates the diagnostics pipeline over an
// immutable dataset: pairwise correlation, model fits, relationship
// classification, column profiles, and distribution fits, assembled
// into one report.
type DiagnosticsService struct {
	log            *internal.Logger
	threshold      float64
	trimProportion float64
	workers        int
}

// NewDiagnosticsService creates a diagnostics service
func NewDiagnosticsService(logger *internal.Logger, verdictThreshold, trimProportion float64, workers int) *DiagnosticsService {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	if verdictThreshold <= 0 {
		verdictThreshold = stats.DefaultVerdictThreshold
	}
	if workers < 1 {
		workers = 1
	}
	return &DiagnosticsService{
		log:            logger,
		threshold:      verdictThreshold,
		trimProportion: trimProportion,
		workers:        workers,
	}
}

// Run executes the pipeline. Explicitly requested pairs or columns fail
// the whole run on error; auto-enumerated sweep entries that cannot be
// analyzed (too few paired observations, zero variance) are recorded as
// skipped instead, so one sparse goalie column does not sink the sweep.
// The returned report is fully populated; on error no report is returned.
func (s *DiagnosticsService) Run(ctx context.Context, ds *dataset.Dataset, req RunRequest) (*diagnostics.DiagnosticsReport, error) {
	explicitPairs := len(req.Pairs) > 0
	pairs := req.Pairs
	if !explicitPairs {
		pairs = enumeratePairs(ds.NumericColumns())
	}

	s.log.Info("diagnostics run starting: %d pairs, %d rows", len(pairs), ds.RowCount())

	type pairSlot struct {
		diag *diagnostics.PairDiagnostics
		skip *diagnostics.SkippedPair
	}
	slots := make([]pairSlot, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			diag, err := s.analyzePair(ds, pair)
			if err != nil {
				if !explicitPairs && core.IsInsufficientDataError(err) {
					s.log.Debug("skipping pair %s/%s: %v", pair.X, pair.Y, err)
					slots[i] = pairSlot{skip: &diagnostics.SkippedPair{Pair: pair, Reason: err.Error()}}
					return nil
				}
				return err
			}
			slots[i] = pairSlot{diag: diag}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &diagnostics.DiagnosticsReport{
		RunID:              core.RunID(core.NewID()),
		DatasetFingerprint: ds.Fingerprint(),
		CreatedAt:          core.Now(),
	}
	for _, slot := range slots {
		switch {
		case slot.diag != nil:
			report.Pairs = append(report.Pairs, *slot.diag)
		case slot.skip != nil:
			report.Skipped = append(report.Skipped, *slot.skip)
		}
	}

	profiles, err := s.profileColumns(ds, req.ProfileColumns)
	if err != nil {
		return nil, err
	}
	report.Profiles = profiles

	dists, err := s.fitDistributions(ctx, ds, req.DistColumns, req.Families)
	if err != nil {
		return nil, err
	}
	report.Distributions = dists

	s.log.Info("diagnostics run %s complete: %d pairs analyzed, %d skipped", report.RunID, len(report.Pairs), len(report.Skipped))
	return report, nil
}

// analyzePair runs the full per-pair stage chain
func (s *DiagnosticsService) analyzePair(ds *dataset.Dataset, pair diagnostics.ColumnPair) (*diagnostics.PairDiagnostics, error) {
	corr, err := stats.AnalyzePair(ds, pair.X, pair.Y)
	if err != nil {
		return nil, err
	}

	models, err := stats.FitModels(ds, pair.X, pair.Y)
	if err != nil {
		return nil, err
	}

	verdict, reasons := stats.ClassifyRelationship(corr.Pearson, corr.Spearman, s.threshold)

	return &diagnostics.PairDiagnostics{
		Pair:        pair,
		Correlation: corr,
		Models:      models,
		Verdict:     verdict,
		Reasons:     reasons,
	}, nil
}

func (s *DiagnosticsService) profileColumns(ds *dataset.Dataset, columns []string) (map[string]diagnostics.ColumnProfile, error) {
	explicit := len(columns) > 0
	if !explicit {
		columns = ds.NumericColumns()
	}

	profiles := make(map[string]diagnostics.ColumnProfile, len(columns))
	for _, col := range columns {
		profile, err := stats.ProfileColumn(ds, col, s.trimProportion)
		if err != nil {
			if !explicit && core.IsInsufficientDataError(err) {
				s.log.Warn("profile skipped for %s: %v", col, err)
				continue
			}
			return nil, fmt.Errorf("profile stage: %w", err)
		}
		profiles[col] = profile
	}
	return profiles, nil
}

func (s *DiagnosticsService) fitDistributions(ctx context.Context, ds *dataset.Dataset, columns []string, families []stats.Family) (map[string]diagnostics.DistributionFitResult, error) {
	explicit := len(columns) > 0
	if !explicit {
		columns = ds.NumericColumns()
	}

	results := make(map[string]diagnostics.DistributionFitResult, len(columns))
	for _, col := range columns {
		result, err := stats.FitDistributions(ctx, ds, col, families)
		if err != nil {
			if !explicit && core.IsInsufficientDataError(err) {
				s.log.Warn("distribution fit skipped for %s: %v", col, err)
				continue
			}
			return nil, fmt.Errorf("distribution stage: %w", err)
		}
		results[col] = result
	}
	return results, nil
}

// enumeratePairs generates all unordered numeric column pairs in
// declaration order
func enumeratePairs(columns []string) []diagnostics.ColumnPair {
	var pairs []diagnostics.ColumnPair
	for i := 0; i < len(columns); i++ {
		for j := i + 1; j < len(columns); j++ {
			pairs = append(pairs, diagnostics.ColumnPair{X: columns[i], Y: columns[j]})
		}
	}
	return pairs
}
