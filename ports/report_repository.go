package ports

import (
	"context"

	"nhldiag/domain/core"
	"nhldiag/domain/diagnostics"
)

// ReportSummary is a lightweight listing row for stored reports
type ReportSummary struct {
	RunID              core.RunID       `json:"run_id"`
	DatasetFingerprint core.Fingerprint `json:"dataset_fingerprint"`
	PairCount          int              `json:"pair_count"`
	CreatedAt          core.Timestamp   `json:"created_at"`
}

// ReportRepository persists finished diagnostics reports
type ReportRepository interface {
	Save(ctx context.Context, report *diagnostics.DiagnosticsReport) error
	GetByID(ctx context.Context, id core.RunID) (*diagnostics.DiagnosticsReport, error)
	ListRecent(ctx context.Context, limit int) ([]ReportSummary, error)
}
