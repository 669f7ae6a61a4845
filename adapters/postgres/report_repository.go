package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"nhldiag/domain/core"
	"nhldiag/domain/diagnostics"
	"nhldiag/ports"
)

// Connect opens a postgres connection pool
func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

const reportsSchema = `
CREATE TABLE IF NOT EXISTS diagnostics_reports (
	run_id              TEXT PRIMARY KEY,
	dataset_fingerprint TEXT NOT NULL,
	pair_count          INT NOT NULL,
	payload             JSONB NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_diagnostics_reports_fingerprint
	ON diagnostics_reports (dataset_fingerprint, created_at DESC);
`

// reportRepository implements the ReportRepository interface
type reportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlx.DB) ports.ReportRepository {
	return &reportRepository{db: db}
}

// EnsureSchema creates the reports table when missing
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, reportsSchema); err != nil {
		return fmt.Errorf("failed to ensure reports schema: %w", err)
	}
	return nil
}

// Save inserts a finished report
func (r *reportRepository) Save(ctx context.Context, report *diagnostics.DiagnosticsReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `INSERT INTO diagnostics_reports (
		run_id, dataset_fingerprint, pair_count, payload, created_at
	) VALUES ($1, $2, $3, $4, $5)`

	_, err = r.db.ExecContext(ctx, query,
		report.RunID.String(), report.DatasetFingerprint.String(), len(report.Pairs), payload, report.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.RunID, err)
	}
	return nil
}

// GetByID retrieves a stored report
func (r *reportRepository) GetByID(ctx context.Context, id core.RunID) (*diagnostics.DiagnosticsReport, error) {
	query := `SELECT payload FROM diagnostics_reports WHERE run_id = $1`

	var payload []byte
	if err := r.db.QueryRowContext(ctx, query, id.String()).Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("report not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}

	var report diagnostics.DiagnosticsReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", id, err)
	}
	return &report, nil
}

// ListRecent returns summaries of the most recent reports
func (r *reportRepository) ListRecent(ctx context.Context, limit int) ([]ports.ReportSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT run_id, dataset_fingerprint, pair_count, created_at
		FROM diagnostics_reports ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var summaries []ports.ReportSummary
	for rows.Next() {
		var (
			runID       string
			fingerprint string
			pairCount   int
			createdAt   sql.NullTime
		)
		if err := rows.Scan(&runID, &fingerprint, &pairCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan report summary: %w", err)
		}
		summaries = append(summaries, ports.ReportSummary{
			RunID:              core.RunID(runID),
			DatasetFingerprint: core.Fingerprint(fingerprint),
			PairCount:          pairCount,
			CreatedAt:          core.NewTimestamp(createdAt.Time),
		})
	}
	return summaries, rows.Err()
}
