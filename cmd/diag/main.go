package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"nhldiag/adapters/postgres"
	"nhldiag/adapters/tabular"
	"nhldiag/app"
	"nhldiag/domain/core"
	"nhldiag/domain/diagnostics"
	"nhldiag/internal"
	"nhldiag/internal/config"
	"nhldiag/ports"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	var (
		filePath    = flag.String("file", "", "path to CSV or XLSX input (overrides DATA_FILE)")
		pairX       = flag.String("x", "", "predictor column for a single-pair run")
		pairY       = flag.String("y", "", "target column for a single-pair run")
		distColumns = flag.String("dist", "", "comma-separated columns for distribution fitting (default: all numeric)")
		outPath     = flag.String("out", "", "write the JSON report to this file instead of stdout")
		save        = flag.Bool("save", false, "persist the report to postgres (requires DATABASE_URL)")
		getRunID    = flag.String("get", "", "print a stored report by run ID and exit (requires DATABASE_URL)")
		draftSchema = flag.Bool("draft-schema", false, "validate input against the NHL draft schema")
	)
	flag.Parse()

	logger := internal.NewDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *getRunID != "" {
		if err := printStoredReport(ctx, cfg, *getRunID); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		return
	}

	path := *filePath
	if path == "" {
		path = cfg.Data.FilePath
	}
	if path == "" {
		logger.Error("no input file: pass -file or set DATA_FILE")
		os.Exit(1)
	}

	opts := tabular.DefaultOptions()
	opts.Sheet = cfg.Data.Sheet
	if *draftSchema {
		opts.Schema = tabular.DraftSchema()
	}

	var reader ports.DatasetReader = tabular.NewReader(path, opts)
	ds, err := reader.Read()
	if err != nil {
		logger.Error("failed to load %s: %v", path, err)
		os.Exit(1)
	}
	logger.Info("loaded %s: %d rows, %d columns", path, ds.RowCount(), ds.ColumnCount())

	req := app.RunRequest{}
	if *pairX != "" && *pairY != "" {
		req.Pairs = []diagnostics.ColumnPair{{X: *pairX, Y: *pairY}}
	}
	if *distColumns != "" {
		for _, col := range strings.Split(*distColumns, ",") {
			req.DistColumns = append(req.DistColumns, strings.TrimSpace(col))
		}
	}

	svc := app.NewDiagnosticsService(logger, cfg.Analysis.VerdictThreshold, cfg.Analysis.TrimProportion, cfg.Analysis.PairWorkers)
	report, err := svc.Run(ctx, ds, req)
	if err != nil {
		logger.Error("diagnostics run failed: %v", err)
		os.Exit(1)
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Error("failed to encode report: %v", err)
		os.Exit(1)
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, payload, 0o644); err != nil {
			logger.Error("failed to write %s: %v", *outPath, err)
			os.Exit(1)
		}
		logger.Info("report written to %s", *outPath)
	} else {
		fmt.Println(string(payload))
	}

	if *save {
		if !cfg.Database.Enabled() {
			logger.Error("-save requires DATABASE_URL")
			os.Exit(1)
		}
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := postgres.EnsureSchema(ctx, db); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		if err := postgres.NewReportRepository(db).Save(ctx, report); err != nil {
			logger.Error("failed to persist report: %v", err)
			os.Exit(1)
		}
		logger.Info("report %s persisted", report.RunID)
	}
}

// printStoredReport fetches a persisted report and writes it to stdout
func printStoredReport(ctx context.Context, cfg *config.Config, rawID string) error {
	runID, err := core.ParseRunID(rawID)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return fmt.Errorf("-get requires DATABASE_URL")
	}

	db, err := postgres.Connect(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := postgres.NewReportRepository(db).GetByID(ctx, runID)
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Println(string(payload))
	return nil
}
