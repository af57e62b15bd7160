package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"emcal/adapters/excel"
	"emcal/adapters/influx"
	"emcal/adapters/mapper"
	"emcal/adapters/postgres"
	"emcal/adapters/report"
	"emcal/app"
	"emcal/internal"
	"emcal/internal/config"
	"emcal/ports"
)

func main() {
	simFiles := flag.String("sim", "", "comma-separated simulated data files (csv or xlsx)")
	measuredFiles := flag.String("measured", "", "comma-separated measured data files (csv or xlsx); omit to use the configured InfluxDB source")
	reportPath := flag.String("report", "", "write the markdown report to this path instead of stdout")
	htmlReport := flag.Bool("html", false, "render the report as HTML")
	persist := flag.Bool("persist", false, "persist the report to the configured Postgres database")
	flag.Parse()

	if err := run(*simFiles, *measuredFiles, *reportPath, *htmlReport, *persist); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(simFiles, measuredFiles, reportPath string, htmlReport, persist bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := internal.NewDefaultLogger()

	if simFiles == "" {
		return fmt.Errorf("-sim is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	simSource := excel.NewDataReader("simulated", splitFiles(simFiles)...)
	var measuredSource ports.TableSource
	if measuredFiles != "" {
		measuredSource = excel.NewDataReader("measured", splitFiles(measuredFiles)...)
	} else {
		if cfg.Influx.URL == "" {
			return fmt.Errorf("-measured is required when no InfluxDB source is configured")
		}
		reader := influx.NewReader(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket,
			influx.Window{Start: time.Now().AddDate(-3, 0, 0), Stop: time.Now()})
		defer reader.Close()
		measuredSource = reader
	}

	runCfg := cfg.Run.ToRunConfig()
	service, err := app.NewValidationService(&runCfg, mapper.DefaultDictionary(), nil, logger)
	if err != nil {
		return err
	}

	simTables, err := simSource.Tables(ctx)
	if err != nil {
		return err
	}
	measTables, err := measuredSource.Tables(ctx)
	if err != nil {
		return err
	}

	result, err := service.Run(ctx, simTables, measTables)
	if err != nil {
		return err
	}
	logger.Info("run %s: %d passed, %d failed, %d skipped",
		result.RunID, result.CountPassed, result.CountFailed, result.CountSkipped)

	if persist {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("-persist requires EMCAL_DATABASE_URL")
		}
		db, err := postgres.Connect(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		if err := postgres.NewReportRepository(db).SaveReport(ctx, result); err != nil {
			return err
		}
	}

	reporter := report.New()
	var out []byte
	if htmlReport {
		out, err = reporter.RenderHTML(result)
	} else {
		out, err = reporter.Render(result)
	}
	if err != nil {
		return err
	}

	if reportPath != "" {
		return os.WriteFile(reportPath, out, 0o644)
	}
	_, err = os.Stdout.Write(out)
	return err
}

func splitFiles(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
