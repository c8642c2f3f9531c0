package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dyne/tabexport/internal/log"
	"github.com/dyne/tabexport/internal/metrics"
)

type Options struct {
	DBPath      string
	OutDir      string
	Tables      []string
	Format      string
	Indent      int
	BusyTimeout time.Duration
	MetricsFile string
	Logger      *log.Logger
	Metrics     *metrics.Recorder
}

type Summary struct {
	Results []Result
	Failed  []string
}

// Run connects once and exports every table in order. A failed table is
// logged and skipped; the returned error wraps ErrExportFailed when any
// table failed. A connection failure aborts before anything is written.
func Run(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary
	format, err := ParseFormat(opts.Format)
	if err != nil {
		return summary, err
	}
	if len(opts.Tables) == 0 {
		return summary, fmt.Errorf("no tables to export")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	recorder := opts.Metrics
	if recorder == nil && opts.MetricsFile != "" {
		recorder = metrics.New()
	}

	db, err := Connect(ctx, opts.DBPath, opts.BusyTimeout)
	if err != nil {
		return summary, err
	}
	defer db.Close()
	logger.Debugf("connected to %s", opts.DBPath)

	exp := &Exporter{DB: db, OutDir: opts.OutDir, Format: format, Indent: opts.Indent}
	for _, table := range opts.Tables {
		start := time.Now()
		res, err := exp.Export(ctx, table)
		recorder.ObserveExport(table, res.Rows, res.Bytes, time.Since(start), err)
		if err != nil {
			logger.Errorf("export %s: %v", table, err)
			summary.Failed = append(summary.Failed, table)
			continue
		}
		logger.Infof("exported %s to %s (%d rows)", res.Table, res.Path, res.Rows)
		summary.Results = append(summary.Results, res)
	}

	if err := recorder.WriteFile(opts.MetricsFile, time.Now()); err != nil {
		logger.Errorf("%v", err)
	}
	if len(summary.Failed) > 0 {
		return summary, fmt.Errorf("%w: %d of %d (%s)", ErrExportFailed, len(summary.Failed), len(opts.Tables), strings.Join(summary.Failed, ", "))
	}
	return summary, nil
}
