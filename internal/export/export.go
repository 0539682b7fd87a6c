// Package export writes tabular reports as XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/campo-inteligente/campobot/internal/util"
	"github.com/xuri/excelize/v2"
)

// DefaultDir is where report files are written when no directory is
// configured.
const DefaultDir = "reports"

// Opts holds configuration options for the exporter.
type Opts struct {
	Dir string
}

// Option defines a configuration option for the exporter.
type Option func(*Opts)

// WithDir sets the output directory for report files.
func WithDir(dir string) Option {
	return func(o *Opts) { o.Dir = dir }
}

// Exporter writes reports to XLSX files on disk.
type Exporter struct {
	dir string
}

// NewExporter creates an exporter, creating the output directory if needed.
func NewExporter(opts ...Option) (*Exporter, error) {
	cfg := Opts{Dir: DefaultDir}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory %s: %w", cfg.Dir, err)
	}
	slog.Debug("Exporter created", "dir", cfg.Dir)
	return &Exporter{dir: cfg.Dir}, nil
}

// ExportReport writes headers and rows to a new workbook and returns the
// file path.
func (e *Exporter) ExportReport(name string, headers []string, rows [][]interface{}) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return "", fmt.Errorf("failed to write header %q: %w", header, err)
		}
	}
	for r, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return "", fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return "", fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	path := filepath.Join(e.dir, fmt.Sprintf("%s_%s.xlsx", name, util.GenerateReportID()))
	if err := f.SaveAs(path); err != nil {
		slog.Error("Exporter ExportReport save failed", "error", err, "path", path)
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	slog.Info("Exporter ExportReport wrote file", "path", path, "rows", len(rows))
	return path, nil
}
