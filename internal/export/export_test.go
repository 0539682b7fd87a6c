package export

import (
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExportReport(t *testing.T) {
	exp, err := NewExporter(WithDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}

	headers := []string{"Animal", "Vaccine", "Date"}
	rows := [][]interface{}{
		{"Cattle", "FMD", "10/05/2026"},
		{"Goats", "Clostridial", "22/06/2026"},
	}
	path, err := exp.ExportReport("livestock", headers, rows)
	if err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}
	if !strings.HasSuffix(path, ".xlsx") {
		t.Errorf("path %q missing .xlsx suffix", path)
	}
	if !strings.Contains(path, "livestock_") {
		t.Errorf("path %q missing report name", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile(%s) error = %v", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	got, err := f.GetCellValue(sheet, "B1")
	if err != nil {
		t.Fatalf("GetCellValue(B1) error = %v", err)
	}
	if got != "Vaccine" {
		t.Errorf("B1 = %q, want Vaccine", got)
	}
	got, err = f.GetCellValue(sheet, "A3")
	if err != nil {
		t.Fatalf("GetCellValue(A3) error = %v", err)
	}
	if got != "Goats" {
		t.Errorf("A3 = %q, want Goats", got)
	}
}

func TestExportReportEmptyRows(t *testing.T) {
	exp, err := NewExporter(WithDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}
	path, err := exp.ExportReport("inventory", []string{"Item"}, nil)
	if err != nil {
		t.Fatalf("ExportReport() with no rows error = %v", err)
	}
	if path == "" {
		t.Error("expected a file path for header-only report")
	}
}

func TestExportReportUniqueFilenames(t *testing.T) {
	exp, err := NewExporter(WithDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}
	first, err := exp.ExportReport("sim", []string{"Crop"}, nil)
	if err != nil {
		t.Fatalf("first ExportReport() error = %v", err)
	}
	second, err := exp.ExportReport("sim", []string{"Crop"}, nil)
	if err != nil {
		t.Fatalf("second ExportReport() error = %v", err)
	}
	if first == second {
		t.Errorf("expected unique filenames, both were %q", first)
	}
}
