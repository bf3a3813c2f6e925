package export

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"datachat/charts"
)

func sampleReportData(t *testing.T, chartPaths []string) ReportData {
	t.Helper()
	return ReportData{
		Title:       "Titanic Analysis",
		DatasetName: "titanic.csv",
		Rows:        891,
		Columns: []ColumnInfo{
			{Name: "age", Dtype: "float", Missing: 177},
			{Name: "sex", Dtype: "text", Missing: 0},
			{Name: "fare", Dtype: "float", Missing: 0},
		},
		Turns: []Turn{
			{Role: "user", Content: "What is the survival rate by sex?"},
			{Role: "assistant", Content: "Female passengers survived far more often than male passengers."},
		},
		ChartPaths:  chartPaths,
		GeneratedAt: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
	}
}

func writeTestChart(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "plot_0123456789abcdef0123456789abcdef.png")
	vals := []float64{7.25, 8.05, 13.0, 26.55, 71.28, 8.46, 51.86, 21.07}
	if err := charts.Hist(vals, "fare", path); err != nil {
		t.Fatalf("failed to render test chart: %v", err)
	}
	return path
}

func TestBuildPDF_ProducesDocument(t *testing.T) {
	chartPath := writeTestChart(t, t.TempDir())

	service := NewReportService(nil)
	pdfBytes, err := service.BuildPDF(sampleReportData(t, []string{chartPath}))
	if err != nil {
		t.Fatalf("BuildPDF failed: %v", err)
	}
	if len(pdfBytes) == 0 {
		t.Fatal("generated PDF is empty")
	}
	if !bytes.HasPrefix(pdfBytes, []byte("%PDF")) {
		t.Errorf("output does not start with PDF magic, got %q", pdfBytes[:8])
	}
}

func TestBuildPDF_SkipsUnreadableCharts(t *testing.T) {
	var logged []string
	service := NewReportService(func(msg string) { logged = append(logged, msg) })

	data := sampleReportData(t, []string{filepath.Join(t.TempDir(), "missing.png")})
	pdfBytes, err := service.BuildPDF(data)
	if err != nil {
		t.Fatalf("BuildPDF failed: %v", err)
	}
	if !bytes.HasPrefix(pdfBytes, []byte("%PDF")) {
		t.Error("output does not start with PDF magic")
	}

	if len(logged) != 1 {
		t.Fatalf("expected 1 log entry for the skipped chart, got %d", len(logged))
	}
	if !strings.Contains(logged[0], "missing.png") {
		t.Errorf("log entry does not name the skipped chart: %q", logged[0])
	}
}

func TestBuildPDF_MinimalData(t *testing.T) {
	service := NewReportService(nil)

	pdfBytes, err := service.BuildPDF(ReportData{})
	if err != nil {
		t.Fatalf("BuildPDF failed on empty data: %v", err)
	}
	if !bytes.HasPrefix(pdfBytes, []byte("%PDF")) {
		t.Error("output does not start with PDF magic")
	}
}

func TestBuildPDF_TruncatesLongTurns(t *testing.T) {
	service := NewReportService(nil)

	data := sampleReportData(t, nil)
	data.Turns = []Turn{
		{Role: "assistant", Content: strings.Repeat("x", 5000)},
	}
	pdfBytes, err := service.BuildPDF(data)
	if err != nil {
		t.Fatalf("BuildPDF failed on long turn: %v", err)
	}
	if len(pdfBytes) == 0 {
		t.Fatal("generated PDF is empty")
	}
}

func TestTurnHeight_Bounds(t *testing.T) {
	short := turnHeight("hi")
	long := turnHeight(strings.Repeat("a", 10000))
	if short >= long {
		t.Errorf("short content height %v not below long content height %v", short, long)
	}
	if long > 14*4+3 {
		t.Errorf("height %v exceeds cap", long)
	}
}
