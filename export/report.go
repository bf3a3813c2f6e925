package export

import (
	"fmt"
	"os"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontfamily"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReportService handles session report PDF generation using maroto
type ReportService struct {
	log func(string)
}

// NewReportService creates a new report service. The log callback may be nil.
func NewReportService(log func(string)) *ReportService {
	return &ReportService{log: log}
}

// ColumnInfo describes one dataset column in the overview table
type ColumnInfo struct {
	Name    string
	Dtype   string
	Missing int
}

// Turn is one conversation entry included in the report
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// ReportData represents session report data
type ReportData struct {
	Title       string
	DatasetName string
	Rows        int
	Columns     []ColumnInfo
	Turns       []Turn
	ChartPaths  []string // chart image files on disk
	GeneratedAt time.Time
}

// BuildPDF renders the session report and returns the document bytes.
// Chart files that cannot be read are skipped so a stale artifact never
// blocks the export.
func (s *ReportService) BuildPDF(data ReportData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		WithDefaultFont(&props.Font{
			Family: fontfamily.Arial,
			Size:   10,
		}).
		Build()

	m := maroto.New(cfg)

	title := data.Title
	if title == "" {
		title = "Data Analysis Report"
	}
	s.addHeader(m, title, data.GeneratedAt)

	if data.DatasetName != "" {
		s.addDataset(m, data)
	}

	if len(data.Turns) > 0 {
		s.addConversation(m, data.Turns)
	}

	if len(data.ChartPaths) > 0 {
		s.addCharts(m, data.ChartPaths)
	}

	s.addFooter(m)

	document, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return document.GetBytes(), nil
}

func (s *ReportService) logf(format string, args ...interface{}) {
	if s.log != nil {
		s.log(fmt.Sprintf(format, args...))
	}
}

// addHeader adds the report header
func (s *ReportService) addHeader(m core.Maroto, title string, generatedAt time.Time) {
	m.AddRow(20,
		col.New(12).Add(
			text.New(title, props.Text{
				Family: fontfamily.Arial,
				Size:   18,
				Style:  fontstyle.Bold,
				Align:  align.Center,
				Color:  &props.Color{Red: 59, Green: 130, Blue: 246},
			}),
		),
	)

	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	m.AddRow(8,
		col.New(12).Add(
			text.New(fmt.Sprintf("Generated: %s", generatedAt.Format("2006-01-02 15:04:05")), props.Text{
				Family: fontfamily.Arial,
				Size:   9,
				Align:  align.Center,
				Color:  &props.Color{Red: 100, Green: 116, Blue: 139},
			}),
		),
	)

	m.AddRow(5)
}

// addDataset adds the dataset overview section
func (s *ReportService) addDataset(m core.Maroto, data ReportData) {
	m.AddRow(8,
		col.New(12).Add(
			text.New("Dataset", props.Text{
				Family: fontfamily.Arial,
				Size:   12,
				Style:  fontstyle.Bold,
			}),
		),
	)

	m.AddRow(8,
		col.New(12).Add(
			text.New(fmt.Sprintf("%s - %d rows, %d columns", data.DatasetName, data.Rows, len(data.Columns)), props.Text{
				Family: fontfamily.Arial,
				Size:   10,
			}),
		),
	)

	if len(data.Columns) > 0 {
		m.AddRow(7,
			col.New(6).Add(
				text.New("Column", props.Text{
					Family: fontfamily.Arial,
					Size:   8,
					Style:  fontstyle.Bold,
				}),
			),
			col.New(3).Add(
				text.New("Type", props.Text{
					Family: fontfamily.Arial,
					Size:   8,
					Style:  fontstyle.Bold,
				}),
			),
			col.New(3).Add(
				text.New("Missing", props.Text{
					Family: fontfamily.Arial,
					Size:   8,
					Style:  fontstyle.Bold,
				}),
			),
		)

		for _, column := range data.Columns {
			m.AddRow(6,
				col.New(6).Add(
					text.New(column.Name, props.Text{
						Family: fontfamily.Arial,
						Size:   8,
					}),
				),
				col.New(3).Add(
					text.New(column.Dtype, props.Text{
						Family: fontfamily.Arial,
						Size:   8,
					}),
				),
				col.New(3).Add(
					text.New(fmt.Sprintf("%d", column.Missing), props.Text{
						Family: fontfamily.Arial,
						Size:   8,
					}),
				),
			)
		}
	}

	m.AddRow(5)
}

// addConversation adds the question and answer history
func (s *ReportService) addConversation(m core.Maroto, turns []Turn) {
	m.AddRow(8,
		col.New(12).Add(
			text.New("Conversation", props.Text{
				Family: fontfamily.Arial,
				Size:   12,
				Style:  fontstyle.Bold,
			}),
		),
	)

	for _, turn := range turns {
		label := "Analyst"
		labelColor := &props.Color{Red: 16, Green: 122, Blue: 87}
		if turn.Role == "user" {
			label = "You"
			labelColor = &props.Color{Red: 59, Green: 130, Blue: 246}
		}

		content := turn.Content
		// Truncate very long answers so one turn cannot swallow the report
		if len(content) > 1200 {
			content = content[:1197] + "..."
		}

		m.AddRow(6,
			col.New(12).Add(
				text.New(label, props.Text{
					Family: fontfamily.Arial,
					Size:   9,
					Style:  fontstyle.Bold,
					Color:  labelColor,
				}),
			),
		)
		m.AddRow(turnHeight(content),
			col.New(12).Add(
				text.New(content, props.Text{
					Family: fontfamily.Arial,
					Size:   9,
				}),
			),
		)
		m.AddRow(3)
	}

	m.AddRow(5)
}

// turnHeight estimates the row height needed for wrapped turn content
func turnHeight(content string) float64 {
	lines := len(content)/90 + 1
	if lines > 14 {
		lines = 14
	}
	return float64(lines)*4 + 3
}

// addCharts adds chart images
func (s *ReportService) addCharts(m core.Maroto, chartPaths []string) {
	m.AddRow(8,
		col.New(12).Add(
			text.New("Charts", props.Text{
				Family: fontfamily.Arial,
				Size:   12,
				Style:  fontstyle.Bold,
			}),
		),
	)

	shown := 0
	for _, chartPath := range chartPaths {
		imgBytes, err := os.ReadFile(chartPath)
		if err != nil {
			s.logf("Report: skipping unreadable chart %s: %v", chartPath, err)
			continue
		}
		shown++

		m.AddRow(6,
			col.New(12).Add(
				text.New(fmt.Sprintf("Chart %d", shown), props.Text{
					Family: fontfamily.Arial,
					Size:   10,
					Style:  fontstyle.Bold,
				}),
			),
		)

		m.AddRow(80,
			col.New(12).Add(
				image.NewFromBytes(imgBytes, extension.Png),
			),
		)

		m.AddRow(5)
	}
}

// addFooter adds the report footer
func (s *ReportService) addFooter(m core.Maroto) {
	m.AddRow(10,
		col.New(12).Add(
			text.New("Generated by DataChat", props.Text{
				Family: fontfamily.Arial,
				Size:   8,
				Align:  align.Center,
				Color:  &props.Color{Red: 148, Green: 163, Blue: 184},
			}),
		),
	)
}
