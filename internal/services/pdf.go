package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/nutrilens/backend/internal/models"
)

// ReportService renders a completed analysis into a downloadable PDF.
type ReportService struct{}

func NewReportService() *ReportService {
	return &ReportService{}
}

// GenerateReport builds the PDF for one analysis record.
func (s *ReportService) GenerateReport(rec *models.AnalysisRecord, userEmail string) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(16,
		text.NewCol(12, "Nutrition Analysis Report", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)

	generated := rec.CreatedAt.Format("January 2, 2006")
	m.AddRow(14,
		col.New(12).Add(
			text.New("Generated on "+generated+" for "+userEmail, props.Text{Size: 10}),
			text.New("Report ID: "+rec.ID, props.Text{Size: 8, Top: 5}),
		),
	)

	// One row per line of model output; section headers get heading style.
	for _, line := range strings.Split(rec.AnalysisResult, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isSectionHeader(line) {
			m.AddRow(10,
				text.NewCol(12, strings.Trim(line, "* "), props.Text{
					Size:  13,
					Style: fontstyle.Bold,
					Top:   3,
				}),
			)
			continue
		}
		m.AddRow(6,
			text.NewCol(12, line, props.Text{Size: 9}),
		)
	}

	m.AddRow(14,
		text.NewCol(12, "This analysis is AI-generated for educational purposes only.", props.Text{
			Size:  8,
			Style: fontstyle.Italic,
			Top:   8,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

// ReportFilename returns a download filename for an analysis record.
func (s *ReportService) ReportFilename(rec *models.AnalysisRecord) string {
	return fmt.Sprintf("nutrition-report-%s.pdf", rec.CreatedAt.Format(time.DateOnly))
}

func isSectionHeader(line string) bool {
	return strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**")
}
