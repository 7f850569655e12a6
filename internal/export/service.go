// Package export renders a normalized threat document as an XLSX report.
package export

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/strideworks/diagram-analyzer/internal/stride"
)

// Service is a tiny façade that produces XLSX bytes for threat reports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportDocumentXLSX returns a workbook with a threat matrix sheet (one row
// per component/category/threat) and a component summary sheet.
func (s *Service) ExportDocumentXLSX(doc stride.Document, title string) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const matrixSheet = "Threat Matrix"
	const summarySheet = "Components"

	if err := f.SetSheetName("Sheet1", matrixSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}

	matrixHeaders := []string{"Component", "Category", "Threat"}
	if err := writeRow(f, matrixSheet, 1, matrixHeaders); err != nil {
		return nil, err
	}
	row := 2
	threats := 0
	for _, comp := range doc.Components {
		for _, cat := range stride.Categories {
			for _, threat := range comp.Stride[cat] {
				if err := writeRow(f, matrixSheet, row, []string{comp.Name, cat, threat}); err != nil {
					return nil, err
				}
				row++
				threats++
			}
		}
	}

	summaryHeaders := []string{"Component", "Evidence", "Recommendations"}
	if err := writeRow(f, summarySheet, 1, summaryHeaders); err != nil {
		return nil, err
	}
	for i, comp := range doc.Components {
		cells := []string{
			comp.Name,
			strings.Join(comp.Evidence, "; "),
			strings.Join(comp.Recommendations, "; "),
		}
		if err := writeRow(f, summarySheet, i+2, cells); err != nil {
			return nil, err
		}
	}

	if title != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: title}); err != nil {
			s.logger.Warn("export.doc_props", "error", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.xlsx_ok",
		"components", len(doc.Components),
		"threat_rows", threats,
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []string) error {
	for i, v := range cells {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
