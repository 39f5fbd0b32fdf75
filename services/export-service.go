package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"clinic-checklist/checklist-service/models"

	"github.com/jung-kurt/gofpdf"
)

// timestampFormat matches the en-US locale string the reports have
// always used, e.g. "1/5/2024, 2:30:05 PM".
const timestampFormat = "1/2/2006, 3:04:05 PM"

// ExportService renders a daily projection into downloadable reports.
// Role gating happens at the handler; by the time a call reaches here
// the caller is already an administrator.
type ExportService struct {
	checklist  *ChecklistService
	clinicName string
}

func NewExportService(checklist *ChecklistService, clinicName string) *ExportService {
	return &ExportService{checklist: checklist, clinicName: clinicName}
}

// exportRow is one flattened projection row, ready for rendering.
type exportRow struct {
	taskID      string
	area        string
	taskName    string
	description string
	status      string
	staffName   string
	timestamp   string
}

func (s *ExportService) buildRows(ctx context.Context, date string, areaID string) ([]exportRow, time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, time.Time{}, err
	}

	projection, err := s.checklist.GetChecklistByDate(ctx, date, areaID)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(projection) == 0 {
		return nil, time.Time{}, models.ErrEmptyExport
	}

	rows := make([]exportRow, 0, len(projection))
	for _, item := range projection {
		status := "No"
		if item.Entry.Status {
			status = "Yes"
		}
		timestamp := ""
		if item.Entry.CompletedAt != nil {
			timestamp = item.Entry.CompletedAt.Format(timestampFormat)
		}
		rows = append(rows, exportRow{
			taskID:      item.Task.TaskID,
			area:        item.Task.AreaName,
			taskName:    item.Task.Name,
			description: item.Task.Description,
			status:      status,
			staffName:   item.Entry.StaffName,
			timestamp:   timestamp,
		})
	}

	return rows, day, nil
}

var exportHeaders = []string{"Task ID", "Area", "Task Name", "Description", "Status", "Staff Name", "Timestamp"}

// ExportCSV renders the projection as a flat CSV table with a header row.
func (s *ExportService) ExportCSV(ctx context.Context, date string, areaID string) (*models.ExportFile, error) {
	rows, day, err := s.buildRows(ctx, date, areaID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(exportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %v", err)
	}
	for _, row := range rows {
		record := []string{row.taskID, row.area, row.taskName, row.description, row.status, row.staffName, row.timestamp}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %v", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %v", err)
	}

	return &models.ExportFile{
		Data:        buf.Bytes(),
		Filename:    fmt.Sprintf("checklist_%s.csv", day.Format("2006-01-02")),
		ContentType: "text/csv",
	}, nil
}

// Fixed column widths in millimeters for the landscape A4 table.
var pdfColumnWidths = []float64{24, 38, 38, 74, 16, 38, 45}

// Rune budgets per column; longer values are cut to fit the fixed
// widths. Zero means no truncation.
var pdfTruncation = []int{0, 15, 15, 35, 0, 15, 0}

const pdfBottomLimit = 190.0 // below this a new page starts

// ExportPDF renders the projection as a paginated landscape A4 report.
// Page 1 carries the title block and column headers; continuation pages
// carry rows only.
func (s *ExportService) ExportPDF(ctx context.Context, date string, areaID string) (*models.ExportFile, error) {
	rows, day, err := s.buildRows(ctx, date, areaID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// Title block, first page only.
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, s.clinicName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 16)
	pdf.CellFormat(0, 8, "Daily Checklist Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Date: "+day.Format("Monday, January 2, 2006"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 9)
	for i, header := range exportHeaders {
		pdf.CellFormat(pdfColumnWidths[i], 6, header, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		if pdf.GetY() > pdfBottomLimit {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "", 8)
		}
		values := []string{row.taskID, row.area, row.taskName, row.description, row.status, row.staffName, row.timestamp}
		for i, value := range values {
			pdf.CellFormat(pdfColumnWidths[i], 6, truncate(value, pdfTruncation[i]), "", 0, "L", false, 0, "")
		}
		pdf.Ln(6)
	}

	pdf.SetY(-15)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 6, "Generated on "+time.Now().Format(timestampFormat), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %v", err)
	}

	return &models.ExportFile{
		Data:        buf.Bytes(),
		Filename:    fmt.Sprintf("checklist_%s.pdf", day.Format("2006-01-02")),
		ContentType: "application/pdf",
	}, nil
}

func truncate(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
