package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/core/ports"
)

// Service produces XLSX bytes for processed documents in a date window.
type Service struct {
	repo   ports.DocumentRepository
	logger *slog.Logger
}

func NewService(repo ports.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportXLSX returns an XLSX workbook for documents uploaded in the window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all documents.
func (s *Service) ExportXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	// Normalize dates (date-only, UTC); the upper bound is exclusive of the
	// next day so the named day is fully included.
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		today := time.Now().UTC()
		t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
		toDate = &t
	}

	docs, err := s.repo.ListBetween(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Uploaded",
		"Filename",
		"Status",
		"Vendor",
		"Invoice Number",
		"Invoice Date",
		"Total",
		"VAT",
		"Confidence",
		"Yuki Document",
		"Yuki Booking",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, doc := range docs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, doc.CreatedAt.Format("2006-01-02"))
		write(2, doc.Filename)
		write(3, string(doc.Status))
		write(4, doc.Extraction.Field(domain.FieldVendorName).Value)
		write(5, doc.Extraction.Field(domain.FieldInvoiceNumber).Value)
		write(6, doc.Extraction.Field(domain.FieldInvoiceDate).Value)
		write(7, doc.Extraction.Field(domain.FieldTotalAmount).Value)
		write(8, doc.Extraction.Field(domain.FieldVATAmount).Value)
		write(9, overallCell(doc.Extraction))
		write(10, doc.YukiDocumentID)
		write(11, doc.YukiBookingID)

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	_ = f.SetColWidth(sheet, "C", "C", 14)
	_ = f.SetColWidth(sheet, "D", "D", 28)
	_ = f.SetColWidth(sheet, "E", "F", 16)
	_ = f.SetColWidth(sheet, "G", "H", 12)
	_ = f.SetColWidth(sheet, "I", "I", 12)
	_ = f.SetColWidth(sheet, "J", "K", 30)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// overallCell mirrors Field's nil-receiver tolerance: a document that was
// never extracted exports with a blank confidence cell.
func overallCell(r *domain.ExtractionResult) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", r.Overall)
}
