package spreadsheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/contextforge/contextforge/internal/core/domain"
	"github.com/contextforge/contextforge/internal/core/ports"
)

// maxRowsPerSheet bounds ingestion of very large workbooks; rows beyond the
// cap are still reflected in the sheet summary.
const maxRowsPerSheet = 200

// Extractor turns spreadsheet workbooks into a summary segment per sheet plus
// one table-row segment per data row, so lexical search can hit individual
// cell values.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) ([]domain.ExtractedSegment, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	workbook, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse workbook %s: %w", doc.Filename, err)
	}
	defer workbook.Close()

	var segments []domain.ExtractedSegment
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		header := rows[0]
		segments = append(segments, domain.ExtractedSegment{
			Text:      sheetSummary(sheet, header, len(rows)-1),
			ChunkType: domain.ChunkTableSummary,
		})

		for i, row := range rows[1:] {
			if i == maxRowsPerSheet {
				break
			}
			text := rowText(sheet, header, row)
			if text == "" {
				continue
			}
			segments = append(segments, domain.ExtractedSegment{
				Text:      text,
				ChunkType: domain.ChunkTableRow,
			})
		}
	}
	return segments, nil
}

func sheetSummary(sheet string, header []string, dataRows int) string {
	columns := strings.Join(header, ", ")
	if columns == "" {
		columns = "(no header row)"
	}
	return fmt.Sprintf("Sheet %s: %d data rows. Columns: %s", sheet, dataRows, columns)
}

func rowText(sheet string, header, row []string) string {
	parts := make([]string, 0, len(row))
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", strings.TrimSpace(header[i]), cell))
			continue
		}
		parts = append(parts, cell)
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("%s | %s", sheet, strings.Join(parts, " | "))
}
