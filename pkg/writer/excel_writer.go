package writer

import (
	"context"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// ExcelWriter implements Writer for xlsx output
type ExcelWriter struct {
	file         *excelize.File
	outputPath   string
	sheetName    string
	currentRow   int
	rowCount     int64
	streamWriter *excelize.StreamWriter
}

// NewExcelWriter creates a new Excel writer
func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{
		sheetName:  "Objects",
		currentRow: 1,
	}
}

// Initialize prepares the Excel writer for the output path
func (w *ExcelWriter) Initialize(ctx context.Context, outputPath string) error {
	w.outputPath = outputPath

	w.file = excelize.NewFile()

	index, err := w.file.NewSheet(w.sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	w.file.SetActiveSheet(index)

	if w.sheetName != "Sheet1" {
		// Ignore error if the default sheet is already gone
		w.file.DeleteSheet("Sheet1")
	}

	// Stream writer keeps memory flat on large exports
	streamWriter, err := w.file.NewStreamWriter(w.sheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}
	w.streamWriter = streamWriter

	return nil
}

// WriteHeader writes the column headers
func (w *ExcelWriter) WriteHeader(columns []string) error {
	if w.streamWriter == nil {
		return fmt.Errorf("writer not initialized")
	}

	headers := make([]interface{}, len(columns))
	for i, col := range columns {
		headers[i] = col
	}

	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return fmt.Errorf("failed to get cell coordinate: %w", err)
	}
	if err := w.streamWriter.SetRow(cell, headers); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	w.currentRow++
	return nil
}

// WriteRecord appends one data row
func (w *ExcelWriter) WriteRecord(values []string) error {
	if w.streamWriter == nil {
		return fmt.Errorf("writer not initialized")
	}

	row := make([]interface{}, len(values))
	for i, val := range values {
		row[i] = val
	}

	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return fmt.Errorf("failed to get cell coordinate: %w", err)
	}
	if err := w.streamWriter.SetRow(cell, row); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	w.currentRow++
	w.rowCount++
	return nil
}

// Finalize closes the file and returns metadata
func (w *ExcelWriter) Finalize() (*FileMetadata, error) {
	if w.streamWriter == nil {
		return nil, fmt.Errorf("writer not initialized")
	}

	if err := w.streamWriter.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush stream: %w", err)
	}

	if err := w.file.SaveAs(w.outputPath); err != nil {
		return nil, fmt.Errorf("failed to save Excel file: %w", err)
	}

	if err := w.file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close Excel file: %w", err)
	}

	fileInfo, err := os.Stat(w.outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	checksum, err := checksumFile(w.outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return &FileMetadata{
		Path:     w.outputPath,
		Size:     fileInfo.Size(),
		Checksum: checksum,
		RowCount: w.rowCount,
	}, nil
}

// Cleanup releases resources on error
func (w *ExcelWriter) Cleanup() error {
	if w.file != nil {
		w.file.Close()
	}
	if w.outputPath != "" {
		os.Remove(w.outputPath)
	}
	return nil
}
