package writer

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// CSVWriter implements Writer for CSV output
type CSVWriter struct {
	file       *os.File
	writer     *csv.Writer
	buffered   *bufio.Writer
	outputPath string
	rowCount   int64
	delimiter  rune
}

// NewCSVWriter creates a new CSV writer
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{
		delimiter: ',',
	}
}

// Initialize prepares the CSV writer for the output path
func (w *CSVWriter) Initialize(ctx context.Context, outputPath string) error {
	w.outputPath = outputPath

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	w.file = file

	// Buffered writer keeps per-row writes cheap
	w.buffered = bufio.NewWriterSize(file, 64*1024)

	w.writer = csv.NewWriter(w.buffered)
	w.writer.Comma = w.delimiter

	return nil
}

// WriteHeader writes the column headers
func (w *CSVWriter) WriteHeader(columns []string) error {
	if w.writer == nil {
		return fmt.Errorf("writer not initialized")
	}

	if err := w.writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	return nil
}

// WriteRecord appends one data row
func (w *CSVWriter) WriteRecord(values []string) error {
	if w.writer == nil {
		return fmt.Errorf("writer not initialized")
	}

	if err := w.writer.Write(values); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.rowCount++

	// Flush periodically so a crash leaves most rows on disk
	if w.rowCount%1000 == 0 {
		w.writer.Flush()
		if err := w.writer.Error(); err != nil {
			return fmt.Errorf("failed to flush writer: %w", err)
		}
	}

	return nil
}

// Finalize closes the file and returns metadata
func (w *CSVWriter) Finalize() (*FileMetadata, error) {
	if w.writer == nil {
		return nil, fmt.Errorf("writer not initialized")
	}

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV writer: %w", err)
	}

	if err := w.buffered.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush buffer: %w", err)
	}

	if err := w.file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
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
func (w *CSVWriter) Cleanup() error {
	if w.file != nil {
		w.file.Close()
	}
	if w.outputPath != "" {
		os.Remove(w.outputPath)
	}
	return nil
}

// checksumFile calculates the SHA256 checksum of a file
func checksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
