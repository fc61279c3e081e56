package writer

import (
	"context"
	"fmt"
)

// FileMetadata contains metadata about the generated file
type FileMetadata struct {
	Path     string
	Size     int64
	Checksum string
	RowCount int64
}

// Writer defines the interface that all format writers must implement
type Writer interface {
	// Initialize prepares the writer for the given output path
	Initialize(ctx context.Context, outputPath string) error

	// WriteHeader writes the column headers
	WriteHeader(columns []string) error

	// WriteRecord appends one data row
	WriteRecord(values []string) error

	// Finalize closes the file and returns metadata
	Finalize() (*FileMetadata, error)

	// Cleanup releases resources on error
	Cleanup() error
}

// New returns a writer for the given format ("csv" or "xlsx")
func New(format string) (Writer, error) {
	switch format {
	case "csv":
		return NewCSVWriter(), nil
	case "xlsx":
		return NewExcelWriter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}
