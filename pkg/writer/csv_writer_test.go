package writer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCSVWriter_BasicExport(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "objects.csv")
	w := NewCSVWriter()

	ctx := context.Background()
	if err := w.Initialize(ctx, outputPath); err != nil {
		t.Fatalf("Failed to initialize writer: %v", err)
	}

	columns := []string{"objectid", "title", "artist"}
	if err := w.WriteHeader(columns); err != nil {
		t.Fatalf("Failed to write header: %v", err)
	}

	records := [][]string{
		{"1", "Still Life", "Cezanne"},
		{"2", "The Dance", "Matisse"},
		{"3", "Models", "Seurat"},
	}
	for _, rec := range records {
		if err := w.WriteRecord(rec); err != nil {
			t.Fatalf("Failed to write record: %v", err)
		}
	}

	meta, err := w.Finalize()
	if err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}

	// Row count covers data rows only; it must line up with the
	// processed-objects counter
	if meta.RowCount != 3 {
		t.Errorf("Expected 3 data rows, got %d", meta.RowCount)
	}
	if meta.Size == 0 {
		t.Error("File size should not be zero")
	}
	if meta.Checksum == "" {
		t.Error("Checksum should not be empty")
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}

	expected := "objectid,title,artist\n1,Still Life,Cezanne\n2,The Dance,Matisse\n3,Models,Seurat\n"
	if string(content) != expected {
		t.Errorf("Content mismatch.\nExpected:\n%s\nGot:\n%s", expected, string(content))
	}
}

func TestCSVWriter_SpecialCharacters(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "special.csv")
	w := NewCSVWriter()

	ctx := context.Background()
	if err := w.Initialize(ctx, outputPath); err != nil {
		t.Fatalf("Failed to initialize writer: %v", err)
	}
	if err := w.WriteHeader([]string{"text"}); err != nil {
		t.Fatalf("Failed to write header: %v", err)
	}

	records := [][]string{
		{"Hello, World"},
		{`Text with "quotes"`},
		{"Text\nwith\nnewlines"},
	}
	for _, rec := range records {
		if err := w.WriteRecord(rec); err != nil {
			t.Fatalf("Failed to write record: %v", err)
		}
	}

	if _, err := w.Finalize(); err != nil {
		t.Fatalf("Failed to finalize: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}

	expected := "text\n\"Hello, World\"\n\"Text with \"\"quotes\"\"\"\n\"Text\nwith\nnewlines\"\n"
	if string(content) != expected {
		t.Errorf("Content mismatch.\nExpected:\n%s\nGot:\n%s", expected, string(content))
	}
}

func TestCSVWriter_CleanupRemovesFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "partial.csv")
	w := NewCSVWriter()

	if err := w.Initialize(context.Background(), outputPath); err != nil {
		t.Fatalf("Failed to initialize writer: %v", err)
	}
	if err := w.Cleanup(); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
		t.Error("Cleanup should remove the partial file")
	}
}

func TestNew_UnsupportedFormat(t *testing.T) {
	if _, err := New("parquet"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if w, err := New("csv"); err != nil || w == nil {
		t.Fatalf("expected CSV writer, got %v %v", w, err)
	}
	if w, err := New("xlsx"); err != nil || w == nil {
		t.Fatalf("expected Excel writer, got %v %v", w, err)
	}
}
