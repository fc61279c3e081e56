package warnings

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/ilagnev/barnes-tms-extract/pkg/config"
	"github.com/ilagnev/barnes-tms-extract/pkg/record"
	"github.com/ilagnev/barnes-tms-extract/pkg/tms"
)

func testFields() []config.Field {
	return []config.Field{
		{Name: "objectid", PrimaryKey: true, Required: true},
		{Name: "title", Required: true},
		{Name: "medium", Enumerated: true},
	}
}

func newTestCollector(t *testing.T, cfg config.WarningsConfig) (*Collector, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warnings.csv")
	collector, err := NewCollector(context.Background(), cfg, testFields(), path)
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}
	return collector, path
}

func readReport(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open report: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	return rows
}

func findWarnings(rows [][]string, warning string) [][]string {
	var out [][]string
	for _, row := range rows[1:] {
		if row[1] == warning {
			out = append(out, row)
		}
	}
	return out
}

func TestCollector_MissingRequiredField(t *testing.T) {
	cfg := config.WarningsConfig{MissingFields: true, SingletonThreshold: 1}
	collector, path := newTestCollector(t, cfg)

	obj := tms.NewObject(1, map[string]interface{}{"objectid": float64(1)})
	rec := record.Record{"objectid": "1", "title": "", "medium": ""}
	if err := collector.Inspect("1", obj, rec); err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if _, err := collector.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	rows := findWarnings(readReport(t, path), WarningMissingField)
	if len(rows) != 1 {
		t.Fatalf("expected 1 missing-field warning, got %d", len(rows))
	}
	if rows[0][0] != "1" || rows[0][2] != "title" {
		t.Errorf("unexpected warning row: %v", rows[0])
	}
}

func TestCollector_UnusedFieldReportedOnce(t *testing.T) {
	cfg := config.WarningsConfig{UnusedFields: true, SingletonThreshold: 1}
	collector, path := newTestCollector(t, cfg)

	for i := int64(1); i <= 3; i++ {
		obj := tms.NewObject(i, map[string]interface{}{
			"objectid":   float64(i),
			"title":      "x",
			"provenance": "private collection",
		})
		rec := record.Record{"objectid": "1", "title": "x", "medium": ""}
		if err := collector.Inspect("1", obj, rec); err != nil {
			t.Fatalf("Inspect failed: %v", err)
		}
	}
	if _, err := collector.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	rows := findWarnings(readReport(t, path), WarningUnusedField)
	if len(rows) != 1 {
		t.Fatalf("expected the unused field reported once, got %d rows", len(rows))
	}
	if rows[0][2] != "provenance" {
		t.Errorf("unexpected unused field: %v", rows[0])
	}
}

func TestCollector_SingletonFieldEmittedOnClose(t *testing.T) {
	cfg := config.WarningsConfig{SingletonFields: true, SingletonThreshold: 2}
	collector, path := newTestCollector(t, cfg)

	// title takes a single distinct value; objectid varies past the
	// threshold; medium is enumerated and exempt
	for i := 1; i <= 5; i++ {
		obj := tms.NewObject(int64(i), nil)
		rec := record.Record{
			"objectid": "obj-" + strconv.Itoa(i),
			"title":    "Untitled",
			"medium":   "oil",
		}
		if err := collector.Inspect(rec["objectid"], obj, rec); err != nil {
			t.Fatalf("Inspect failed: %v", err)
		}
	}
	if _, err := collector.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	rows := findWarnings(readReport(t, path), WarningSingletonField)
	if len(rows) != 1 {
		t.Fatalf("expected 1 singleton warning, got %d: %v", len(rows), rows)
	}
	if rows[0][2] != "title" {
		t.Errorf("expected singleton warning on title, got %v", rows[0])
	}
}

func TestCollector_DisabledChecksStaySilent(t *testing.T) {
	cfg := config.WarningsConfig{SingletonThreshold: 1}
	collector, path := newTestCollector(t, cfg)

	obj := tms.NewObject(1, map[string]interface{}{"unknown": "value"})
	rec := record.Record{"objectid": "", "title": "", "medium": ""}
	if err := collector.Inspect("", obj, rec); err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	meta, err := collector.Close()
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if meta.RowCount != 0 {
		t.Errorf("expected empty report, got %d rows", meta.RowCount)
	}
	rows := readReport(t, path)
	if len(rows) != 1 {
		t.Errorf("expected header only, got %d rows", len(rows))
	}
}
