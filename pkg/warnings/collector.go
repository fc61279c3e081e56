package warnings

import (
	"context"
	"fmt"
	"sort"

	"github.com/ilagnev/barnes-tms-extract/pkg/config"
	"github.com/ilagnev/barnes-tms-extract/pkg/record"
	"github.com/ilagnev/barnes-tms-extract/pkg/tms"
	"github.com/ilagnev/barnes-tms-extract/pkg/writer"
)

// Warning types emitted into the report
const (
	WarningMissingField   = "missing_field"
	WarningUnusedField    = "unused_field"
	WarningSingletonField = "singleton_field"
)

var reportColumns = []string{"object_id", "warning", "field", "detail"}

// Collector inspects each object/record pair against the configured
// warning policies and appends findings to warnings.csv. Singleton checks
// accumulate across the run and are emitted on Close.
type Collector struct {
	cfg    config.WarningsConfig
	fields []config.Field
	known  map[string]bool
	sink   *writer.CSVWriter

	// distinct values observed per non-enumerated field, capped at
	// threshold+1 entries since only "few distinct values" matters
	observed map[string]map[string]bool

	// unused raw fields already reported once
	reportedUnused map[string]bool
}

// NewCollector creates a collector writing to the given report path
func NewCollector(ctx context.Context, cfg config.WarningsConfig, fields []config.Field, reportPath string) (*Collector, error) {
	sink := writer.NewCSVWriter()
	if err := sink.Initialize(ctx, reportPath); err != nil {
		return nil, fmt.Errorf("failed to create warnings report: %w", err)
	}
	if err := sink.WriteHeader(reportColumns); err != nil {
		sink.Cleanup()
		return nil, fmt.Errorf("failed to write warnings header: %w", err)
	}

	known := make(map[string]bool, len(fields))
	observed := make(map[string]map[string]bool)
	for _, f := range fields {
		known[f.Name] = true
		if cfg.SingletonFields && !f.Enumerated {
			observed[f.Name] = make(map[string]bool)
		}
	}

	return &Collector{
		cfg:            cfg,
		fields:         fields,
		known:          known,
		sink:           sink,
		observed:       observed,
		reportedUnused: make(map[string]bool),
	}, nil
}

// Inspect checks one object/record pair and appends any findings
func (c *Collector) Inspect(primaryKey string, obj *tms.Object, rec record.Record) error {
	if c.cfg.MissingFields {
		for _, f := range c.fields {
			if f.Required && rec[f.Name] == "" {
				if err := c.append(primaryKey, WarningMissingField, f.Name, "required field is empty"); err != nil {
					return err
				}
			}
		}
	}

	if c.cfg.UnusedFields {
		for _, name := range obj.FieldNames() {
			if c.known[name] || c.reportedUnused[name] {
				continue
			}
			c.reportedUnused[name] = true
			if err := c.append(primaryKey, WarningUnusedField, name, "field present on source object but not exported"); err != nil {
				return err
			}
		}
	}

	if c.cfg.SingletonFields {
		for name, values := range c.observed {
			if len(values) > c.cfg.SingletonThreshold {
				continue
			}
			values[rec[name]] = true
		}
	}

	return nil
}

// Close emits the accumulated singleton findings and finalizes the report.
// Callable exactly once, after the last Inspect.
func (c *Collector) Close() (*writer.FileMetadata, error) {
	if c.cfg.SingletonFields {
		names := make([]string, 0, len(c.observed))
		for name := range c.observed {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			values := c.observed[name]
			if len(values) == 0 || len(values) > c.cfg.SingletonThreshold {
				continue
			}
			detail := fmt.Sprintf("only %d distinct value(s) observed across the run", len(values))
			if err := c.append("", WarningSingletonField, name, detail); err != nil {
				c.sink.Cleanup()
				return nil, err
			}
		}
	}

	meta, err := c.sink.Finalize()
	if err != nil {
		return nil, fmt.Errorf("failed to finalize warnings report: %w", err)
	}
	return meta, nil
}

// Cleanup removes the report on abnormal termination
func (c *Collector) Cleanup() error {
	return c.sink.Cleanup()
}

func (c *Collector) append(objectID, warning, field, detail string) error {
	if err := c.sink.WriteRecord([]string{objectID, warning, field, detail}); err != nil {
		return fmt.Errorf("failed to append warning: %w", err)
	}
	return nil
}
