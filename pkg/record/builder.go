package record

import (
	"fmt"
	"strconv"

	"github.com/ilagnev/barnes-tms-extract/pkg/config"
	"github.com/ilagnev/barnes-tms-extract/pkg/tms"
)

// Record is one flat export row keyed by configured field name. Column
// order lives in the field configuration, not here.
type Record map[string]string

// Builder turns raw catalog objects into flat records following the
// configured field layout
type Builder struct {
	fields     []config.Field
	fieldNames []string
	primaryKey string
}

// NewBuilder creates a builder for the given field configuration
func NewBuilder(fields []config.Field, primaryKey string) *Builder {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return &Builder{
		fields:     fields,
		fieldNames: names,
		primaryKey: primaryKey,
	}
}

// PrimaryKeyValue extracts the object's primary-key value as a string
func (b *Builder) PrimaryKeyValue(obj *tms.Object) string {
	desc := obj.Describe([]string{b.primaryKey})
	return Stringify(desc[b.primaryKey])
}

// Build extracts the full record restricted to the configured fields.
// Missing fields produce empty values; string values are repaired for the
// known upstream encoding defect.
func (b *Builder) Build(obj *tms.Object) Record {
	desc := obj.Describe(b.fieldNames)

	rec := make(Record, len(b.fieldNames))
	for _, name := range b.fieldNames {
		rec[name] = Stringify(desc[name])
	}
	return rec
}

// Row flattens a record into the configured column order
func (b *Builder) Row(rec Record) []string {
	row := make([]string, len(b.fieldNames))
	for i, name := range b.fieldNames {
		row[i] = rec[name]
	}
	return row
}

// Stringify converts a raw field value to its exported string form.
// Strings go through the encoding repair; everything else passes through a
// plain conversion.
func Stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return RepairEncoding(val)
	case float64:
		// JSON numbers decode as float64; keep integers clean
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}
