package tms

import "sort"

// Object is one raw catalog record as returned by the collection API.
// Field values stay untyped; consumers restrict them by name via Describe.
type Object struct {
	ID     int64
	fields map[string]interface{}
}

// NewObject builds an Object from decoded API payload fields.
func NewObject(id int64, fields map[string]interface{}) *Object {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return &Object{ID: id, fields: fields}
}

// Describe returns the object's values restricted to the given field names.
// Fields the object does not carry are omitted from the result. An empty
// name list returns every field the object carries.
func (o *Object) Describe(names []string) map[string]interface{} {
	if len(names) == 0 {
		out := make(map[string]interface{}, len(o.fields))
		for k, v := range o.fields {
			out[k] = v
		}
		return out
	}

	out := make(map[string]interface{}, len(names))
	for _, name := range names {
		if v, ok := o.fields[name]; ok {
			out[name] = v
		}
	}
	return out
}

// FieldNames returns the names of every field the object carries, sorted.
func (o *Object) FieldNames() []string {
	names := make([]string, 0, len(o.fields))
	for k := range o.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
