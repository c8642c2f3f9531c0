package export

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strings"
)

// Record is one row keyed by column name. Keys keep the order of the
// query result when serialized.
type Record struct {
	columns []string
	values  []any
}

func NewRecord(columns []string, values []any) Record {
	return Record{columns: columns, values: values}
}

func (r Record) Columns() []string { return r.columns }

func (r Record) Values() []any { return r.values }

func (r Record) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONValue(&buf, col); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		var v any
		if i < len(r.values) {
			v = r.values[i]
		}
		if err := writeJSONValue(&buf, finiteValue(v)); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeJSONValue encodes v without HTML escaping and without the
// encoder's trailing newline.
func writeJSONValue(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// finiteValue replaces REAL infinities and NaN, which JSON numbers cannot
// hold, with the strings "Infinity", "-Infinity" and "NaN".
func finiteValue(v any) any {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	}
	return v
}

// Document is the full contents of one table.
type Document struct {
	Table   string
	Columns []string
	Records []Record
}

// EncodeJSON writes the records as a JSON array. indent is the number of
// spaces per level; zero produces compact output.
func (d *Document) EncodeJSON(w io.Writer, indent int) error {
	records := d.Records
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	return enc.Encode(records)
}
