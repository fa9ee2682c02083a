// Package dataframe provides the column-oriented result type produced by
// query backends and utilities for turning it into row objects.
package dataframe

import (
	"encoding/json"
	"time"
)

// Field is one named column of a frame. Values holds one entry per row;
// struct-typed columns carry map[string]interface{} values.
type Field struct {
	Name   string        `json:"name"`
	Type   string        `json:"type"`
	Values []interface{} `json:"values"`
}

// Frame is a column-oriented query result. Every field's Values is expected
// to hold exactly Size entries; producers are responsible for that invariant
// and consumers do not re-validate it.
type Frame struct {
	Fields []Field `json:"fields"`
	Size   int     `json:"size"`
}

// Row is one transposed row, keyed by field name.
type Row map[string]interface{}

// Transpose converts a frame into one row object per row index. A frame with
// no fields yields an empty slice regardless of the declared size. A field
// shorter than Size contributes nil for the missing indexes.
func (f Frame) Transpose() []Row {
	if len(f.Fields) == 0 || f.Size <= 0 {
		return []Row{}
	}

	rows := make([]Row, f.Size)
	for i := 0; i < f.Size; i++ {
		row := make(Row, len(f.Fields))
		for _, field := range f.Fields {
			if i < len(field.Values) {
				row[field.Name] = field.Values[i]
			} else {
				row[field.Name] = nil
			}
		}
		rows[i] = row
	}

	return rows
}

// Column returns the values of the named field, or nil when no such field
// exists.
func (f Frame) Column(name string) []interface{} {
	for _, field := range f.Fields {
		if field.Name == name {
			return field.Values
		}
	}
	return nil
}

// TimeRange is an inclusive pair of epoch-second bounds.
type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// ExtractTimeRange normalizes a mixed list of epoch-second numbers and
// ISO-8601 strings to epoch seconds and returns the minimum and maximum.
// When no entry can be parsed, both bounds are the current wall-clock time;
// that is an explicit fallback for empty results, not an error. Entries that
// cannot be parsed are skipped.
func ExtractTimeRange(values []interface{}) TimeRange {
	var (
		start int64
		end   int64
		seen  bool
	)

	for _, v := range values {
		ts, ok := toEpochSeconds(v)
		if !ok {
			continue
		}
		if !seen || ts < start {
			start = ts
		}
		if !seen || ts > end {
			end = ts
		}
		seen = true
	}

	if !seen {
		now := time.Now().Unix()
		return TimeRange{Start: now, End: now}
	}

	return TimeRange{Start: start, End: end}
}

// toEpochSeconds converts a single timestamp value to epoch seconds. JSON
// decoding can deliver numbers as float64 or json.Number depending on the
// decoder, and backends return timestamps as ISO-8601 strings.
func toEpochSeconds(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		if f, err := t.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.Unix(), true
		}
		// Backends without a timezone suffix.
		if parsed, err := time.Parse("2006-01-02T15:04:05", t); err == nil {
			return parsed.Unix(), true
		}
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed.Unix(), true
		}
		return 0, false
	default:
		return 0, false
	}
}
