package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fidde/signal_explorer/pkg/dataframe"
)

// BuildAvailableGroupByAttributes deep-flattens each object into dotted key
// paths and collects, per path, the sorted deduplicated list of observed
// leaf values across all objects. Arrays are treated as opaque leaf values,
// not recursed into.
func BuildAvailableGroupByAttributes(objects []map[string]interface{}) map[string][]string {
	seen := make(map[string]map[string]struct{})

	var walk func(prefix string, value interface{})
	walk = func(prefix string, value interface{}) {
		if nested, ok := value.(map[string]interface{}); ok {
			for k, v := range nested {
				path := k
				if prefix != "" {
					path = prefix + "." + k
				}
				walk(path, v)
			}
			return
		}
		if prefix == "" || value == nil {
			return
		}
		if seen[prefix] == nil {
			seen[prefix] = make(map[string]struct{})
		}
		seen[prefix][leafString(value)] = struct{}{}
	}

	for _, obj := range objects {
		walk("", obj)
	}

	result := make(map[string][]string, len(seen))
	for path, values := range seen {
		list := make([]string, 0, len(values))
		for v := range values {
			list = append(list, v)
		}
		sort.Strings(list)
		result[path] = list
	}

	return result
}

// leafString renders a leaf value for the group-by attribute sets.
func leafString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// pathValue resolves a dotted path against a row. Backends differ in how
// they encode struct columns: some flatten them into dotted column names
// ("operation.name" as one field), others return nested objects under the
// top-level name. Both encodings are accepted here.
func pathValue(row dataframe.Row, path string) (interface{}, bool) {
	if v, ok := row[path]; ok {
		return v, true
	}

	parts := strings.Split(path, ".")
	for i := len(parts) - 1; i > 0; i-- {
		prefix := strings.Join(parts[:i], ".")
		v, ok := row[prefix]
		if !ok {
			continue
		}
		if resolved, ok := descend(v, parts[i:]); ok {
			return resolved, true
		}
	}

	return nil, false
}

// descend walks the remaining path segments through nested objects.
func descend(v interface{}, parts []string) (interface{}, bool) {
	for _, p := range parts {
		nested, ok := v.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok = nested[p]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

// pathString resolves a dotted path and coerces the value to a string.
// Missing paths and nil values read as the empty string.
func pathString(row dataframe.Row, path string) string {
	v, ok := pathValue(row, path)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// pathObject resolves a dotted path to a nested object, or nil when the
// path is missing or not an object.
func pathObject(row dataframe.Row, path string) map[string]interface{} {
	v, ok := pathValue(row, path)
	if !ok {
		return nil
	}
	obj, _ := v.(map[string]interface{})
	return obj
}

// objString reads a string member from a raw attribute object, accepting
// both lower and upper-camel key spellings seen across backends.
func objString(obj map[string]interface{}, key string) string {
	if obj == nil {
		return ""
	}
	if v, ok := obj[key]; ok && v != nil {
		return leafString(v)
	}
	upper := strings.ToUpper(key[:1]) + key[1:]
	if v, ok := obj[upper]; ok && v != nil {
		return leafString(v)
	}
	return ""
}
