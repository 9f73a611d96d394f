package catalog

import (
	"encoding/json"
	"slices"
	"sort"
	"strings"
)

const (
	TypeBoolean = "boolean"
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeMixed   = "mixed"
)

type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Schema struct {
	Fields []Field              `json:"fields"`
	Facets map[string][]string `json:"facets"`
}

func (s Schema) clone() Schema {
	cloned := Schema{Fields: slices.Clone(s.Fields)}
	if s.Facets != nil {
		cloned.Facets = make(map[string][]string, len(s.Facets))
		for field, values := range s.Facets {
			cloned.Facets[field] = slices.Clone(values)
		}
	}
	return cloned
}

func deriveFields(records []Record) []Field {
	types := map[string]string{}
	for _, record := range records {
		for key, value := range record {
			if value == nil {
				continue
			}
			detected := detectType(value)
			existing, ok := types[key]
			switch {
			case !ok:
				types[key] = detected
			case existing != detected:
				types[key] = TypeMixed
			}
		}
	}

	fields := make([]Field, 0, len(types))
	for name, fieldType := range types {
		fields = append(fields, Field{Name: name, Type: fieldType})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	return fields
}

// deriveFacets collects up to limit distinct non-empty values per facet
// field, visiting records in id order.
func deriveFacets(records []Record, limits map[string]int) map[string][]string {
	facets := make(map[string][]string, len(limits))
	for field, limit := range limits {
		seen := map[string]struct{}{}
		for _, record := range records {
			if len(seen) >= limit {
				break
			}
			for _, value := range Values(record[field]) {
				if len(seen) >= limit {
					break
				}
				if strings.TrimSpace(value) == "" {
					continue
				}
				seen[value] = struct{}{}
			}
		}

		values := make([]string, 0, len(seen))
		for value := range seen {
			values = append(values, value)
		}
		sort.Strings(values)
		facets[field] = values
	}

	return facets
}

func detectType(value any) string {
	switch v := value.(type) {
	case bool:
		return TypeBoolean
	case int, int64:
		return TypeInteger
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return TypeInteger
		}
		return TypeFloat
	case float64:
		return TypeFloat
	case map[string]any:
		return TypeObject
	case []any, []string:
		return TypeArray
	default:
		return TypeString
	}
}
