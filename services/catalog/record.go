package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	FieldID = "id"

	listSeparator = " | "
)

// Record is a single paper as loaded from the index store. Records are shared
// between concurrent searches and must never be mutated after load.
type Record map[string]any

// ID returns the record's integer identifier.
func (r Record) ID() int64 {
	id, _ := toInt64(r[FieldID])
	return id
}

// ParseRecord decodes raw JSON into a Record, normalising its id to int64.
func ParseRecord(raw []byte) (Record, error) {
	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.UseNumber()

	record := Record{}
	if err := decoder.Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}

	if err := record.normaliseID(); err != nil {
		return nil, err
	}

	return record, nil
}

// FromMap builds a Record from an already decoded value, normalising its id.
func FromMap(values map[string]any) (Record, error) {
	record := make(Record, len(values))
	for key, value := range values {
		record[key] = value
	}
	if err := record.normaliseID(); err != nil {
		return nil, err
	}
	return record, nil
}

func (r Record) normaliseID() error {
	raw, ok := r[FieldID]
	if !ok || raw == nil {
		return fmt.Errorf("record must include a numeric '%s'", FieldID)
	}

	id, ok := toInt64(raw)
	if !ok {
		return fmt.Errorf("record id %v is not an integer", raw)
	}
	r[FieldID] = id

	return nil
}

// Values flattens a field value into its string forms. Lists contribute one
// entry per non-null element, objects their JSON encoding, and nil nothing.
func Values(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			values = append(values, scalarString(item))
		}
		return values
	case []string:
		return v
	default:
		return []string{scalarString(v)}
	}
}

// SearchText bundles every non-id field of the record into one text blob for
// full-text indexing. Fields are visited in name order so that the blob is
// stable across builds.
func SearchText(record Record) string {
	keys := make([]string, 0, len(record))
	for key := range record {
		if key == FieldID {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fragments := make([]string, 0, len(keys))
	for _, key := range keys {
		values := Values(record[key])
		nonEmpty := make([]string, 0, len(values))
		for _, value := range values {
			if strings.TrimSpace(value) != "" {
				nonEmpty = append(nonEmpty, value)
			}
		}
		if len(nonEmpty) == 0 {
			continue
		}
		fragments = append(fragments, strings.Join(nonEmpty, listSeparator))
	}

	return strings.Join(fragments, "\n")
}

func scalarString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		id, err := v.Int64()
		return id, err == nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}

// Number reports the numeric value of a scalar, if it has one.
func Number(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
