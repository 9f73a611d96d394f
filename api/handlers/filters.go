package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FilterValues accepts either a single scalar or a list of scalars for a
// filter field, so {"topic": "NLP"} and {"topic": ["NLP"]} mean the same.
type FilterValues []string

func (f *FilterValues) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*f = nil
	case []any:
		values := make(FilterValues, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			value, err := filterScalar(item)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		*f = values
	default:
		value, err := filterScalar(v)
		if err != nil {
			return err
		}
		*f = FilterValues{value}
	}

	return nil
}

func filterScalar(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("filter values must be strings, numbers or booleans, got %T", value)
	}
}
