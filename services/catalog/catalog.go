// Package catalog holds the immutable, in-memory view of every paper record
// together with the schema and facet values derived from it at load time.
package catalog

import (
	"fmt"
	"sort"
)

type Catalog struct {
	records []Record
	byID    map[int64]Record
	fields  map[string]struct{}
	schema  Schema
}

func New(records []Record, facetLimits map[string]int) (*Catalog, error) {
	ordered := make([]Record, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID() < ordered[j].ID() })

	byID := make(map[int64]Record, len(ordered))
	for _, record := range ordered {
		if _, ok := record[FieldID]; !ok {
			return nil, fmt.Errorf("record without '%s' field", FieldID)
		}
		id := record.ID()
		if _, exists := byID[id]; exists {
			return nil, fmt.Errorf("duplicate record id %d", id)
		}
		byID[id] = record
	}

	fields := deriveFields(ordered)
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		fieldSet[field.Name] = struct{}{}
	}

	return &Catalog{
		records: ordered,
		byID:    byID,
		fields:  fieldSet,
		schema: Schema{
			Fields: fields,
			Facets: deriveFacets(ordered, facetLimits),
		},
	}, nil
}

// Records returns every record in ascending id order. The slice is shared and
// must be treated as read-only.
func (c *Catalog) Records() []Record {
	return c.records
}

func (c *Catalog) Get(id int64) (Record, bool) {
	record, ok := c.byID[id]
	return record, ok
}

func (c *Catalog) Len() int {
	return len(c.records)
}

// Schema returns a copy of the derived schema; callers may modify it freely.
func (c *Catalog) Schema() Schema {
	return c.schema.clone()
}

// HasField reports whether any record carries a non-null value for name.
func (c *Catalog) HasField(name string) bool {
	_, ok := c.fields[name]
	return ok
}
