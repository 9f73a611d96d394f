package search

import (
	"sort"
	"strings"

	"github.com/meghashyamc/paperdex/services/catalog"
)

// normaliseFilters trims accepted values and drops empty value sets and
// fields the catalog has never seen. Unknown fields are ignored rather than
// rejected so that clients built against an older schema keep working.
func (s *Service) normaliseFilters(filters map[string][]string) map[string][]string {
	normalised := make(map[string][]string, len(filters))
	for field, values := range filters {
		if !s.catalog.HasField(field) {
			s.logger.Debug("ignoring filter on unknown field", "field", field)
			continue
		}

		accepted := make([]string, 0, len(values))
		for _, value := range values {
			if value = strings.TrimSpace(value); value != "" {
				accepted = append(accepted, value)
			}
		}
		if len(accepted) == 0 {
			continue
		}
		sort.Strings(accepted)
		normalised[field] = accepted
	}

	return normalised
}

// matchesFilters is an AND across fields and an OR within a field.
func matchesFilters(record catalog.Record, filters map[string][]string) bool {
	for field, accepted := range filters {
		if !intersects(catalog.Values(record[field]), accepted) {
			return false
		}
	}
	return true
}

func intersects(values []string, accepted []string) bool {
	for _, value := range values {
		value = strings.TrimSpace(value)
		for _, candidate := range accepted {
			if strings.EqualFold(value, candidate) {
				return true
			}
		}
	}
	return false
}
