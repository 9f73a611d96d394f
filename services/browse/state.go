package browse

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/meghashyamc/paperdex/services/search"
)

// State is everything a browsing session needs to reproduce its current
// page. Transitions return a new State and never modify the receiver.
type State struct {
	Query     string              `json:"query"`
	Filters   map[string][]string `json:"filters,omitempty"`
	Page      int                 `json:"page"`
	PageSize  int                 `json:"page_size"`
	SortBy    string              `json:"sort_by"`
	SortOrder string              `json:"sort_order"`
	Seed      string              `json:"seed,omitempty"`
}

// NewSeed returns a fresh shuffle seed.
func NewSeed() string {
	return uuid.NewString()
}

// NewState starts a session on the first page of a shuffled catalog.
func NewState(pageSize int, seed string) State {
	return State{
		Page:      1,
		PageSize:  pageSize,
		SortBy:    search.SortRandom,
		SortOrder: search.SortOrderAsc,
		Seed:      seed,
	}
}

func (s State) SetQuery(query string) State {
	next := s.clone()
	next.Query = query
	next.Page = 1
	return next
}

// ToggleFilter adds value to the accepted values of field, or removes it
// when already present. A field left without values is dropped.
func (s State) ToggleFilter(field string, value string) State {
	next := s.clone()
	next.Page = 1

	values := next.Filters[field]
	for i, existing := range values {
		if strings.EqualFold(existing, value) {
			values = append(values[:i:i], values[i+1:]...)
			if len(values) == 0 {
				delete(next.Filters, field)
			} else {
				next.Filters[field] = values
			}
			return next
		}
	}

	if next.Filters == nil {
		next.Filters = map[string][]string{}
	}
	next.Filters[field] = append(values, value)
	return next
}

func (s State) ClearFilters() State {
	next := s.clone()
	next.Filters = nil
	next.Page = 1
	return next
}

func (s State) SetPage(page int) State {
	next := s.clone()
	next.Page = max(1, page)
	return next
}

// SetSort switches ordering. The seed is kept so returning to the random
// order shows the same shuffle as before.
func (s State) SetSort(sortBy string, sortOrder string) State {
	next := s.clone()
	next.SortBy = sortBy
	next.SortOrder = sortOrder
	next.Page = 1
	return next
}

// Reseed switches to the random order under a new seed.
func (s State) Reseed(seed string) State {
	next := s.clone()
	next.SortBy = search.SortRandom
	next.Seed = seed
	next.Page = 1
	return next
}

// Request converts the state into a search request.
func (s State) Request() search.Request {
	request := search.Request{
		Query:     s.Query,
		Page:      s.Page,
		PageSize:  s.PageSize,
		SortBy:    s.SortBy,
		SortOrder: s.SortOrder,
		Seed:      s.Seed,
	}
	if len(s.Filters) > 0 {
		request.Filters = s.clone().Filters
	}
	return request
}

// TotalPages returns how many pages total results span, at least one.
func (s State) TotalPages(total int) int {
	if s.PageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + s.PageSize - 1) / s.PageSize
}

// FilterFields lists the filtered fields in a stable order.
func (s State) FilterFields() []string {
	fields := make([]string, 0, len(s.Filters))
	for field := range s.Filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// HasFilter reports whether value is currently accepted for field.
func (s State) HasFilter(field string, value string) bool {
	for _, existing := range s.Filters[field] {
		if strings.EqualFold(existing, value) {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	next := s
	if s.Filters != nil {
		next.Filters = make(map[string][]string, len(s.Filters))
		for field, values := range s.Filters {
			next.Filters[field] = append([]string(nil), values...)
		}
	}
	return next
}
