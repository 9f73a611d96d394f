package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meghashyamc/paperdex/services/catalog"
)

const (
	SortRandom = "random"

	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

var ErrInvalidRequest = errors.New("invalid search request")

type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// Request is a single catalog query. Page is 1-based.
type Request struct {
	Query     string
	Filters   map[string][]string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	Seed      string
}

type Response struct {
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Results  []catalog.Record `json:"results"`
}

func (s *Service) validate(request *Request) error {
	if request.Page < 1 {
		return &InvalidRequestError{Field: "page", Reason: "must be at least 1"}
	}
	if request.PageSize <= 0 {
		return &InvalidRequestError{Field: "page_size", Reason: "must be greater than 0"}
	}
	if s.maxPageSize > 0 && request.PageSize > s.maxPageSize {
		return &InvalidRequestError{Field: "page_size", Reason: fmt.Sprintf("must not exceed %d", s.maxPageSize)}
	}

	switch order := strings.ToLower(strings.TrimSpace(request.SortOrder)); order {
	case "":
		request.SortOrder = SortOrderAsc
	case SortOrderAsc, SortOrderDesc:
		request.SortOrder = order
	default:
		return &InvalidRequestError{Field: "sort_order", Reason: "must be 'asc' or 'desc'"}
	}

	if strings.TrimSpace(request.SortBy) == SortRandom && strings.TrimSpace(request.Seed) == "" {
		return &InvalidRequestError{Field: "seed", Reason: "required when sort_by is 'random'"}
	}

	return nil
}
