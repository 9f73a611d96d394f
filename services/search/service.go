package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/meghashyamc/paperdex/logger"
	"github.com/meghashyamc/paperdex/metrics"
	"github.com/meghashyamc/paperdex/services/catalog"
)

// TextIndex resolves a free-text query to the ids of the matching records.
type TextIndex interface {
	Match(queryString string) ([]int64, error)
}

type Options struct {
	MaxPageSize    int
	DefaultSortBy  string
	MatchCacheSize int
}

// Service runs searches against a read-only catalog. It holds no per-request
// state, so concurrent calls need no coordination.
type Service struct {
	logger        logger.Logger
	catalog       *catalog.Catalog
	index         TextIndex
	maxPageSize   int
	defaultSortBy string
	matchCache    *lru.Cache
}

func New(logger logger.Logger, catalog *catalog.Catalog, index TextIndex, opts Options) (*Service, error) {
	service := &Service{
		logger:        logger,
		catalog:       catalog,
		index:         index,
		maxPageSize:   opts.MaxPageSize,
		defaultSortBy: opts.DefaultSortBy,
	}

	if opts.MatchCacheSize > 0 {
		cache, err := lru.New(opts.MatchCacheSize)
		if err != nil {
			logger.Error("could not create match cache", "err", err.Error())
			return nil, fmt.Errorf("could not create match cache: %w", err)
		}
		service.matchCache = cache
	}

	return service, nil
}

// Search returns one page of the ordered match set for request. Pages past
// the end are empty but still report the full total.
func (s *Service) Search(ctx context.Context, request Request) (*Response, error) {
	if err := s.validate(&request); err != nil {
		s.logger.Warn("rejected search request", "err", err.Error())
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ordered, err := s.orderedMatches(ctx, request)
	if err != nil {
		return nil, err
	}

	total := len(ordered)
	start := total
	if request.Page-1 <= total/request.PageSize {
		start = min((request.Page-1)*request.PageSize, total)
	}
	end := min(start+request.PageSize, total)

	results := make([]catalog.Record, end-start)
	copy(results, ordered[start:end])

	return &Response{
		Total:    total,
		Page:     request.Page,
		PageSize: request.PageSize,
		Results:  results,
	}, nil
}

func (s *Service) Paper(id int64) (catalog.Record, bool) {
	return s.catalog.Get(id)
}

func (s *Service) Schema() catalog.Schema {
	return s.catalog.Schema()
}

type matchKey struct {
	Query     string              `json:"q"`
	Filters   map[string][]string `json:"f"`
	SortBy    string              `json:"s"`
	SortOrder string              `json:"o"`
	Seed      string              `json:"seed,omitempty"`
}

func (s *Service) orderedMatches(ctx context.Context, request Request) ([]catalog.Record, error) {
	key := matchKey{
		Query:   strings.TrimSpace(request.Query),
		Filters: s.normaliseFilters(request.Filters),
	}
	key.SortBy, key.SortOrder = s.resolveSort(request.SortBy, request.SortOrder)
	if key.SortBy == SortRandom {
		key.Seed = request.Seed
	}

	// encoding/json writes map keys in sorted order, so equal requests share a key.
	encodedKey, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("could not encode match key: %w", err)
	}
	cacheKey := string(encodedKey)

	if s.matchCache != nil {
		if cached, ok := s.matchCache.Get(cacheKey); ok {
			metrics.RecordMatchCache(true)
			return cached.([]catalog.Record), nil
		}
		metrics.RecordMatchCache(false)
	}

	candidates, err := s.candidates(key.Query)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matched := make([]catalog.Record, 0, len(candidates))
	for _, record := range candidates {
		if matchesFilters(record, key.Filters) {
			matched = append(matched, record)
		}
	}

	switch key.SortBy {
	case SortRandom:
		shuffle(matched, key.Seed)
	case catalog.FieldID:
		if key.SortOrder == SortOrderDesc {
			sortByField(matched, catalog.FieldID, true)
		} else {
			sortByID(matched)
		}
	default:
		sortByField(matched, key.SortBy, key.SortOrder == SortOrderDesc)
	}

	if s.matchCache != nil {
		s.matchCache.Add(cacheKey, matched)
	}
	metrics.ObserveMatchSetSize(len(matched))

	return matched, nil
}

// resolveSort maps the requested sort onto a field the catalog knows. Absent
// or unknown fields fall back to the configured default field ascending, and
// to id order when the catalog lacks that field too.
func (s *Service) resolveSort(sortBy string, sortOrder string) (string, string) {
	sortBy = strings.TrimSpace(sortBy)
	if sortBy == SortRandom {
		return SortRandom, SortOrderAsc
	}
	if sortBy != "" && s.catalog.HasField(sortBy) {
		return sortBy, sortOrder
	}
	if s.defaultSortBy != "" && s.catalog.HasField(s.defaultSortBy) {
		return s.defaultSortBy, SortOrderAsc
	}
	return catalog.FieldID, SortOrderAsc
}

func (s *Service) candidates(query string) ([]catalog.Record, error) {
	if query == "" {
		return s.catalog.Records(), nil
	}

	ids, err := s.index.Match(query)
	if err != nil {
		s.logger.Error("full-text lookup failed", "query", query, "err", err.Error())
		return nil, fmt.Errorf("full-text lookup failed: %w", err)
	}

	records := make([]catalog.Record, 0, len(ids))
	for _, id := range ids {
		if record, ok := s.catalog.Get(id); ok {
			records = append(records, record)
		}
	}

	return records, nil
}
