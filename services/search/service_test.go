package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"testing"

	"github.com/meghashyamc/paperdex/db/searchdb"
	"github.com/meghashyamc/paperdex/services/catalog"
	"github.com/stretchr/testify/require"
)

var decisions = []string{"Accept (poster)", "Reject", "Accept (oral)"}
var topics = [][]string{{"NLP"}, {"Vision"}, {"Theory", "NLP"}, {"Robotics"}}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func generateRecords(assert *require.Assertions, n int) []catalog.Record {
	records := make([]catalog.Record, 0, n)
	for i := 1; i <= n; i++ {
		title := fmt.Sprintf("Paper %02d", n-i)
		if i%3 == 0 {
			title += " graph neural"
		}
		record, err := catalog.FromMap(map[string]any{
			"id":       i,
			"name":     title,
			"decision": decisions[i%len(decisions)],
			"topic":    toAny(topics[i%len(topics)]),
			"poster":   i % 4,
		})
		assert.NoError(err)
		records = append(records, record)
	}
	return records
}

func toAny(values []string) []any {
	result := make([]any, len(values))
	for i, value := range values {
		result[i] = value
	}
	return result
}

func newTestService(assert *require.Assertions, records []catalog.Record, opts Options) *Service {
	c, err := catalog.New(records, map[string]int{"decision": 10, "topic": 10})
	assert.NoError(err)

	index, err := searchdb.NewInMemory(newTestLogger())
	assert.NoError(err)
	documents := make([]searchdb.Document, 0, len(records))
	for _, record := range records {
		documents = append(documents, searchdb.Document{ID: strconv.FormatInt(record.ID(), 10), Text: catalog.SearchText(record)})
	}
	assert.NoError(index.BuildIndex(documents))

	service, err := New(newTestLogger(), c, index, opts)
	assert.NoError(err)
	return service
}

func ids(records []catalog.Record) []int64 {
	result := make([]int64, len(records))
	for i, record := range records {
		result[i] = record.ID()
	}
	return result
}

var invalidRequestTestCases = []struct {
	name    string
	request Request
	field   string
}{
	{name: "PageZero", request: Request{Page: 0, PageSize: 10}, field: "page"},
	{name: "NegativePage", request: Request{Page: -3, PageSize: 10}, field: "page"},
	{name: "PageSizeZero", request: Request{Page: 1, PageSize: 0}, field: "page_size"},
	{name: "PageSizeTooLarge", request: Request{Page: 1, PageSize: 101}, field: "page_size"},
	{name: "BadSortOrder", request: Request{Page: 1, PageSize: 10, SortBy: "name", SortOrder: "sideways"}, field: "sort_order"},
	{name: "RandomWithoutSeed", request: Request{Page: 1, PageSize: 10, SortBy: SortRandom}, field: "seed"},
	{name: "RandomWithBlankSeed", request: Request{Page: 1, PageSize: 10, SortBy: SortRandom, Seed: "  "}, field: "seed"},
}

func TestInvalidRequests(t *testing.T) {
	assert := require.New(t)
	service := newTestService(assert, generateRecords(assert, 5), Options{MaxPageSize: 100})

	for _, testCase := range invalidRequestTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			response, err := service.Search(context.Background(), testCase.request)
			assert.Nil(response)
			assert.True(errors.Is(err, ErrInvalidRequest), "expected an invalid request error, got %v", err)

			var invalidErr *InvalidRequestError
			assert.True(errors.As(err, &invalidErr))
			assert.Equal(testCase.field, invalidErr.Field)
		})
	}
}

func TestFilterByDecision(t *testing.T) {
	assert := require.New(t)

	records := []catalog.Record{}
	for i, decision := range []string{"Accept", "Reject", "Accept"} {
		record, err := catalog.FromMap(map[string]any{"id": i + 1, "name": fmt.Sprintf("Paper %d", i+1), "decision": decision})
		assert.NoError(err)
		records = append(records, record)
	}
	service := newTestService(assert, records, Options{MaxPageSize: 100, DefaultSortBy: "name"})

	response, err := service.Search(context.Background(), Request{
		Filters:  map[string][]string{"decision": {"Accept"}},
		Page:     1,
		PageSize: 20,
	})
	assert.NoError(err)
	assert.Equal(2, response.Total)
	assert.Equal(1, response.Page)
	assert.Equal(20, response.PageSize)
	assert.Equal([]int64{1, 3}, ids(response.Results))
}

func TestFilterComposition(t *testing.T) {
	assert := require.New(t)

	raw := []map[string]any{
		{"id": 1, "decision": "Accept", "topic": []any{"NLP"}},
		{"id": 2, "decision": "Accept", "topic": []any{"Theory", "Vision"}},
		{"id": 3, "decision": "Reject", "topic": []any{"NLP"}},
		{"id": 4, "decision": "Accept", "topic": []any{"Robotics"}},
		{"id": 5, "decision": "accept", "topic": []any{"nlp"}},
		{"id": 6, "topic": []any{"Vision"}},
	}
	records := make([]catalog.Record, 0, len(raw))
	for _, values := range raw {
		record, err := catalog.FromMap(values)
		assert.NoError(err)
		records = append(records, record)
	}
	service := newTestService(assert, records, Options{MaxPageSize: 100})

	response, err := service.Search(context.Background(), Request{
		Filters:  map[string][]string{"decision": {"Accept"}, "topic": {"NLP", "Vision"}},
		Page:     1,
		PageSize: 10,
	})
	assert.NoError(err)
	assert.Equal([]int64{1, 2, 5}, ids(response.Results))

	response, err = service.Search(context.Background(), Request{
		Filters:  map[string][]string{"decision": {"Accept"}, "no_such_field": {"x"}, "topic": {}},
		Page:     1,
		PageSize: 10,
	})
	assert.NoError(err)
	assert.Equal([]int64{1, 2, 4, 5}, ids(response.Results), "unknown fields and empty value sets are ignored")
}

func TestFreeTextQueryIsANDOfTokens(t *testing.T) {
	assert := require.New(t)

	raw := []map[string]any{
		{"id": 1, "name": "Graph neural networks"},
		{"id": 2, "name": "Neural fields", "abstract": "built on a graph"},
		{"id": 3, "name": "Graph theory"},
		{"id": 4, "name": "NEURAL nets", "keywords": []any{"GRAPH"}},
	}
	records := make([]catalog.Record, 0, len(raw))
	for _, values := range raw {
		record, err := catalog.FromMap(values)
		assert.NoError(err)
		records = append(records, record)
	}
	service := newTestService(assert, records, Options{MaxPageSize: 100})

	response, err := service.Search(context.Background(), Request{Query: "graph neural", Page: 1, PageSize: 10, SortBy: "id"})
	assert.NoError(err)
	assert.Equal([]int64{1, 2, 4}, ids(response.Results))

	response, err = service.Search(context.Background(), Request{Query: "   ", Page: 1, PageSize: 10, SortBy: "id"})
	assert.NoError(err)
	assert.Equal(4, response.Total, "a blank query matches everything")
}

func TestPageBeyondLastPage(t *testing.T) {
	assert := require.New(t)
	service := newTestService(assert, generateRecords(assert, 7), Options{MaxPageSize: 100})

	testCases := []struct {
		name     string
		page     int
		pageSize int
	}{
		{name: "NextPageAfterLast", page: 3, pageSize: 5},
		{name: "FarPastEnd", page: 1000, pageSize: 5},
		{name: "PageOffsetOverflowsInt", page: math.MaxInt / 50, pageSize: 100},
		{name: "MaxPage", page: math.MaxInt, pageSize: 100},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			response, err := service.Search(context.Background(), Request{Page: testCase.page, PageSize: testCase.pageSize})
			assert.NoError(err)
			assert.Equal(7, response.Total)
			assert.Equal(testCase.page, response.Page)
			assert.Empty(response.Results)
			assert.NotNil(response.Results)
		})
	}
}

func TestResultLengthInvariant(t *testing.T) {
	assert := require.New(t)
	service := newTestService(assert, generateRecords(assert, 23), Options{MaxPageSize: 100})

	for pageSize := 1; pageSize <= 25; pageSize++ {
		for page := 1; page <= 25; page++ {
			response, err := service.Search(context.Background(), Request{Page: page, PageSize: pageSize})
			assert.NoError(err)
			expected := min(pageSize, max(0, response.Total-(page-1)*pageSize))
			assert.Len(response.Results, expected, "page %d size %d", page, pageSize)
		}
	}
}

func TestSortByField(t *testing.T) {
	assert := require.New(t)

	raw := []map[string]any{
		{"id": 1, "name": "beta", "poster": 10},
		{"id": 2, "name": "Alpha", "poster": 9},
		{"id": 3, "name": "alpha", "poster": 10},
		{"id": 4, "poster": 1},
		{"id": 5, "name": []any{"Gamma", "aaa"}},
	}
	records := make([]catalog.Record, 0, len(raw))
	for _, values := range raw {
		record, err := catalog.FromMap(values)
		assert.NoError(err)
		records = append(records, record)
	}
	service := newTestService(assert, records, Options{MaxPageSize: 100, DefaultSortBy: "name"})

	var sortTestCases = []struct {
		name     string
		request  Request
		expected []int64
	}{
		{name: "NameAscending", request: Request{SortBy: "name"}, expected: []int64{4, 2, 3, 1, 5}},
		{name: "NameDescendingTiesByID", request: Request{SortBy: "name", SortOrder: "DESC"}, expected: []int64{5, 1, 2, 3, 4}},
		{name: "NumericAscending", request: Request{SortBy: "poster", SortOrder: "asc"}, expected: []int64{5, 4, 2, 1, 3}},
		{name: "NumericDescending", request: Request{SortBy: "poster", SortOrder: "desc"}, expected: []int64{1, 3, 2, 4, 5}},
		{name: "DefaultSort", request: Request{}, expected: []int64{4, 2, 3, 1, 5}},
		{name: "UnknownFieldUsesDefault", request: Request{SortBy: "nope", SortOrder: "desc"}, expected: []int64{4, 2, 3, 1, 5}},
		{name: "IDDescending", request: Request{SortBy: "id", SortOrder: "desc"}, expected: []int64{5, 4, 3, 2, 1}},
	}

	for _, testCase := range sortTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			request := testCase.request
			request.Page, request.PageSize = 1, 10
			response, err := service.Search(context.Background(), request)
			assert.NoError(err)
			assert.Equal(testCase.expected, ids(response.Results))
		})
	}
}

func TestDefaultSortFallsBackToID(t *testing.T) {
	assert := require.New(t)
	records := generateRecords(assert, 6)
	service := newTestService(assert, records, Options{MaxPageSize: 100, DefaultSortBy: "missing"})

	response, err := service.Search(context.Background(), Request{Query: "paper", Page: 1, PageSize: 10})
	assert.NoError(err)
	assert.Equal([]int64{1, 2, 3, 4, 5, 6}, ids(response.Results))
}

func TestCancelledContext(t *testing.T) {
	assert := require.New(t)
	service := newTestService(assert, generateRecords(assert, 3), Options{MaxPageSize: 100})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	response, err := service.Search(ctx, Request{Page: 1, PageSize: 10})
	assert.Nil(response)
	assert.True(errors.Is(err, context.Canceled))
}

func TestPaperAndSchema(t *testing.T) {
	assert := require.New(t)
	service := newTestService(assert, generateRecords(assert, 3), Options{})

	paper, ok := service.Paper(2)
	assert.True(ok)
	assert.Equal(int64(2), paper.ID())
	_, ok = service.Paper(42)
	assert.False(ok)

	assert.Contains(service.Schema().Facets, "decision")
}
