// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/paperdex/config"
	"github.com/meghashyamc/paperdex/db/searchdb"
	"github.com/meghashyamc/paperdex/logger"
	"github.com/meghashyamc/paperdex/services/catalog"
	"github.com/meghashyamc/paperdex/services/lookup"
	"github.com/meghashyamc/paperdex/services/search"
	"github.com/meghashyamc/paperdex/validation"
	"github.com/stretchr/testify/require"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

var testPapers = []string{
	`{"id": 1, "name": "Graph Neural Networks", "decision": "Accept (oral)", "topic": "Theory", "authors": ["Ada Lovelace"]}`,
	`{"id": 2, "name": "Neural Radiance Fields", "decision": "Accept (poster)", "topic": "Vision", "authors": ["Grace Hopper"]}`,
	`{"id": 3, "name": "Attention Is All You Need", "decision": "Accept (oral)", "topic": "NLP", "authors": ["Ashish Vaswani"]}`,
	`{"id": 4, "name": "Diffusion Models", "decision": "Reject", "topic": "Vision", "authors": ["Alan Turing", "Ada Lovelace"]}`,
	`{"id": 5, "name": "Adam", "decision": "Accept (poster)", "topic": "Optimization", "authors": []}`,
}

type testCase struct {
	name           string
	requestHeaders map[string]string
	requestBody    any
	queryParams    map[string]string
	expectedStatus int
	expectedIDs    []int64
	expectedTotal  int
	expectedError  string
}

type fakeResolver struct {
	title  string
	author string
}

func (f *fakeResolver) Resolve(ctx context.Context, title string, author string) lookup.Link {
	f.title = title
	f.author = author
	return lookup.Link{URL: "https://openreview.net/forum?id=" + title, Source: lookup.SourceOpenReview}
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func setupTestServer(t *testing.T, assert *require.Assertions) (*gin.Engine, *fakeResolver) {

	cfg, err := config.Load("test")
	assert.NoError(err, "could not load config")

	testLogger := newTestLogger()

	records := make([]catalog.Record, 0, len(testPapers))
	documents := make([]searchdb.Document, 0, len(testPapers))
	for _, raw := range testPapers {
		record, err := catalog.ParseRecord([]byte(raw))
		assert.NoError(err, "could not parse test paper")
		records = append(records, record)
		documents = append(documents, searchdb.Document{ID: strconv.FormatInt(record.ID(), 10), Text: catalog.SearchText(record)})
	}
	paperCatalog, err := catalog.New(records, cfg.GetFacetLimits())
	assert.NoError(err, "could not create catalog")

	searchDB, err := searchdb.NewInMemory(testLogger)
	assert.NoError(err, "could not create search database")
	assert.NoError(searchDB.BuildIndex(documents), "could not index test papers")
	t.Cleanup(func() {
		assert.NoError(searchDB.Close(), "could not close search database")
	})

	service, err := search.New(testLogger, paperCatalog, searchDB, search.Options{
		MaxPageSize:    cfg.GetMaxPageSize(),
		DefaultSortBy:  cfg.GetDefaultSortBy(),
		MatchCacheSize: cfg.GetMatchCacheSize(),
	})
	assert.NoError(err, "could not create search service")

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")
	gin.SetMode(gin.TestMode)
	router := gin.New()

	resolver := &fakeResolver{}
	SetupSearch(router, testLogger, service, validator, cfg.GetDefaultPageSize())
	SetupLookup(router, testLogger, resolver, validator)

	return router, resolver
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBody any, queryParams map[string]string) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		endpoint = endpoint + "?"
		for key, value := range queryParams {
			if endpoint[len(endpoint)-1] != '?' {
				endpoint = endpoint + "&"
			}
			endpoint = endpoint + key + "=" + value
		}
	}
	var jsonBody []byte
	var req *http.Request
	switch body := requestBody.(type) {
	case nil:
	case string:
		jsonBody = []byte(body)
	default:
		jsonBody, err = json.Marshal(body)
		assert.NoError(err)
	}

	slog.Info("Making test request", "method", method, "endpoint", endpoint, "headers", headers, "body", string(jsonBody))

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

func decodeResponse(assert *require.Assertions, w *httptest.ResponseRecorder) response {
	var body response
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &body), "could not decode response body: %s", w.Body.String())
	return body
}

// resultIDs extracts total and the ids of the results of a search response.
func resultIDs(assert *require.Assertions, body response) (int, []int64) {
	data, ok := body.Data.(map[string]any)
	assert.True(ok, "response data is not an object")

	results, ok := data["results"].([]any)
	assert.True(ok, "response results is not a list")

	ids := make([]int64, 0, len(results))
	for _, result := range results {
		paper, ok := result.(map[string]any)
		assert.True(ok)
		ids = append(ids, int64(paper["id"].(float64)))
	}

	return int(data["total"].(float64)), ids
}
