package searchdb

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

var testDocuments = []Document{
	{ID: "1", Text: "Graph Neural Networks for Molecules\nAda Lovelace | Alan Turing"},
	{ID: "2", Text: "Neural Radiance Fields\nGrace Hopper"},
	{ID: "3", Text: "Message passing on graphs\nThe neural tangent kernel"},
	{ID: "4", Text: "Diffusion models beat GANs"},
	{ID: "5", Text: "Scaling GPT-3.5 with LoRA"},
	{ID: "6", Text: "Why models don't generalise"},
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestIndex(assert *require.Assertions) *BleveDB {
	db, err := NewInMemory(newTestLogger())
	assert.NoError(err, "could not create index")
	assert.NoError(db.BuildIndex(testDocuments), "could not build index")
	return db
}

func sorted(ids []int64) []int64 {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var matchTestCases = []struct {
	name     string
	query    string
	expected []int64
}{
	{name: "SingleToken", query: "neural", expected: []int64{1, 2, 3}},
	{name: "TokensAreANDed", query: "graph neural", expected: []int64{1, 3}},
	{name: "TokenOrderIrrelevant", query: "neural graph", expected: []int64{1, 3}},
	{name: "CaseInsensitive", query: "GRACE", expected: []int64{2}},
	{name: "PrefixMatch", query: "diffus", expected: []int64{4}},
	{name: "StopWordsAreSearchable", query: "the", expected: []int64{3}},
	{name: "PunctuationSplitsTokens", query: "neural-radiance", expected: []int64{2}},
	{name: "DottedNumber", query: "3.5", expected: []int64{5}},
	{name: "HyphenatedVersion", query: "gpt-3.5", expected: []int64{5}},
	{name: "Apostrophe", query: "don't", expected: []int64{6}},
	{name: "AcrossRecords", query: "models", expected: []int64{4, 6}},
	{name: "NoMatch", query: "transformer", expected: []int64{}},
	{name: "OnlyPunctuation", query: "?!", expected: []int64{}},
}

func TestMatch(t *testing.T) {
	assert := require.New(t)
	db := newTestIndex(assert)
	defer db.Close()

	for _, testCase := range matchTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			ids, err := db.Match(testCase.query)
			assert.NoError(err)
			assert.Equal(testCase.expected, sorted(ids))
		})
	}
}

func TestBuildIndexInBatches(t *testing.T) {
	assert := require.New(t)
	db, err := NewInMemory(newTestLogger())
	assert.NoError(err)
	defer db.Close()

	documents := make([]Document, 0, IndexingBatchSize*2+5)
	for i := 0; i < cap(documents); i++ {
		documents = append(documents, Document{ID: itoa(i + 1), Text: "paper"})
	}
	assert.NoError(db.BuildIndex(documents))

	count, err := db.GetDocCount()
	assert.NoError(err)
	assert.Equal(uint64(len(documents)), count)

	ids, err := db.Match("paper")
	assert.NoError(err)
	assert.Len(ids, len(documents))
}

func TestPersistentIndexReopens(t *testing.T) {
	assert := require.New(t)
	indexPath := filepath.Join(t.TempDir(), "papers.bleve")

	db, err := New(newTestLogger(), indexPath)
	assert.NoError(err)
	assert.NoError(db.BuildIndex(testDocuments))
	assert.NoError(db.Close())

	db, err = New(newTestLogger(), indexPath)
	assert.NoError(err)
	defer db.Close()

	ids, err := db.Match("hopper")
	assert.NoError(err)
	assert.Equal([]int64{2}, ids)
}

func TestQueryTokens(t *testing.T) {
	assert := require.New(t)

	assert.Equal([]string{"graph", "neural"}, QueryTokens("  Graph   NEURAL "))
	assert.Equal([]string{"self", "supervised", "3d"}, QueryTokens("self-supervised 3D"))
	assert.Equal([]string{"gpt", "3.5"}, QueryTokens("GPT-3.5"))
	assert.Equal([]string{"don't"}, QueryTokens("don't"))
	assert.Empty(QueryTokens("..."))
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func TestDeleteDocuments(t *testing.T) {
	assert := require.New(t)
	db := newTestIndex(assert)
	defer db.Close()

	assert.NoError(db.DeleteDocuments([]string{"1", "3", "404"}))

	count, err := db.GetDocCount()
	assert.NoError(err)
	assert.Equal(uint64(len(testDocuments)-2), count)

	ids, err := db.Match("neural")
	assert.NoError(err)
	assert.Equal([]int64{2}, ids)
}
