package searchdb

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/meghashyamc/paperdex/logger"
)

const IndexingBatchSize = 100

const (
	indexFieldText = "text"

	// catalogTextAnalyzer splits on unicode word boundaries and lowercases,
	// without stemming or stop word removal, so every word stays searchable.
	catalogTextAnalyzer = "catalog_text"
)

// defaultQueryAnalyzer is the catalog text analyzer outside of any open index.
var defaultQueryAnalyzer = sync.OnceValue(func() analysis.Analyzer {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil
	}
	return indexMapping.AnalyzerNamed(catalogTextAnalyzer)
})

type BleveDB struct {
	indexPath string
	logger    logger.Logger
	index     bleve.Index
}

// New opens the index at indexPath, creating it when it does not exist yet.
func New(logger logger.Logger, indexPath string) (*BleveDB, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		logger.Error("could not create index mapping", "err", err.Error())
		return nil, err
	}
	index, err := bleve.New(indexPath, indexMapping)
	if err != nil {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Error("could not open index", "path", indexPath, "err", err.Error())
			return nil, err
		}
	}
	return &BleveDB{indexPath: indexPath, logger: logger, index: index}, nil
}

// NewInMemory creates an index that lives only as long as the process.
func NewInMemory(logger logger.Logger) (*BleveDB, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		logger.Error("could not create index mapping", "err", err.Error())
		return nil, err
	}
	index, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		logger.Error("could not create in-memory index", "err", err.Error())
		return nil, err
	}
	return &BleveDB{logger: logger, index: index}, nil
}

func (b *BleveDB) BuildIndex(documents []Document) error {

	batch := b.index.NewBatch()

	for i, doc := range documents {

		err := batch.Index(doc.ID, doc)
		if err != nil {
			b.logger.Error("could not index document", "id", doc.ID, "err", err.Error())
			return err
		}

		// Execute batch when it reaches the batch size
		if (i+1)%IndexingBatchSize == 0 {
			err = b.index.Batch(batch)
			if err != nil {
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not index document", "err", err.Error())
			return err
		}
	}

	return nil
}

func createIndexMapping() (mapping.IndexMapping, error) {

	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(catalogTextAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("could not register analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = catalogTextAnalyzer

	docMapping := bleve.NewDocumentMapping()

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = catalogTextAnalyzer
	textFieldMapping.Store = false // records are served from the record store
	textFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(indexFieldText, textFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Index = false
	idFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping, nil
}

// Match returns the ids of every document containing all tokens of
// queryString, each as a prefix of some indexed word. A query without any
// word characters matches nothing. Ids come back in no particular order.
func (b *BleveDB) Match(queryString string) ([]int64, error) {
	tokens := analyzeQuery(b.index.Mapping().AnalyzerNamed(catalogTextAnalyzer), queryString)
	if len(tokens) == 0 {
		return []int64{}, nil
	}

	docCount, err := b.index.DocCount()
	if err != nil {
		b.logger.Error("could not count documents", "err", err.Error())
		return nil, fmt.Errorf("could not count documents: %w", err)
	}
	if docCount == 0 {
		return []int64{}, nil
	}

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(tokens), int(docCount), 0, false)
	searchResult, err := b.index.Search(searchRequest)
	if err != nil {
		b.logger.Error("search failed", "err", err.Error())
		return nil, fmt.Errorf("search failed: %w", err)
	}

	ids := make([]int64, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			b.logger.Warn("skipping document with non-numeric id", "id", hit.ID)
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func buildSearchQuery(tokens []string) query.Query {
	conjunctQuery := bleve.NewConjunctionQuery()
	for _, token := range tokens {
		prefixQuery := bleve.NewPrefixQuery(token)
		prefixQuery.SetField(indexFieldText)
		conjunctQuery.AddQuery(prefixQuery)
	}

	return conjunctQuery
}

// QueryTokens splits queryString into the lowercased terms the index stores,
// so "GPT-3.5" yields "gpt" and "3.5".
func QueryTokens(queryString string) []string {
	return analyzeQuery(defaultQueryAnalyzer(), queryString)
}

func analyzeQuery(analyzer analysis.Analyzer, queryString string) []string {
	if analyzer == nil {
		return nil
	}

	tokenStream := analyzer.Analyze([]byte(queryString))
	tokens := make([]string, 0, len(tokenStream))
	for _, token := range tokenStream {
		tokens = append(tokens, string(token.Term))
	}

	return tokens
}

func (b *BleveDB) DeleteDocuments(documentIDs []string) error {
	batch := b.index.NewBatch()

	for i, docID := range documentIDs {
		batch.Delete(docID)

		if (i+1)%IndexingBatchSize == 0 {
			if err := b.index.Batch(batch); err != nil {
				b.logger.Error("could not delete documents", "err", err.Error())
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not delete documents", "err", err.Error())
			return err
		}
	}

	return nil
}

func (b *BleveDB) GetDocCount() (uint64, error) {
	return b.index.DocCount()
}

func (b *BleveDB) Close() error {

	if b.index != nil {
		if err := b.index.Close(); err != nil {
			b.logger.Error("could not close search index", "err", err.Error())
			return err
		}
	}
	return nil
}
