package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/paperdex/db/kvdb"
	"github.com/meghashyamc/paperdex/db/searchdb"
	"github.com/meghashyamc/paperdex/logger"
	"github.com/meghashyamc/paperdex/services/catalog"
	"golang.org/x/sync/errgroup"
)

// Indexer represents the search database operations needed for index creation
type Indexer interface {
	BuildIndex(documents []searchdb.Document) error
	DeleteDocuments(documentIDs []string) error
}

// RecordStore is the key/value store holding papers and build metadata.
type RecordStore interface {
	Set(bucket string, key string, value string) error
	SetBatch(bucket string, entries map[string]string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	GetAllKeys(bucket string) ([]string, error)
	ForEach(bucket string, fn func(key string, value []byte) error) error
}

const (
	storeBatchSize           = 500
	maxGoRoutinesForIndexing = 8
)

type Service struct {
	logger  logger.Logger
	store   RecordStore
	indexer Indexer
}

func New(logger logger.Logger, store RecordStore, indexer Indexer) *Service {
	return &Service{logger: logger, store: store, indexer: indexer}
}

// Build replaces the stored catalog with the papers read from path. Papers
// left over from an earlier build are removed from both stores.
func (s *Service) Build(ctx context.Context, path string, format Format) (*kvdb.BuildMetadata, error) {
	records, err := s.readRecords(ctx, path, format)
	if err != nil {
		return nil, err
	}

	// catalog.New rejects duplicate ids
	if _, err := catalog.New(records, nil); err != nil {
		s.logger.Error("invalid catalog", "path", path, "err", err.Error())
		return nil, err
	}

	if err := s.removeStaleRecords(records); err != nil {
		return nil, err
	}

	s.logger.Info("building index of papers...", "count", len(records))
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.storeRecords(groupCtx, records)
	})
	group.Go(func() error {
		return s.indexRecords(groupCtx, records)
	})
	if err := group.Wait(); err != nil {
		s.logger.Error("failed to build index", "err", err.Error())
		return nil, err
	}

	metadata := &kvdb.BuildMetadata{
		BuildID:     uuid.NewString(),
		BuiltAt:     time.Now().UTC(),
		RecordCount: len(records),
		Source:      path,
	}
	if err := s.setBuildMetadata(metadata); err != nil {
		return nil, err
	}
	s.logger.Info("finished building index successfully!", "build_id", metadata.BuildID, "count", metadata.RecordCount)

	return metadata, nil
}

func (s *Service) removeStaleRecords(records []catalog.Record) error {
	current := make(map[string]struct{}, len(records))
	for _, record := range records {
		current[recordKey(record.ID())] = struct{}{}
	}

	existingKeys, err := s.store.GetAllKeys(kvdb.PapersBucket)
	if err != nil {
		s.logger.Error("failed to get all keys from database", "err", err.Error())
		return fmt.Errorf("failed to get all keys from database: %w", err)
	}

	var staleKeys []string
	for _, key := range existingKeys {
		if _, ok := current[key]; !ok {
			staleKeys = append(staleKeys, key)
		}
	}
	if len(staleKeys) == 0 {
		return nil
	}

	s.logger.Info("removing stale papers from index", "stale_papers", len(staleKeys))
	if err := s.indexer.DeleteDocuments(staleKeys); err != nil {
		s.logger.Error("failed to delete documents from search index", "err", err.Error())
		return fmt.Errorf("failed to delete documents from search index: %w", err)
	}
	for _, key := range staleKeys {
		if err := s.store.Delete(kvdb.PapersBucket, key); err != nil {
			s.logger.Error("failed to delete stale paper", "key", key, "err", err.Error())
			return err
		}
	}

	return nil
}

func (s *Service) storeRecords(ctx context.Context, records []catalog.Record) error {
	for start := 0; start < len(records); start += storeBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := records[start:min(start+storeBatchSize, len(records))]
		entries := make(map[string]string, len(batch))
		for _, record := range batch {
			data, err := json.Marshal(record)
			if err != nil {
				s.logger.Error("failed to marshal paper", "id", record.ID(), "err", err.Error())
				return fmt.Errorf("failed to marshal paper %d: %w", record.ID(), err)
			}
			entries[recordKey(record.ID())] = string(data)
		}

		if err := s.store.SetBatch(kvdb.PapersBucket, entries); err != nil {
			s.logger.Error("failed to store papers", "err", err.Error())
			return err
		}
		s.logger.Debug("stored papers", "count", fmt.Sprintf("%d/%d", start+len(batch), len(records)))
	}

	return nil
}

func (s *Service) indexRecords(ctx context.Context, records []catalog.Record) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxGoRoutinesForIndexing)

	for start := 0; start < len(records); start += searchdb.IndexingBatchSize {
		batch := records[start:min(start+searchdb.IndexingBatchSize, len(records))]
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			documents := make([]searchdb.Document, 0, len(batch))
			for _, record := range batch {
				documents = append(documents, searchdb.Document{ID: recordKey(record.ID()), Text: catalog.SearchText(record)})
			}
			if err := s.indexer.BuildIndex(documents); err != nil {
				s.logger.Error("failed to index papers", "first_id", batch[0].ID(), "err", err.Error())
				return err
			}
			return nil
		})
	}

	return group.Wait()
}

func (s *Service) setBuildMetadata(metadata *kvdb.BuildMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		s.logger.Error("failed to marshal build metadata", "err", err.Error())
		return fmt.Errorf("failed to marshal build metadata: %w", err)
	}

	if err := s.store.Set(kvdb.MetaBucket, kvdb.BuildMetadataKey, string(data)); err != nil {
		s.logger.Error("failed to set build metadata", "err", err.Error())
		return err
	}

	return nil
}

// LastBuild returns the metadata of the most recent build, or nil when the
// store has never been built.
func LastBuild(store RecordStore) (*kvdb.BuildMetadata, error) {
	value, err := store.Get(kvdb.MetaBucket, kvdb.BuildMetadataKey)
	if errors.Is(err, kvdb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var metadata kvdb.BuildMetadata
	if err := json.Unmarshal([]byte(value), &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal build metadata: %w", err)
	}
	return &metadata, nil
}

// LoadCatalog reads every stored paper into an immutable catalog.
func LoadCatalog(store RecordStore, facetLimits map[string]int) (*catalog.Catalog, error) {
	var records []catalog.Record
	err := store.ForEach(kvdb.PapersBucket, func(key string, value []byte) error {
		record, err := catalog.ParseRecord(value)
		if err != nil {
			return fmt.Errorf("paper %s: %w", key, err)
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return catalog.New(records, facetLimits)
}

func recordKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
