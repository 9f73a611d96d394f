package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meghashyamc/paperdex/services/catalog"
	_ "modernc.org/sqlite"
)

type Format string

const (
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"

	sqliteDriverName = "sqlite"
	resultsKey       = "results"
)

var ErrUnexpectedStructure = errors.New("unexpected source structure")

// ParseFormat resolves a format name. An empty name or "auto" picks the
// format from the file extension of path.
func ParseFormat(name string, path string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		switch strings.ToLower(filepath.Ext(path)) {
		case ".db", ".sqlite", ".sqlite3":
			return FormatSQLite, nil
		default:
			return FormatJSON, nil
		}
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatSQLite):
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("unknown source format %q", name)
}

func (s *Service) readRecords(ctx context.Context, path string, format Format) ([]catalog.Record, error) {
	switch format {
	case FormatJSON:
		return s.readJSON(path)
	case FormatSQLite:
		return s.readSQLite(ctx, path)
	}
	return nil, fmt.Errorf("unknown source format %q", format)
}

// readJSON reads an OpenReview export: an object whose "results" key holds
// the list of papers.
func (s *Service) readJSON(path string) ([]catalog.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		s.logger.Error("could not open source file", "path", path, "err", err.Error())
		return nil, err
	}
	defer file.Close()

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(file).Decode(&payload); err != nil {
		s.logger.Error("could not decode source file", "path", path, "err", err.Error())
		return nil, fmt.Errorf("%w: expected an object with a '%s' list: %v", ErrUnexpectedStructure, resultsKey, err)
	}

	rawResults, ok := payload[resultsKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing top-level '%s' list", ErrUnexpectedStructure, resultsKey)
	}

	var rawRecords []json.RawMessage
	if err := json.Unmarshal(rawResults, &rawRecords); err != nil || rawRecords == nil {
		return nil, fmt.Errorf("%w: '%s' must be a list", ErrUnexpectedStructure, resultsKey)
	}
	s.logger.Info("loaded paper entries", "path", path, "count", len(rawRecords))

	records := make([]catalog.Record, 0, len(rawRecords))
	for i, raw := range rawRecords {
		record, err := catalog.ParseRecord(raw)
		if err != nil {
			s.logger.Error("invalid paper entry", "position", i, "err", err.Error())
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		records = append(records, record)
	}

	return records, nil
}

// readSQLite reads the papers table of a legacy database, trusting the id
// column over any id inside raw_json.
func (s *Service) readSQLite(ctx context.Context, path string) ([]catalog.Record, error) {
	if _, err := os.Stat(path); err != nil {
		s.logger.Error("could not find source database", "path", path, "err", err.Error())
		return nil, err
	}

	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		s.logger.Error("could not open source database", "path", path, "err", err.Error())
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT id, raw_json FROM papers ORDER BY id")
	if err != nil {
		s.logger.Error("could not query papers", "path", path, "err", err.Error())
		return nil, fmt.Errorf("could not query papers: %w", err)
	}
	defer rows.Close()

	var records []catalog.Record
	for rows.Next() {
		var id int64
		var rawJSON sql.NullString
		if err := rows.Scan(&id, &rawJSON); err != nil {
			return nil, fmt.Errorf("could not scan paper row: %w", err)
		}
		if !rawJSON.Valid {
			return nil, fmt.Errorf("paper %d has no raw_json", id)
		}

		decoder := json.NewDecoder(strings.NewReader(rawJSON.String))
		decoder.UseNumber()
		values := map[string]any{}
		if err := decoder.Decode(&values); err != nil {
			return nil, fmt.Errorf("paper %d: failed to decode raw_json: %w", id, err)
		}
		values[catalog.FieldID] = id

		record, err := catalog.FromMap(values)
		if err != nil {
			return nil, fmt.Errorf("paper %d: %w", id, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read papers: %w", err)
	}
	s.logger.Info("loaded paper rows", "path", path, "count", len(records))

	return records, nil
}
