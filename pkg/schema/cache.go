package schema

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CacheFormatVersion is bumped whenever the on-disk cache layout changes.
// Loading a cache written with a different version fails instead of
// guessing.
const CacheFormatVersion = "1.0"

// CachedSnapshot is a schema snapshot together with its cache metadata.
type CachedSnapshot struct {
	CacheFormatVersion string
	GeneratedAt        string
	Snapshot           *SchemaSnapshot
}

// cacheFile is the JSON layout of the cache: the snapshot fields flattened
// alongside the cache metadata, map keys sorted by encoding/json.
type cacheFile struct {
	CacheFormatVersion string                 `json:"cache_format_version"`
	GeneratedAt        string                 `json:"generated_at"`
	Database           string                 `json:"database"`
	Schemas            map[string]*SchemaInfo `json:"schemas"`
}

// SaveCache writes the snapshot to cachePath as versioned JSON, creating
// parent directories as needed.
func SaveCache(cachePath string, snapshot *SchemaSnapshot) (*CachedSnapshot, error) {
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}

	cached := &CachedSnapshot{
		CacheFormatVersion: CacheFormatVersion,
		GeneratedAt:        time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Snapshot:           snapshot,
	}
	payload := cacheFile{
		CacheFormatVersion: cached.CacheFormatVersion,
		GeneratedAt:        cached.GeneratedAt,
		Database:           snapshot.Database,
		Schemas:            snapshot.Schemas,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode schema cache")
	}
	if err := os.WriteFile(cachePath, append(data, '\n'), 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write schema cache file")
	}
	return cached, nil
}

// LoadCache reads and validates a cache file written by SaveCache. Names
// held in map keys are rehydrated onto the model structs.
func LoadCache(cachePath string) (*CachedSnapshot, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("schema cache file does not exist: %s", cachePath)
		}
		return nil, errors.Wrap(err, "failed to read schema cache file")
	}

	var payload cacheFile
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Wrap(err, "schema cache file is not valid JSON")
	}
	if payload.CacheFormatVersion != CacheFormatVersion {
		return nil, errors.Errorf(
			"unsupported schema cache format version: %q, expected %q",
			payload.CacheFormatVersion, CacheFormatVersion,
		)
	}
	if strings.TrimSpace(payload.GeneratedAt) == "" {
		return nil, errors.New("schema cache is missing a valid 'generated_at' value")
	}
	if strings.TrimSpace(payload.Database) == "" {
		return nil, errors.New("cached schema is missing a valid 'database' field")
	}
	if payload.Schemas == nil {
		return nil, errors.New("cached schema is missing a valid 'schemas' object")
	}

	snapshot := &SchemaSnapshot{Database: payload.Database, Schemas: payload.Schemas}
	for schemaName, schemaInfo := range snapshot.Schemas {
		if schemaInfo == nil {
			return nil, errors.Errorf("schema %q has invalid structure", schemaName)
		}
		schemaInfo.Name = schemaName
		for tableName, table := range schemaInfo.Tables {
			if table == nil {
				return nil, errors.Errorf("table %q.%q is invalid", schemaName, tableName)
			}
			table.Schema = schemaName
			table.Name = tableName
			for columnName, column := range table.Columns {
				if column == nil {
					return nil, errors.Errorf("column %q.%q.%q is invalid", schemaName, tableName, columnName)
				}
				column.Name = columnName
			}
			for _, fk := range table.ForeignKeys {
				if len(fk.Columns) != len(fk.References.Columns) {
					return nil, errors.Errorf(
						"table %q.%q foreign key %q has mismatched column lists",
						schemaName, tableName, fk.Name,
					)
				}
			}
		}
	}

	return &CachedSnapshot{
		CacheFormatVersion: payload.CacheFormatVersion,
		GeneratedAt:        payload.GeneratedAt,
		Snapshot:           snapshot,
	}, nil
}

// RefreshCache introspects the database and persists the result.
func RefreshCache(ctx context.Context, dsn, cachePath, defaultSchema string, includeSchemas []string) (*CachedSnapshot, error) {
	snapshot, err := Introspect(ctx, dsn, defaultSchema, includeSchemas)
	if err != nil {
		return nil, err
	}
	return SaveCache(cachePath, snapshot)
}
