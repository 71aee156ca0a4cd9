package metadata

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is a persistent entity-metadata cache backed by SQLite. It lets a
// workstation keep resolved plural names across simulator runs instead of
// re-resolving (or falling back to naive pluralization) every time.
//
// Store implements Resolver.
type Store struct {
	db *sql.DB
}

// OpenStore creates or opens a SQLite metadata cache at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent read access
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to metadata store: %w", err)
	}

	// SQLite supports one writer at a time; keep the pool at one connection
	// to avoid SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Resolve implements Resolver against the persisted cache.
func (s *Store) Resolve(ctx context.Context, logicalName string) (EntityMetadata, error) {
	name := strings.ToLower(strings.TrimSpace(logicalName))
	var md EntityMetadata
	err := s.db.QueryRowContext(ctx,
		`SELECT logical_name, collection_name FROM entity_metadata WHERE logical_name = ?`,
		name,
	).Scan(&md.LogicalName, &md.CollectionName)
	if errors.Is(err, sql.ErrNoRows) {
		return EntityMetadata{}, fmt.Errorf("%w: %s", ErrNotFound, logicalName)
	}
	if err != nil {
		return EntityMetadata{}, fmt.Errorf("query metadata for %s: %w", logicalName, err)
	}
	return md, nil
}

// Put writes or replaces the cached entry for an entity.
func (s *Store) Put(ctx context.Context, md EntityMetadata) error {
	name := strings.ToLower(strings.TrimSpace(md.LogicalName))
	if name == "" {
		return fmt.Errorf("logical name must be non-empty")
	}
	if md.CollectionName == "" {
		return fmt.Errorf("collection name must be non-empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entity_metadata (logical_name, collection_name)
		 VALUES (?, ?)
		 ON CONFLICT(logical_name) DO UPDATE SET
		   collection_name = excluded.collection_name,
		   resolved_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`,
		name, md.CollectionName,
	)
	if err != nil {
		return fmt.Errorf("put metadata for %s: %w", name, err)
	}
	return nil
}

// List returns all cached entries ordered by logical name.
func (s *Store) List(ctx context.Context) ([]EntityMetadata, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT logical_name, collection_name FROM entity_metadata ORDER BY logical_name`)
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}
	defer rows.Close()

	var out []EntityMetadata
	for rows.Next() {
		var md EntityMetadata
		if err := rows.Scan(&md.LogicalName, &md.CollectionName); err != nil {
			return nil, fmt.Errorf("scan metadata row: %w", err)
		}
		out = append(out, md)
	}
	return out, rows.Err()
}
