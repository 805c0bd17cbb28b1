package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages named cache stores backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// StoreInfo summarizes one named store for listings.
type StoreInfo struct {
	Name      string
	Entries   int
	SizeBytes int64
	CreatedAt time.Time
}

// Open initializes or connects to the cache database at path and
// applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// EnsureStore creates the named store if it does not exist yet.
func (s *Store) EnsureStore(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("store name is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO stores (name, created_at) VALUES (?, ?)`,
		name, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("ensure store %q: %w", name, err)
	}
	return nil
}

// DeleteStore removes the named store and all of its entries.
func (s *Store) DeleteStore(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stores WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete store %q: %w", name, err)
	}
	return nil
}

// ListStores returns the names of all stores in creation order.
func (s *Store) ListStores(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM stores ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan store name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Describe returns summary information for every store.
func (s *Store) Describe(ctx context.Context) ([]StoreInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT s.name, s.created_at,
               COUNT(e.url), COALESCE(SUM(LENGTH(e.body)), 0)
        FROM stores s
        LEFT JOIN entries e ON e.store = s.name
        GROUP BY s.name
        ORDER BY s.created_at, s.name`)
	if err != nil {
		return nil, fmt.Errorf("describe stores: %w", err)
	}
	defer rows.Close()

	var infos []StoreInfo
	for rows.Next() {
		var info StoreInfo
		var created string
		if err := rows.Scan(&info.Name, &created, &info.Entries, &info.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan store info: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
			info.CreatedAt = ts
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Put stores an entry in the named store, replacing any previous entry
// for the same URL. The store must already exist.
func (s *Store) Put(ctx context.Context, store string, entry Entry) error {
	if strings.TrimSpace(entry.URL) == "" {
		return errors.New("entry URL is empty")
	}
	headers, err := encodeHeader(entry.Header)
	if err != nil {
		return err
	}
	fetchedAt := entry.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO entries (store, url, status, headers, body, fetched_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		store, entry.URL, entry.Status, string(headers), entry.Body,
		fetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put %q into %q: %w", entry.URL, store, err)
	}
	return nil
}

// Get returns the entry for url in the named store.
func (s *Store) Get(ctx context.Context, store, url string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT status, headers, body, fetched_at FROM entries WHERE store = ? AND url = ?`,
		store, url,
	)
	return scanEntry(row, url)
}

// Lookup searches the given stores in order and returns the first match.
func (s *Store) Lookup(ctx context.Context, stores []string, url string) (Entry, bool, error) {
	for _, name := range stores {
		entry, found, err := s.Get(ctx, name, url)
		if err != nil {
			return Entry{}, false, err
		}
		if found {
			return entry, true, nil
		}
	}
	return Entry{}, false, nil
}

// Keys returns all entry URLs in the named store, sorted.
func (s *Store) Keys(ctx context.Context, store string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url FROM entries WHERE store = ? ORDER BY url`, store)
	if err != nil {
		return nil, fmt.Errorf("list keys in %q: %w", store, err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// Count returns the number of entries in the named store.
func (s *Store) Count(ctx context.Context, store string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM entries WHERE store = ?`, store).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count entries in %q: %w", store, err)
	}
	return count, nil
}

// Entries returns all entries in the named store ordered by URL, with
// bodies included.
func (s *Store) Entries(ctx context.Context, store string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, status, headers, body, fetched_at FROM entries WHERE store = ? ORDER BY url`, store)
	if err != nil {
		return nil, fmt.Errorf("list entries in %q: %w", store, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var headers string
		var fetched string
		if err := rows.Scan(&entry.URL, &entry.Status, &headers, &entry.Body, &fetched); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if entry.Header, err = decodeHeader([]byte(headers)); err != nil {
			return nil, err
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, fetched); parseErr == nil {
			entry.FetchedAt = ts
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(row *sql.Row, url string) (Entry, bool, error) {
	var entry Entry
	var headers string
	var fetched string
	err := row.Scan(&entry.Status, &headers, &entry.Body, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("scan entry %q: %w", url, err)
	}
	entry.URL = url
	if entry.Header, err = decodeHeader([]byte(headers)); err != nil {
		return Entry{}, false, err
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, fetched); parseErr == nil {
		entry.FetchedAt = ts
	}
	return entry, true, nil
}
