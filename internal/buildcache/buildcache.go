// Package buildcache stores rendered IR keyed by a hash of the source, so
// unchanged programs skip code generation entirely. The store is a single
// sqlite database inside the cache directory; every stored entry gets a
// build ID for traceability.
package buildcache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	source_hash TEXT PRIMARY KEY,
	build_id    TEXT NOT NULL,
	ir          TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
`

// Cache is a content-addressed store of compiled modules.
type Cache struct {
	db *sql.DB
}

// Entry is one cached build.
type Entry struct {
	BuildID   string
	IR        string
	CreatedAt time.Time
}

// Open opens (creating if needed) the cache database under dir.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "build.db"))
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Key hashes source code into the cache key.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached entry for the key, or nil when absent.
func (c *Cache) Get(key string) (*Entry, error) {
	var e Entry
	var created int64
	err := c.db.QueryRow(
		"SELECT build_id, ir, created_at FROM builds WHERE source_hash = ?", key,
	).Scan(&e.BuildID, &e.IR, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	e.CreatedAt = time.Unix(created, 0)
	return &e, nil
}

// Put stores rendered IR under the key, replacing any previous build, and
// returns the new build ID.
func (c *Cache) Put(key, irText string) (string, error) {
	buildID := uuid.NewString()
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO builds (source_hash, build_id, ir, created_at) VALUES (?, ?, ?, ?)",
		key, buildID, irText, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("cache store: %w", err)
	}
	return buildID, nil
}

// Prune removes entries older than maxAge and returns how many were
// deleted.
func (c *Cache) Prune(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := c.db.Exec("DELETE FROM builds WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	return res.RowsAffected()
}
