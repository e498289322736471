package schema

import (
	"database/sql"
	"encoding/json"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// cacheEntries bounds the in-memory backend. A run touches at most a few
// hundred files, so the cap is a guard against pathological inputs rather
// than a tuning knob.
const cacheEntries = 1024

// Cache maps file fingerprints to discovered mappings so unchanged files
// never hit the oracle twice. The default backend is an in-process LRU;
// setting SCHEMA_CACHE_PG_DSN selects a Postgres backend shared across runs,
// with the LRU kept in front as a read-through layer.
type Cache struct {
	db *sql.DB

	mem *lru.Cache[string, Mapping]

	schemaOnce sync.Once
	schemaErr  error
}

func NewCache() *Cache {
	mem, _ := lru.New[string, Mapping](cacheEntries)
	return &Cache{mem: mem}
}

func NewPostgres(dsn string) (*Cache, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	mem, _ := lru.New[string, Mapping](cacheEntries)
	return &Cache{db: db, mem: mem}, nil
}

// NewFromEnv picks the Postgres backend when SCHEMA_CACHE_PG_DSN is set and
// reachable, otherwise the in-memory one.
func NewFromEnv() *Cache {
	dsn := strings.TrimSpace(os.Getenv("SCHEMA_CACHE_PG_DSN"))
	if dsn == "" {
		return NewCache()
	}
	c, err := NewPostgres(dsn)
	if err != nil {
		return NewCache()
	}
	return c
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) Get(fp Fingerprint) (Mapping, bool) {
	if c == nil {
		return Mapping{}, false
	}
	key := fp.Key()
	if m, ok := c.mem.Get(key); ok {
		return m, true
	}
	if c.db == nil {
		return Mapping{}, false
	}
	if c.ensureSchema() != nil {
		return Mapping{}, false
	}
	var raw []byte
	err := c.db.QueryRow(`SELECT mapping FROM schema_mappings WHERE fingerprint = $1`, key).Scan(&raw)
	if err != nil {
		return Mapping{}, false
	}
	var m Mapping
	if json.Unmarshal(raw, &m) != nil {
		return Mapping{}, false
	}
	c.mem.Add(key, m)
	return m, true
}

func (c *Cache) Put(fp Fingerprint, m Mapping) {
	if c == nil {
		return
	}
	key := fp.Key()
	c.mem.Add(key, m)
	if c.db == nil {
		return
	}
	if c.ensureSchema() != nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	// Best effort: a failed write only costs a future oracle call.
	_, _ = c.db.Exec(`
		INSERT INTO schema_mappings (fingerprint, mapping)
		VALUES ($1, $2)
		ON CONFLICT (fingerprint) DO UPDATE SET mapping = EXCLUDED.mapping`,
		key, raw)
}

func (c *Cache) ensureSchema() error {
	c.schemaOnce.Do(func() {
		_, c.schemaErr = c.db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_mappings (
				fingerprint TEXT PRIMARY KEY,
				mapping     JSONB NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
			)`)
	})
	return c.schemaErr
}
