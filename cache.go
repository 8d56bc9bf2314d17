package sheetdb

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoaderFunc performs a bulk read of one table.
type LoaderFunc func(ctx context.Context) ([]*Record, error)

type cacheEntry struct {
	records []*Record
	expires time.Time
}

// CacheStats describes the cached state of one table.
type CacheStats struct {
	Present bool
	Valid   bool
	Rows    int
	Expires time.Time
}

// Cache holds the last bulk read of each table for a fixed TTL.
//
// An entry is absent, valid, or stale. Stale entries are kept so that a
// failed refresh can fall back to them. Entries always hold records exactly
// as the gateway returned them; callers must not modify returned records.
// Concurrent refreshes of one table share a single load.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	gens    map[string]uint64 // bumped on invalidation
	epoch   uint64            // bumped by InvalidateAll
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	group   singleflight.Group
}

// NewCache creates a cache whose entries live for ttl.
func NewCache(ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		gens:    make(map[string]uint64),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// GetOrRefresh returns the cached rows of table while they are valid and
// otherwise calls load. When load fails and a stale entry exists, the stale
// rows are returned with a nil error. With no entry at all the load error is
// returned.
func (c *Cache) GetOrRefresh(ctx context.Context, table string, load LoaderFunc) ([]*Record, error) {
	if records, ok := c.valid(table); ok {
		return records, nil
	}

	gen := c.generation(table)
	key := table + "#" + gen.String()
	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		if records, ok := c.valid(table); ok {
			return records, nil
		}

		records, err := load(ctx)
		if err != nil {
			c.mu.RLock()
			entry := c.entries[table]
			c.mu.RUnlock()
			if entry != nil {
				c.logger.Warn("serving stale rows after refresh failure",
					"table", table, "rows", len(entry.records), "error", err)
				return entry.records, nil
			}
			return nil, err
		}
		if records == nil {
			records = []*Record{}
		}

		c.store(table, gen, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*Record), nil
}

// Refresh calls load unconditionally and replaces the entry of table with
// its rows. On failure the existing entry, valid or stale, is left alone and
// the error is returned.
func (c *Cache) Refresh(ctx context.Context, table string, load LoaderFunc) error {
	gen := c.generation(table)
	_, err, _ := c.group.Do("refresh:"+table, func() (interface{}, error) {
		records, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []*Record{}
		}
		c.store(table, gen, records)
		return nil, nil
	})
	return err
}

// genStamp identifies the invalidation state a load started from.
type genStamp struct {
	table, epoch uint64
}

func (g genStamp) String() string {
	return strconv.FormatUint(g.epoch, 10) + "." + strconv.FormatUint(g.table, 10)
}

func (c *Cache) generation(table string) genStamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return genStamp{table: c.gens[table], epoch: c.epoch}
}

// store saves records loaded from gen unless an invalidation happened during
// the load, since the rows may then predate a write.
func (c *Cache) store(table string, gen genStamp, records []*Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[table] != gen.table || c.epoch != gen.epoch {
		return
	}
	c.entries[table] = &cacheEntry{records: records, expires: c.now().Add(c.ttl)}
}

func (c *Cache) valid(table string) ([]*Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[table]
	if !ok || !c.now().Before(entry.expires) {
		return nil, false
	}
	return entry.records, true
}

// Invalidate drops the entry of table unconditionally.
func (c *Cache) Invalidate(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, table)
	c.gens[table]++
}

// InvalidateAll drops every entry, including ones whose load is in flight.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.entries = make(map[string]*cacheEntry)
}

// Stats reports the cached state of table.
func (c *Cache) Stats(table string) CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[table]
	if !ok {
		return CacheStats{}
	}
	return CacheStats{
		Present: true,
		Valid:   c.now().Before(entry.expires),
		Rows:    len(entry.records),
		Expires: entry.expires,
	}
}

// Tables returns the names of tables with an entry, sorted.
func (c *Cache) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tables := make([]string, 0, len(c.entries))
	for t := range c.entries {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}
