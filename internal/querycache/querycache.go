// Package querycache persists bean-query output between runs in a bbolt
// file. Entries are keyed by query text and invalidated when any ledger
// file changes or their TTL passes.
package querycache

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrMiss is returned by Get when no fresh entry exists.
var ErrMiss = errors.New("query cache miss")

const bucketQueries = "queries"

// Entry is a cached query result.
type Entry struct {
	Output        string    `json:"output"`
	LedgerModTime time.Time `json:"ledger_mod_time"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Cache wraps a bbolt database.
type Cache struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens (or creates) the cache file at path.
func Open(path string, ttl time.Duration) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening query cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketQueries)); err != nil {
			return fmt.Errorf("creating bucket %s: %w", bucketQueries, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached output for query if it was stored against the
// same ledger modification time and has not expired. Stale entries are
// removed.
func (c *Cache) Get(query string, ledgerModTime time.Time) (string, error) {
	key := Key(query)
	var out string
	stale := false

	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketQueries)).Get(key)
		if data == nil {
			return ErrMiss
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			stale = true
			return ErrMiss
		}
		if !e.LedgerModTime.Equal(ledgerModTime) || !c.now().Before(e.ExpiresAt) {
			stale = true
			return ErrMiss
		}
		out = e.Output
		return nil
	})

	if stale {
		if derr := c.delete(key); derr != nil {
			return "", derr
		}
	}
	return out, err
}

// Put stores output for query.
func (c *Cache) Put(query string, ledgerModTime time.Time, output string) error {
	data, err := json.Marshal(Entry{
		Output:        output,
		LedgerModTime: ledgerModTime,
		ExpiresAt:     c.now().Add(c.ttl),
	})
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketQueries)).Put(Key(query), data)
	})
}

// Purge removes every entry.
func (c *Cache) Purge() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketQueries)); err != nil {
			return fmt.Errorf("deleting bucket: %w", err)
		}
		_, err := tx.CreateBucket([]byte(bucketQueries))
		return err
	})
}

// Len returns the number of stored entries.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bucketQueries)).Stats().KeyN
		return nil
	})
	return n, err
}

func (c *Cache) delete(key []byte) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketQueries)).Delete(key)
	})
}

// Key hashes a query into its bucket key.
func Key(query string) []byte {
	sum := sha256.Sum256([]byte(query))
	return sum[:]
}
