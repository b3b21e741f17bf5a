// Package probecache persistently memoizes encoder.Encoder.Probe
// results, keyed on a source file's path, size and modification time,
// so repeated CLI invocations against an unchanged asset don't respawn
// the encoder just to re-read metadata it already reported.
//
// Modeled on nvr's pkg/log/db.go: one bbolt bucket per schema version,
// JSON-encoded values, opened once and reused for the process lifetime.
package probecache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"edv/pkg/encoder"
)

const bucketVersion = "1"

// Cache is a persistent (path, size, mtime) -> encoder.MediaInfo store.
type Cache struct {
	db *bolt.DB
}

// Open opens (creating if needed) the bbolt file at path and its bucket.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("probecache: open database %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketVersion))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("probecache: create bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// entry is the JSON-encoded cache payload.
type entry struct {
	Info encoder.MediaInfo
}

func key(path string, size int64, modTime time.Time) []byte {
	return []byte(fmt.Sprintf("%s\x00%d\x00%d", path, size, modTime.UnixNano()))
}

// Lookup returns the cached MediaInfo for path if a stat of path still
// matches the size and mtime the entry was stored under, so a file
// rewritten in place invalidates its own cache entry.
func (c *Cache) Lookup(path string) (encoder.MediaInfo, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return encoder.MediaInfo{}, false, fmt.Errorf("probecache: stat %s: %w", path, err)
	}
	k := key(path, info.Size(), info.ModTime())

	var found entry
	ok := false
	err = c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketVersion)).Get(k)
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &found); err != nil {
			return fmt.Errorf("unmarshal entry: %w", err)
		}
		ok = true
		return nil
	})
	if err != nil {
		return encoder.MediaInfo{}, false, err
	}
	return found.Info, ok, nil
}

// Store records info as the probe result for path under its current
// size and mtime.
func (c *Cache) Store(path string, info encoder.MediaInfo) error {
	stat, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("probecache: stat %s: %w", path, err)
	}
	k := key(path, stat.Size(), stat.ModTime())
	value, err := json.Marshal(entry{Info: info})
	if err != nil {
		return fmt.Errorf("probecache: marshal entry: %w", err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketVersion)).Put(k, value)
	})
}

// Probe wraps enc.Probe with the cache: a hit against the current
// (size, mtime) of path is returned without invoking the encoder; a
// miss invokes it and stores the result before returning.
func (c *Cache) Probe(ctx context.Context, enc encoder.Encoder, path string) (encoder.MediaInfo, error) {
	if info, ok, err := c.Lookup(path); err == nil && ok {
		return info, nil
	}
	info, err := enc.Probe(ctx, path)
	if err != nil {
		return encoder.MediaInfo{}, err
	}
	if err := c.Store(path, info); err != nil {
		return info, nil //nolint:nilerr // a cache-write failure shouldn't fail a successful probe
	}
	return info, nil
}
