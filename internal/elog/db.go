package elog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const dbAPIVersion = "1"

const defaultMaxEntries = 100000

// DB is a bbolt-backed log sink, modeled on nvr's pkg/log/db.go: one
// bucket per schema version, keyed on a big-endian millisecond
// timestamp so entries iterate in time order, with the oldest entry
// evicted once maxEntries is exceeded.
type DB struct {
	path       string
	maxEntries int

	db     *bolt.DB
	saveWG sync.WaitGroup
}

// NewDB returns a DB that will open path on Init.
func NewDB(path string) *DB {
	return &DB{path: path, maxEntries: defaultMaxEntries}
}

// Init opens (creating if needed) the bbolt file and its bucket.
func (d *DB) Init() error {
	db, err := bolt.Open(d.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("elog: open database %s: %w", d.path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(dbAPIVersion))
		return err
	}); err != nil {
		db.Close()
		return fmt.Errorf("elog: create bucket: %w", err)
	}
	d.db = db
	return nil
}

// Close waits for any in-flight save and closes the database.
func (d *DB) Close() error {
	d.saveWG.Wait()
	return d.db.Close()
}

// SaveLogs subscribes to logger and persists every entry until ctx is
// cancelled.
func (d *DB) SaveLogs(ctx context.Context, logger *Logger) {
	entries, cancel := logger.Subscribe()
	defer cancel()
	d.saveWG.Add(1)
	defer d.saveWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			if err := d.save(e); err != nil {
				logger.Error().Src("elog").Msgf("save log entry: %v", err)
			}
		}
	}
}

func (d *DB) save(e Entry) error {
	key := encodeKey(uint64(e.Time.UnixMilli()))
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(dbAPIVersion))
		if b.Stats().KeyN >= d.maxEntries {
			if k, _ := b.Cursor().First(); k != nil {
				if err := b.Delete(k); err != nil {
					return fmt.Errorf("evict oldest entry: %w", err)
				}
			}
		}
		return b.Put(key, value)
	})
}

// Query filters stored entries, most recent first, up to limit (0 means
// defaultMaxEntries).
type Query struct {
	Levels []Level
	Srcs   []string
	Tracks []string
	Limit  int
}

// Query returns entries matching q, most recent first.
func (d *DB) Query(q Query) ([]Entry, error) {
	var out []Entry
	limit := q.Limit
	if limit == 0 {
		limit = defaultMaxEntries
	}
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(dbAPIVersion)).Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshal entry: %w", err)
			}
			if matches(e, q) {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func matches(e Entry, q Query) bool {
	if len(q.Levels) > 0 && !levelIn(e.Level, q.Levels) {
		return false
	}
	if len(q.Srcs) > 0 && !stringIn(e.Src, q.Srcs) {
		return false
	}
	if len(q.Tracks) > 0 && !stringIn(e.Track, q.Tracks) {
		return false
	}
	return true
}

func levelIn(l Level, levels []Level) bool {
	for _, x := range levels {
		if x == l {
			return true
		}
	}
	return false
}

func stringIn(s string, set []string) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

func encodeKey(k uint64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, k)
	return out
}
