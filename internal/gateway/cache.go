package gateway

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// CachedResponse is a stored copy of an upstream response, keyed by request
// identity (method + URL) inside a generation bucket.
type CachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// Cache is the bbolt-backed resource cache. Each cache generation is one
// bucket; activating a revision purges every bucket outside the current
// static/dynamic pair.
type Cache struct {
	db *bbolt.DB
}

func OpenCache(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open cache database")
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Activate ensures the given generation buckets exist and removes every
// other generation. Stale application code from a previous revision can
// never be served again after activation.
func (c *Cache) Activate(generations ...string) error {
	keep := make(map[string]bool, len(generations))
	for _, g := range generations {
		keep[g] = true
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		var stale [][]byte
		err := tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			if !keep[string(name)] {
				stale = append(stale, append([]byte(nil), name...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, name := range stale {
			zap.S().Infof("purging stale cache generation %s", name)
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		for _, g := range generations {
			if _, err := tx.CreateBucketIfNotExists([]byte(g)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Generations lists the bucket names currently present.
func (c *Cache) Generations() ([]string, error) {
	var names []string
	err := c.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	return names, err
}

// Get returns the cached response for key in the given generation, or nil
// on a miss.
func (c *Cache) Get(generation, key string) (*CachedResponse, error) {
	var cached *CachedResponse
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(generation))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(key))
		if data == nil {
			return nil
		}
		cached = new(CachedResponse)
		return jsoniter.Unmarshal(data, cached)
	})
	if err != nil {
		return nil, errors.Wrap(err, "read cache entry")
	}
	return cached, nil
}

func (c *Cache) Put(generation, key string, resp *CachedResponse) error {
	data, err := jsoniter.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "encode cache entry")
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(generation))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), data)
	})
}

// Count returns the number of entries stored in a generation.
func (c *Cache) Count(generation string) (int, error) {
	count := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(generation))
		if bucket == nil {
			return nil
		}
		count = bucket.Stats().KeyN
		return nil
	})
	return count, err
}
