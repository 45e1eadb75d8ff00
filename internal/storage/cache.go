package storage

import (
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/entityscout/entityscout/pkg/logger"
)

var bucketName = []byte("pages")

// PageCache provides persistent storage for scraped page text using BBolt,
// keyed by URL. Repeated runs against the same site skip re-fetching pages
// that were already scraped.
type PageCache struct {
	db *bbolt.DB
}

// NewPageCache creates a page cache backed by the given database path
func NewPageCache(path string) (*PageCache, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	// Create bucket if not exists
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("page cache initialized", zap.String("path", path))
	return &PageCache{db: db}, nil
}

// Put saves page text under its URL
func (c *PageCache) Put(url, content string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put([]byte(url), []byte(content))
	})
}

// Get retrieves page text by URL.
// Returns the text and true if found, empty string and false otherwise
func (c *PageCache) Get(url string) (string, bool) {
	var content []byte

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		data := b.Get([]byte(url))
		if data != nil {
			content = append([]byte(nil), data...)
		}
		return nil
	})

	if err != nil || content == nil {
		return "", false
	}

	return string(content), true
}

// Delete removes a cached page by URL
func (c *PageCache) Delete(url string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Delete([]byte(url))
	})
}

// Close closes the database connection
func (c *PageCache) Close() error {
	return c.db.Close()
}
