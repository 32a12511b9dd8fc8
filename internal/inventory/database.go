package inventory

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketName    = "inventory"
	collectionKey = "items"
)

// DB persists the inventory collection as a single blob under one well-known
// key. Save is all-or-nothing: callers rely on a failed write leaving the
// previously stored collection intact.
type DB interface {
	// Load returns the stored collection, or an empty one if nothing has
	// been saved yet.
	Load() (map[string]*Item, error)

	// Save replaces the stored collection with the given one.
	Save(items map[string]*Item) error

	// Close closes the database connection.
	Close() error
}

// BoltDB implements the DB interface using BoltDB.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// Load returns the stored collection.
func (b *BoltDB) Load() (map[string]*Item, error) {
	items := make(map[string]*Item)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(collectionKey))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("unmarshaling inventory: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Save replaces the stored collection in one transaction.
func (b *BoltDB) Save(items map[string]*Item) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("marshaling inventory: %w", err)
		}
		return bucket.Put([]byte(collectionKey), data)
	})
}

// Close closes the database connection.
func (b *BoltDB) Close() error {
	return b.db.Close()
}
