// Package boltdb implements the ability to read and write blobs to a single
// bbolt database file.
package boltdb

import (
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	bolt "go.etcd.io/bbolt"
)

// bucket holds every blob keyed by name.
var bucket = []byte("blobs")

// BoltDB represents the serialization implementation for reading and storing
// blobs inside a bbolt bucket. This implements the storage.Blobs interface.
type BoltDB struct {
	db *bolt.DB
}

// New opens or creates the database file at the specified path.
func New(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltDB{db: db}, nil
}

// Close releases the database file.
func (b *BoltDB) Close() error {
	return b.db.Close()
}

// Read returns a copy of the named blob.
func (b *BoltDB) Read(name string) ([]byte, error) {
	var data []byte

	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get([]byte(name))
		if v == nil {
			return storage.ErrNotFound
		}

		// The slice is only valid for the life of the transaction.
		data = append([]byte{}, v...)
		return nil
	})

	return data, err
}

// Write replaces the contents of the named blob.
func (b *BoltDB) Write(name string, data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(name), data)
	})
}
