package lnbolt

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

// DefaultFilename is the bolt file inside the storage directory.
const DefaultFilename = "litnode.db"

var blobsLabel = []byte(`blobs`)

// BlobDB is a lncore.BlobStore kept in a single bolt bucket.
type BlobDB struct {
	db *bolt.DB
}

// Open opens (or creates) the bolt file in dir.
func Open(dir string) (*BlobDB, error) {
	db, err := bolt.Open(filepath.Join(dir, DefaultFilename), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	bdb := &BlobDB{db: db}
	if err := bdb.init(); err != nil {
		db.Close()
		return nil, err
	}
	return bdb, nil
}

func (bdb *BlobDB) init() error {
	return bdb.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blobsLabel)
		return err
	})
}

// Read returns the value under key, with ok false if there is none.
func (bdb *BlobDB) Read(key string) ([]byte, bool, error) {

	var raw []byte

	err := bdb.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(blobsLabel)
		v := b.Get([]byte(key))
		if v != nil {
			// bolt memory is only valid inside the tx
			raw = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return raw, raw != nil, nil
}

// Write stores the value.  bolt fsyncs on commit so the value is durable once
// this returns.
func (bdb *BlobDB) Write(key string, value []byte) error {

	err := bdb.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(blobsLabel)

		// bolt treats a nil value as missing, store empty values as empty
		if value == nil {
			value = []byte{}
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return err
	}

	return nil
}

func (bdb *BlobDB) Close() error {
	return bdb.db.Close()
}
