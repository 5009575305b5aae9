package lnbadger

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

// DefaultDirname is the badger directory inside the storage directory.
const DefaultDirname = "badger"

// BlobDB is a lncore.BlobStore backed by badger.
type BlobDB struct {
	db *badger.DB
}

// Open opens (or creates) the badger directory in dir.  Writes are synced.
func Open(dir string) (*BlobDB, error) {
	opts := badger.DefaultOptions(filepath.Join(dir, DefaultDirname)).
		WithSyncWrites(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &BlobDB{db: db}, nil
}

func (bdb *BlobDB) Read(key string) ([]byte, bool, error) {
	var raw []byte

	err := bdb.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		raw = []byte{}
	}
	return raw, true, nil
}

func (bdb *BlobDB) Write(key string, value []byte) error {
	return bdb.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (bdb *BlobDB) Close() error {
	return bdb.db.Close()
}
