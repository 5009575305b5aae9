// Package db opens the blob store backend the node persists its state in.
package db

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/mit-dci/litnode/db/lnbadger"
	"github.com/mit-dci/litnode/db/lnbolt"
	"github.com/mit-dci/litnode/db/lnfile"
	"github.com/mit-dci/litnode/lncore"
)

const (
	BackendBolt   = "bolt"
	BackendBadger = "badger"
	BackendFile   = "file"
)

// Store is a blob store that holds resources until closed.
type Store interface {
	lncore.BlobStore
	io.Closer
}

// Open opens the named backend below dir.  An empty backend means bolt.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case "", BackendBolt:
		return lnbolt.Open(dir)
	case BackendBadger:
		return lnbadger.Open(dir)
	case BackendFile:
		return lnfile.Open(filepath.Join(dir, "blobs"))
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}
