// Package peerstore remembers the endpoints of the peers we have channels
// with, so they can be reconnected to after a restart or a disconnect.
package peerstore

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
	"github.com/mit-dci/litnode/metrics"
)

// PersistenceKey is the blob store key the directory is kept under.
const PersistenceKey = "peers"

// Directory is a durable set of PeerInfo, unique by public key.
type Directory struct {
	store lncore.BlobStore
	log   *logging.Logger

	mtx   sync.Mutex
	peers []lncore.PeerInfo
}

// Load restores the directory from the store.  A missing key yields an empty
// directory, an undecodable one is an error.
func Load(store lncore.BlobStore, log *logging.Logger) (*Directory, error) {
	d := &Directory{
		store: store,
		log:   log.With("peerstore"),
	}

	raw, ok, err := store.Read(PersistenceKey)
	if err != nil {
		return nil, fmt.Errorf("read peer directory: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &d.peers); err != nil {
			return nil, fmt.Errorf("decode peer directory: %w", err)
		}
	}

	d.log.Debugf("loaded %d peers", len(d.peers))
	return d, nil
}

// Add inserts the peer or overwrites the address of a known one.  If the
// result can't be persisted nothing changes and ErrPersistenceFailed is
// returned.
func (d *Directory) Add(pi lncore.PeerInfo) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	prev := d.peers
	next := make([]lncore.PeerInfo, 0, len(prev)+1)
	replaced := false
	for _, p := range prev {
		if p.PubKey == pi.PubKey {
			next = append(next, pi)
			replaced = true
			continue
		}
		next = append(next, p)
	}
	if !replaced {
		next = append(next, pi)
	}

	if err := d.persist(next); err != nil {
		return err
	}
	d.peers = next
	return nil
}

// Remove deletes the peer with the given key, if present.
func (d *Directory) Remove(pk lncore.PublicKey) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	next := make([]lncore.PeerInfo, 0, len(d.peers))
	for _, p := range d.peers {
		if p.PubKey != pk {
			next = append(next, p)
		}
	}
	if len(next) == len(d.peers) {
		return nil
	}

	if err := d.persist(next); err != nil {
		return err
	}
	d.peers = next
	return nil
}

// Get looks up a single peer.
func (d *Directory) Get(pk lncore.PublicKey) (lncore.PeerInfo, bool) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	for _, p := range d.peers {
		if p.PubKey == pk {
			return p, true
		}
	}
	return lncore.PeerInfo{}, false
}

// List returns a snapshot of all known peers.
func (d *Directory) List() []lncore.PeerInfo {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	out := make([]lncore.PeerInfo, len(d.peers))
	copy(out, d.peers)
	return out
}

func (d *Directory) persist(peers []lncore.PeerInfo) error {
	raw, err := json.Marshal(peers)
	if err != nil {
		return fmt.Errorf("%w: %s", lncore.ErrPersistenceFailed, err.Error())
	}
	if err := d.store.Write(PersistenceKey, raw); err != nil {
		d.log.Errorf("failed to persist peer directory: %s", err.Error())
		metrics.IncPersistFailure(PersistenceKey)
		return fmt.Errorf("%w: %s", lncore.ErrPersistenceFailed, err.Error())
	}
	return nil
}
