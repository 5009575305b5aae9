package peerstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-dci/litnode/engine/enginetest"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
)

func mustPeer(t *testing.T, s string) lncore.PeerInfo {
	t.Helper()
	pi, err := lncore.ParsePeerInfo(s)
	require.NoError(t, err)
	return pi
}

const (
	keyA = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	keyB = "02c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5"
)

func TestAddSurvivesReload(t *testing.T) {
	store := enginetest.NewMemStore()
	d, err := Load(store, logging.Nop())
	require.NoError(t, err)

	p := mustPeer(t, keyA+"@127.0.0.1:9735")
	require.NoError(t, d.Add(p))

	d2, err := Load(store, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, []lncore.PeerInfo{p}, d2.List())

	got, ok := d2.Get(p.PubKey)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestAddOverwritesAddress(t *testing.T) {
	store := enginetest.NewMemStore()
	d, err := Load(store, logging.Nop())
	require.NoError(t, err)

	require.NoError(t, d.Add(mustPeer(t, keyA+"@127.0.0.1:9735")))
	require.NoError(t, d.Add(mustPeer(t, keyB+"@127.0.0.1:9736")))
	require.NoError(t, d.Add(mustPeer(t, keyA+"@10.0.0.1:9999")))

	list := d.List()
	require.Len(t, list, 2)
	assert.Equal(t, "10.0.0.1:9999", list[0].Address)
	assert.Equal(t, keyB, list[1].PubKey.String())
}

func TestRemoveSurvivesReload(t *testing.T) {
	store := enginetest.NewMemStore()
	d, err := Load(store, logging.Nop())
	require.NoError(t, err)

	a := mustPeer(t, keyA+"@127.0.0.1:9735")
	b := mustPeer(t, keyB+"@127.0.0.1:9736")
	require.NoError(t, d.Add(a))
	require.NoError(t, d.Add(b))
	require.NoError(t, d.Remove(a.PubKey))

	d2, err := Load(store, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, []lncore.PeerInfo{b}, d2.List())
	_, ok := d2.Get(a.PubKey)
	assert.False(t, ok)

	// unknown key is a no-op, no write
	writes := store.Writes()
	require.NoError(t, d2.Remove(a.PubKey))
	assert.Equal(t, writes, store.Writes())
}

func TestAddRollsBackOnPersistFailure(t *testing.T) {
	store := enginetest.NewMemStore()
	d, err := Load(store, logging.Nop())
	require.NoError(t, err)

	a := mustPeer(t, keyA+"@127.0.0.1:9735")
	require.NoError(t, d.Add(a))

	store.SetFailWrites(true)
	err = d.Add(mustPeer(t, keyB+"@127.0.0.1:9736"))
	assert.ErrorIs(t, err, lncore.ErrPersistenceFailed)
	err = d.Add(mustPeer(t, keyA+"@10.0.0.1:1"))
	assert.ErrorIs(t, err, lncore.ErrPersistenceFailed)
	err = d.Remove(a.PubKey)
	assert.ErrorIs(t, err, lncore.ErrPersistenceFailed)

	assert.Equal(t, []lncore.PeerInfo{a}, d.List())
}

func TestListIsSnapshot(t *testing.T) {
	d, err := Load(enginetest.NewMemStore(), logging.Nop())
	require.NoError(t, err)
	require.NoError(t, d.Add(mustPeer(t, keyA+"@127.0.0.1:9735")))

	list := d.List()
	list[0].Address = "changed:1"
	assert.Equal(t, "127.0.0.1:9735", d.List()[0].Address)
}

func TestLoadCorrupt(t *testing.T) {
	store := enginetest.NewMemStore()
	store.Put(PersistenceKey, []byte("{not json"))
	_, err := Load(store, logging.Nop())
	assert.Error(t, err)
}
