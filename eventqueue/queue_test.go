package eventqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mit-dci/litnode/engine/enginetest"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func hashEvent(b byte) lncore.Event {
	var h lncore.PaymentHash
	h[0] = b
	return lncore.PaymentSuccessfulEvent{PaymentHash: h}
}

func TestHeadIsStable(t *testing.T) {
	q, err := Load(enginetest.NewMemStore(), logging.Nop())
	require.NoError(t, err)

	a, b, c := hashEvent(1), hashEvent(2), hashEvent(3)
	require.NoError(t, q.Push(a))
	require.NoError(t, q.Push(b))
	require.NoError(t, q.Push(c))

	assert.Equal(t, a, q.NextEvent())
	assert.Equal(t, a, q.NextEvent())
	require.NoError(t, q.EventHandled())
	assert.Equal(t, b, q.NextEvent())
	require.NoError(t, q.EventHandled())
	assert.Equal(t, c, q.NextEvent())
	require.NoError(t, q.EventHandled())

	_, ok := q.TryNextEvent()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestReloadKeepsOrder(t *testing.T) {
	store := enginetest.NewMemStore()
	q, err := Load(store, logging.Nop())
	require.NoError(t, err)

	var h lncore.PaymentHash
	h[31] = 7
	var pk lncore.PublicKey
	pk[0] = 2
	events := []lncore.Event{
		lncore.PaymentReceivedEvent{PaymentHash: h, AmountMsat: 1000},
		lncore.ChannelReadyEvent{ChannelID: lncore.ChannelID{1}, UserChannelID: lncore.UserChannelID{2}},
		lncore.PeerConnectedEvent{NodeID: pk, Inbound: true},
		lncore.ChannelClosedEvent{ChannelID: lncore.ChannelID{3}},
		lncore.PaymentFailedEvent{PaymentHash: h},
	}
	for _, ev := range events {
		require.NoError(t, q.Push(ev))
	}
	require.NoError(t, q.EventHandled())

	q2, err := Load(store, logging.Nop())
	require.NoError(t, err)
	require.Equal(t, len(events)-1, q2.Len())
	for _, want := range events[1:] {
		assert.Equal(t, want, q2.NextEvent())
		require.NoError(t, q2.EventHandled())
	}
}

func TestReloadZeroNodeID(t *testing.T) {
	store := enginetest.NewMemStore()
	q, err := Load(store, logging.Nop())
	require.NoError(t, err)

	events := []lncore.Event{
		lncore.ChannelReadyEvent{ChannelID: lncore.ChannelID{9}},
		lncore.PeerConnectedEvent{Inbound: true},
	}
	for _, ev := range events {
		require.NoError(t, q.Push(ev))
	}

	q2, err := Load(store, logging.Nop())
	require.NoError(t, err)
	require.Equal(t, 2, q2.Len())
	for _, want := range events {
		assert.Equal(t, want, q2.NextEvent())
		require.NoError(t, q2.EventHandled())
	}
}

func TestPushPersistFailure(t *testing.T) {
	store := enginetest.NewMemStore()
	q, err := Load(store, logging.Nop())
	require.NoError(t, err)

	store.SetFailWrites(true)
	err = q.Push(hashEvent(1))
	assert.ErrorIs(t, err, lncore.ErrPersistenceFailed)
	assert.Equal(t, 0, q.Len())

	q2, err := Load(store, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, q2.Len())
}

func TestHandledPersistFailureKeepsHead(t *testing.T) {
	store := enginetest.NewMemStore()
	q, err := Load(store, logging.Nop())
	require.NoError(t, err)

	a, b := hashEvent(1), hashEvent(2)
	require.NoError(t, q.Push(a))
	require.NoError(t, q.Push(b))

	store.SetFailWrites(true)
	assert.ErrorIs(t, q.EventHandled(), lncore.ErrPersistenceFailed)
	assert.Equal(t, a, q.NextEvent())
	assert.Equal(t, 2, q.Len())

	store.SetFailWrites(false)
	require.NoError(t, q.EventHandled())
	assert.Equal(t, b, q.NextEvent())
}

func TestHandledOnEmptyQueue(t *testing.T) {
	q, err := Load(enginetest.NewMemStore(), logging.Nop())
	require.NoError(t, err)
	assert.NoError(t, q.EventHandled())
}

func TestNextEventWaitsForPush(t *testing.T) {
	q, err := Load(enginetest.NewMemStore(), logging.Nop())
	require.NoError(t, err)

	got := make(chan lncore.Event)
	go func() {
		got <- q.NextEvent()
	}()

	select {
	case <-got:
		t.Fatal("NextEvent returned on an empty queue")
	case <-time.After(50 * time.Millisecond):
	}

	ev := hashEvent(9)
	require.NoError(t, q.Push(ev))

	select {
	case e := <-got:
		assert.Equal(t, ev, e)
	case <-time.After(2 * time.Second):
		t.Fatal("NextEvent not woken by Push")
	}
}

func TestLoadCorrupt(t *testing.T) {
	store := enginetest.NewMemStore()
	store.Put(PersistenceKey, []byte(`[{"type":"bogus","data":{}}]`))
	_, err := Load(store, logging.Nop())
	assert.Error(t, err)
}
