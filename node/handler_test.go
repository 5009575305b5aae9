package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/engine/enginetest"
	"github.com/mit-dci/litnode/eventqueue"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/logging"
)

type handlerHarness struct {
	h        *eventHandler
	protocol *enginetest.Protocol
	wallet   *enginetest.Wallet
	store    *enginetest.MemStore
	queue    *eventqueue.Queue
}

func newHandlerHarness(t *testing.T) *handlerHarness {
	store := enginetest.NewMemStore()
	q, err := eventqueue.Load(store, logging.Nop())
	require.NoError(t, err)

	hh := &handlerHarness{
		protocol: enginetest.NewProtocol(mustKey(t, keyOurs)),
		wallet:   &enginetest.Wallet{},
		store:    store,
		queue:    q,
	}
	hh.h = &eventHandler{
		protocol: hh.protocol,
		wallet:   hh.wallet,
		queue:    q,
		inbound:  newPaymentStore(),
		outbound: newPaymentStore(),
		log:      logging.Nop(),
	}
	return hh
}

func (hh *handlerHarness) popEvent(t *testing.T) lncore.Event {
	t.Helper()
	ev, ok := hh.queue.TryNextEvent()
	require.True(t, ok, "no event queued")
	require.NoError(t, hh.queue.EventHandled())
	return ev
}

func TestHandleFundingGenerationReady(t *testing.T) {
	hh := newHandlerHarness(t)
	ev := engine.FundingGenerationReady{
		TemporaryChannelID: lncore.ChannelID{1},
		Counterparty:       mustKey(t, keyPeer),
		ValueSats:          100000,
		OutputScript:       []byte{0x00, 0x20, 0xaa},
	}
	require.NoError(t, hh.h.HandleEvent(ev))

	tx, ok := hh.protocol.Funded(ev.TemporaryChannelID)
	require.True(t, ok)
	assert.Equal(t, append([]byte("fundingtx:"), ev.OutputScript...), tx)
	assert.Equal(t, 0, hh.queue.Len())
}

func TestHandleFundingFailureClosesChannel(t *testing.T) {
	hh := newHandlerHarness(t)
	hh.wallet.FundingErr = lncore.ErrFundingTxCreationFailed

	ev := engine.FundingGenerationReady{
		TemporaryChannelID: lncore.ChannelID{2},
		Counterparty:       mustKey(t, keyPeer),
		ValueSats:          100000,
	}
	require.NoError(t, hh.h.HandleEvent(ev))

	_, ok := hh.protocol.Funded(ev.TemporaryChannelID)
	assert.False(t, ok)
	assert.Equal(t, []lncore.ChannelID{ev.TemporaryChannelID}, hh.protocol.Closes())
}

func TestHandlePaymentClaimable(t *testing.T) {
	hh := newHandlerHarness(t)

	pre := lncore.NewPaymentPreimage()
	require.NoError(t, hh.h.HandleEvent(engine.PaymentClaimable{
		PaymentHash: pre.Hash(),
		AmountMsat:  1000,
		Preimage:    &pre,
	}))
	assert.Equal(t, []lncore.PaymentPreimage{pre}, hh.protocol.Claimed())

	info, ok := hh.h.inbound.get(pre.Hash())
	require.True(t, ok)
	assert.Equal(t, &pre, info.Preimage)

	unknown := lncore.PaymentHash{3}
	require.NoError(t, hh.h.HandleEvent(engine.PaymentClaimable{PaymentHash: unknown, AmountMsat: 1000}))
	assert.Equal(t, []lncore.PaymentHash{unknown}, hh.protocol.FailedBack())
	assert.Len(t, hh.protocol.Claimed(), 1)
}

func TestHandlePaymentClaimedUpdatesInvoice(t *testing.T) {
	hh := newHandlerHarness(t)

	amt := uint64(2000)
	h := lncore.PaymentHash{4}
	hh.h.inbound.insert(h, lncore.PaymentInfo{Status: lncore.PaymentPending, AmountMsat: &amt})

	require.NoError(t, hh.h.HandleEvent(engine.PaymentClaimed{PaymentHash: h, AmountMsat: 2500}))

	info, ok := hh.h.inbound.get(h)
	require.True(t, ok)
	assert.Equal(t, lncore.PaymentSucceeded, info.Status)
	assert.Equal(t, uint64(2500), *info.AmountMsat)
	assert.Equal(t, lncore.PaymentReceivedEvent{PaymentHash: h, AmountMsat: 2500}, hh.popEvent(t))
}

func TestHandleOutboundPaymentOutcome(t *testing.T) {
	hh := newHandlerHarness(t)

	pre := lncore.NewPaymentPreimage()
	sent := pre.Hash()
	failed := lncore.PaymentHash{5}
	hh.h.outbound.insert(sent, lncore.PaymentInfo{Status: lncore.PaymentPending})
	hh.h.outbound.insert(failed, lncore.PaymentInfo{Status: lncore.PaymentPending})

	require.NoError(t, hh.h.HandleEvent(engine.PaymentSent{PaymentHash: sent, Preimage: pre}))
	require.NoError(t, hh.h.HandleEvent(engine.PaymentFailed{PaymentHash: failed}))

	info, _ := hh.h.outbound.get(sent)
	assert.Equal(t, lncore.PaymentSucceeded, info.Status)
	assert.Equal(t, &pre, info.Preimage)
	info, _ = hh.h.outbound.get(failed)
	assert.Equal(t, lncore.PaymentFailed, info.Status)

	assert.Equal(t, lncore.PaymentSuccessfulEvent{PaymentHash: sent}, hh.popEvent(t))
	assert.Equal(t, lncore.PaymentFailedEvent{PaymentHash: failed}, hh.popEvent(t))
}

func TestHandleChannelAndPeerEvents(t *testing.T) {
	hh := newHandlerHarness(t)
	peer := mustKey(t, keyPeer)

	require.NoError(t, hh.h.HandleEvent(engine.ChannelReady{
		ChannelID: lncore.ChannelID{6}, UserChannelID: lncore.UserChannelID{7}, Counterparty: peer,
	}))
	require.NoError(t, hh.h.HandleEvent(engine.ChannelClosed{
		ChannelID: lncore.ChannelID{6}, UserChannelID: lncore.UserChannelID{7}, Reason: "cooperative",
	}))
	require.NoError(t, hh.h.HandleEvent(engine.PeerConnected{NodeID: peer, Inbound: false}))
	require.NoError(t, hh.h.HandleEvent(engine.PeerConnected{NodeID: peer, Inbound: true}))

	assert.Equal(t, 3, hh.queue.Len())
	assert.Equal(t, lncore.ChannelReadyEvent{ChannelID: lncore.ChannelID{6}, UserChannelID: lncore.UserChannelID{7}}, hh.popEvent(t))
	assert.Equal(t, lncore.ChannelClosedEvent{ChannelID: lncore.ChannelID{6}, UserChannelID: lncore.UserChannelID{7}}, hh.popEvent(t))
	assert.Equal(t, lncore.PeerConnectedEvent{NodeID: peer, Inbound: true}, hh.popEvent(t))
}

func TestHandlerPushFailureKeepsEventPending(t *testing.T) {
	hh := newHandlerHarness(t)
	hh.store.SetFailWrites(true)

	hh.protocol.Emit(engine.ChannelReady{ChannelID: lncore.ChannelID{8}})
	hh.protocol.ProcessPendingEvents(hh.h)
	assert.Equal(t, 1, hh.protocol.Pending())
	assert.Equal(t, 0, hh.queue.Len())

	hh.store.SetFailWrites(false)
	hh.protocol.ProcessPendingEvents(hh.h)
	assert.Equal(t, 0, hh.protocol.Pending())
	assert.Equal(t, 1, hh.queue.Len())
}
