package qln

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/engine/enginetest"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/lnp2p"
	"github.com/mit-dci/litnode/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEngine struct {
	*LitNode
	key   *btcec.PrivateKey
	store *enginetest.MemStore
}

func newTestEngine(t *testing.T, network lncore.Network) *testEngine {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	store := enginetest.NewMemStore()
	nd, err := New(key, network, store, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(nd.DisconnectAllPeers)
	return &testEngine{LitNode: nd, key: key, store: store}
}

// serve accepts connections for te until the test ends.
func serve(t *testing.T, te *testEngine) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				te.SetupInbound(conn)
			}()
		}
	}()

	t.Cleanup(func() {
		l.Close()
		te.DisconnectAllPeers()
		wg.Wait()
	})
	return l.Addr().String()
}

// connectedPair returns two engines with a live connection from a to b.
func connectedPair(t *testing.T) (*testEngine, *testEngine) {
	a := newTestEngine(t, lncore.Regtest)
	b := newTestEngine(t, lncore.Regtest)
	addr := serve(t, b)

	_, err := a.ConnectOutbound(context.Background(), b.NodeID(), addr)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(a.ConnectedPeers()) == 1 && len(b.ConnectedPeers()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	return a, b
}

var errStop = errors.New("stop")

// expectEvent drains events from nd until one named name shows up.  Events
// before it are dropped, events after it stay pending.
func expectEvent(t *testing.T, nd *testEngine, name string) engine.Event {
	t.Helper()
	var got engine.Event
	require.Eventually(t, func() bool {
		nd.ProcessPendingEvents(engine.EventHandlerFunc(func(e engine.Event) error {
			if got != nil {
				return errStop
			}
			if e.EventName() == name {
				got = e
			}
			return nil
		}))
		return got != nil
	}, 5*time.Second, 10*time.Millisecond, "waiting for %s", name)
	return got
}

func fundingTx(t *testing.T, script []byte, sats uint64) []byte {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0x01}, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(sats), script))

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	return buf.Bytes()
}

// openChannel runs the whole open flow from a to b and returns the funded
// channel id.
func openChannel(t *testing.T, a, b *testEngine, sats, pushMsat uint64) lncore.ChannelID {
	uid := lncore.NewUserChannelID()
	temp, err := a.OpenChannel(b.NodeID(), sats, pushMsat, uid, engine.ChannelConfig{
		AnnouncedChannel: true,
		TheirToSelfDelay: 2016,
	})
	require.NoError(t, err)

	fgr := expectEvent(t, a, "funding_generation_ready").(engine.FundingGenerationReady)
	assert.Equal(t, temp, fgr.TemporaryChannelID)
	assert.Equal(t, uid, fgr.UserChannelID)
	assert.Equal(t, b.NodeID(), fgr.Counterparty)
	assert.Equal(t, sats, fgr.ValueSats)

	require.NoError(t, a.FundingTransactionGenerated(temp, b.NodeID(), fundingTx(t, fgr.OutputScript, sats)))
	id := a.ListChannels()[0].ChannelID
	assert.NotEqual(t, temp, id)

	require.Eventually(t, func() bool {
		chans := b.ListChannels()
		return len(chans) == 1 && chans[0].ChannelID == id
	}, 5*time.Second, 10*time.Millisecond)

	a.BestBlockUpdated("00", 101)
	b.BestBlockUpdated("00", 101)
	ready := expectEvent(t, a, "channel_ready").(engine.ChannelReady)
	assert.Equal(t, id, ready.ChannelID)
	assert.Equal(t, uid, ready.UserChannelID)
	expectEvent(t, b, "channel_ready")
	return id
}

func TestOpenChannel(t *testing.T) {
	a, b := connectedPair(t)
	id := openChannel(t, a, b, 100000, 2000)

	ac := a.ListChannels()
	require.Len(t, ac, 1)
	assert.Equal(t, id, ac[0].ChannelID)
	assert.True(t, ac[0].IsOutbound)
	assert.True(t, ac[0].IsReady)
	assert.True(t, ac[0].IsPublic)
	assert.Equal(t, uint64(100000), ac[0].CapacitySats)
	assert.Equal(t, uint64(100000*1000-2000), ac[0].OutboundCapacityMsat)
	assert.Equal(t, uint64(2000), ac[0].InboundCapacityMsat)

	bc := b.ListChannels()
	require.Len(t, bc, 1)
	assert.False(t, bc[0].IsOutbound)
	assert.True(t, bc[0].IsReady)
	assert.Equal(t, a.NodeID(), bc[0].Counterparty)
	assert.Equal(t, uint64(2000), bc[0].OutboundCapacityMsat)

	b.mtx.Lock()
	assert.Equal(t, uint16(2016), b.channels[0].TheirToSelfDelay)
	b.mtx.Unlock()
	assert.Equal(t, uint32(101), a.BestHeight())
}

func TestOpenChannelRejected(t *testing.T) {
	a, b := connectedPair(t)
	c := newTestEngine(t, lncore.Regtest)

	_, err := a.OpenChannel(c.NodeID(), 100000, 0, lncore.NewUserChannelID(), engine.ChannelConfig{})
	assert.ErrorIs(t, err, lnp2p.ErrPeerNotConnected)

	_, err = a.OpenChannel(b.NodeID(), 10, 0, lncore.NewUserChannelID(), engine.ChannelConfig{})
	assert.ErrorIs(t, err, ErrChannelParams)

	_, err = a.OpenChannel(b.NodeID(), 100000, 100000*1000+1, lncore.NewUserChannelID(), engine.ChannelConfig{})
	assert.ErrorIs(t, err, ErrChannelParams)

	assert.Empty(t, a.ListChannels())
}

func TestFundingTransactionChecked(t *testing.T) {
	a, b := connectedPair(t)

	temp, err := a.OpenChannel(b.NodeID(), 50000, 0, lncore.NewUserChannelID(), engine.ChannelConfig{})
	require.NoError(t, err)
	fgr := expectEvent(t, a, "funding_generation_ready").(engine.FundingGenerationReady)

	assert.Error(t, a.FundingTransactionGenerated(temp, b.NodeID(), []byte("garbage")))
	assert.Error(t, a.FundingTransactionGenerated(temp, b.NodeID(), fundingTx(t, fgr.OutputScript, 49999)))
	assert.Error(t, a.FundingTransactionGenerated(temp, b.NodeID(), fundingTx(t, []byte{0x00, 0x14}, 50000)))

	// still waiting, and it can be closed instead
	require.NoError(t, a.CloseChannel(temp, b.NodeID()))
	closed := expectEvent(t, a, "channel_closed").(engine.ChannelClosed)
	assert.Equal(t, temp, closed.ChannelID)
	expectEvent(t, b, "channel_closed")
	require.Eventually(t, func() bool {
		return len(b.ListChannels()) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestInvoicePayment(t *testing.T) {
	a, b := connectedPair(t)
	openChannel(t, a, b, 100000, 0)

	amt := uint64(50000)
	inv, err := b.CreateInvoice(&amt, "coffee", 3600)
	require.NoError(t, err)

	parsed, err := a.ParseInvoice(inv.Encoded)
	require.NoError(t, err)
	require.NoError(t, a.PayInvoice(parsed))

	claim := expectEvent(t, b, "payment_claimable").(engine.PaymentClaimable)
	assert.Equal(t, inv.PaymentHash, claim.PaymentHash)
	assert.Equal(t, amt, claim.AmountMsat)
	require.NotNil(t, claim.Preimage)
	require.NotNil(t, claim.Secret)
	assert.Equal(t, inv.PaymentSecret, *claim.Secret)

	require.NoError(t, b.ClaimFunds(*claim.Preimage))
	claimed := expectEvent(t, b, "payment_claimed").(engine.PaymentClaimed)
	assert.Equal(t, amt, claimed.AmountMsat)

	sent := expectEvent(t, a, "payment_sent").(engine.PaymentSent)
	assert.Equal(t, inv.PaymentHash, sent.PaymentHash)
	assert.Equal(t, inv.PaymentHash, sent.Preimage.Hash())

	assert.Equal(t, uint64(100000*1000)-amt, a.ListChannels()[0].OutboundCapacityMsat)
	assert.Equal(t, amt, b.ListChannels()[0].OutboundCapacityMsat)

	// claiming twice finds nothing
	assert.ErrorIs(t, b.ClaimFunds(*claim.Preimage), ErrUnknownPayment)
}

func TestInvoiceWrongSecret(t *testing.T) {
	a, b := connectedPair(t)
	openChannel(t, a, b, 100000, 0)

	amt := uint64(1000)
	inv, err := b.CreateInvoice(&amt, "", 3600)
	require.NoError(t, err)

	forged := *inv
	forged.PaymentSecret = lncore.NewPaymentSecret()
	require.NoError(t, a.PayInvoice(&forged))

	failed := expectEvent(t, a, "payment_failed").(engine.PaymentFailed)
	assert.Equal(t, inv.PaymentHash, failed.PaymentHash)
	assert.Equal(t, uint64(100000*1000), a.ListChannels()[0].OutboundCapacityMsat)
}

func TestKeysendFailBack(t *testing.T) {
	a, b := connectedPair(t)
	openChannel(t, a, b, 100000, 0)

	preimage := lncore.NewPaymentPreimage()
	require.NoError(t, a.PayPubkey(b.NodeID(), preimage, 1000, 40))

	claim := expectEvent(t, b, "payment_claimable").(engine.PaymentClaimable)
	require.NotNil(t, claim.Preimage)
	assert.Equal(t, preimage, *claim.Preimage)
	assert.Nil(t, claim.Secret)

	// the same hash can't go out twice while in flight
	assert.ErrorIs(t, a.PayPubkey(b.NodeID(), preimage, 1000, 40), engine.ErrSending)

	require.NoError(t, b.FailBackwards(preimage.Hash()))
	failed := expectEvent(t, a, "payment_failed").(engine.PaymentFailed)
	assert.Equal(t, preimage.Hash(), failed.PaymentHash)

	assert.Equal(t, uint64(100000*1000), a.ListChannels()[0].OutboundCapacityMsat)
	assert.Equal(t, uint64(0), b.ListChannels()[0].OutboundCapacityMsat)
	assert.ErrorIs(t, b.FailBackwards(preimage.Hash()), ErrUnknownPayment)
}

func TestPayRouting(t *testing.T) {
	a, b := connectedPair(t)

	err := a.PayPubkey(b.NodeID(), lncore.NewPaymentPreimage(), 1000, 40)
	assert.ErrorIs(t, err, engine.ErrRouting)

	openChannel(t, a, b, 10000, 0)
	err = a.PayPubkey(b.NodeID(), lncore.NewPaymentPreimage(), 10000*1000+1, 40)
	assert.ErrorIs(t, err, engine.ErrRouting)

	// b has nothing to send back
	err = b.PayPubkey(a.NodeID(), lncore.NewPaymentPreimage(), 1, 40)
	assert.ErrorIs(t, err, engine.ErrRouting)
}

func TestPayInvoiceChecks(t *testing.T) {
	a, b := connectedPair(t)
	mainnet := newTestEngine(t, lncore.Mainnet)

	amt := uint64(1000)
	inv, err := mainnet.CreateInvoice(&amt, "", 3600)
	require.NoError(t, err)
	assert.Contains(t, inv.Encoded, "lnbc1")
	assert.ErrorIs(t, a.PayInvoice(inv), engine.ErrInvoice)

	noAmt, err := b.CreateInvoice(nil, "", 3600)
	require.NoError(t, err)
	assert.ErrorIs(t, a.PayInvoice(noAmt), engine.ErrInvoice)

	old, err := b.CreateInvoice(&amt, "", 60)
	require.NoError(t, err)
	old.Timestamp = time.Now().Add(-time.Hour)
	assert.ErrorIs(t, a.PayInvoice(old), engine.ErrInvoice)

	own, err := a.CreateInvoice(&amt, "", 3600)
	require.NoError(t, err)
	assert.ErrorIs(t, a.PayInvoice(own), engine.ErrInvoice)
}

func TestInvoiceEncoding(t *testing.T) {
	nd := newTestEngine(t, lncore.Regtest)

	amt := uint64(123456)
	inv, err := nd.CreateInvoice(&amt, "two coffees", 600)
	require.NoError(t, err)
	assert.True(t, len(inv.Encoded) > len("lnbcrt1"))
	assert.Equal(t, "lnbcrt1", inv.Encoded[:7])

	got, err := nd.ParseInvoice(inv.Encoded)
	require.NoError(t, err)
	assert.Equal(t, lncore.Regtest, got.Network)
	assert.Equal(t, nd.NodeID(), got.Payee)
	assert.Equal(t, inv.PaymentHash, got.PaymentHash)
	assert.Equal(t, inv.PaymentSecret, got.PaymentSecret)
	require.NotNil(t, got.AmountMsat)
	assert.Equal(t, amt, *got.AmountMsat)
	assert.Equal(t, "two coffees", got.Description)
	assert.Equal(t, 600*time.Second, got.Expiry)
	assert.True(t, inv.Timestamp.Equal(got.Timestamp))

	noAmt, err := nd.CreateInvoice(nil, "", 60)
	require.NoError(t, err)
	got, err = nd.ParseInvoice(noAmt.Encoded)
	require.NoError(t, err)
	assert.Nil(t, got.AmountMsat)

	last := "q"
	if inv.Encoded[len(inv.Encoded)-1] == 'q' {
		last = "p"
	}
	for _, bad := range []string{
		"",
		"lnbcrt1qqqq",
		"nonsense",
		inv.Encoded[:len(inv.Encoded)-1] + last,
	} {
		_, err := nd.ParseInvoice(bad)
		assert.ErrorIs(t, err, engine.ErrInvoice, bad)
	}

	_, err = nd.CreateInvoice(nil, string(make([]byte, maxDescriptionLen+1)), 60)
	assert.ErrorIs(t, err, engine.ErrInvoice)
}

func TestCloseChannel(t *testing.T) {
	a, b := connectedPair(t)
	id := openChannel(t, a, b, 100000, 0)

	assert.ErrorIs(t, a.CloseChannel(lncore.ChannelID{}, b.NodeID()), ErrChannelNotFound)
	assert.ErrorIs(t, a.CloseChannel(id, a.NodeID()), ErrChannelNotFound)

	require.NoError(t, a.CloseChannel(id, b.NodeID()))
	closed := expectEvent(t, a, "channel_closed").(engine.ChannelClosed)
	assert.Equal(t, id, closed.ChannelID)
	assert.Equal(t, "closed by us", closed.Reason)

	closed = expectEvent(t, b, "channel_closed").(engine.ChannelClosed)
	assert.Equal(t, id, closed.ChannelID)
	assert.Equal(t, "closed by peer", closed.Reason)

	assert.Empty(t, a.ListChannels())
	assert.Empty(t, b.ListChannels())
}

func TestStateSurvivesRestart(t *testing.T) {
	a, b := connectedPair(t)
	id := openChannel(t, a, b, 100000, 0)

	amt := uint64(5000)
	inv, err := a.CreateInvoice(&amt, "", 3600)
	require.NoError(t, err)

	again, err := New(a.key, lncore.Regtest, a.store, logging.Nop())
	require.NoError(t, err)
	chans := again.ListChannels()
	require.Len(t, chans, 1)
	assert.Equal(t, id, chans[0].ChannelID)
	assert.True(t, chans[0].IsReady)

	again.mtx.Lock()
	_, ok := again.invoices[inv.PaymentHash]
	again.mtx.Unlock()
	assert.True(t, ok)
}

func TestCorruptState(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	store := enginetest.NewMemStore()
	store.Put(channelsKey, []byte("{"))

	_, err = New(key, lncore.Regtest, store, logging.Nop())
	assert.ErrorIs(t, err, lncore.ErrPersistenceFailed)
}

func TestPendingEventsRetry(t *testing.T) {
	nd := newTestEngine(t, lncore.Regtest)
	nd.queueEvent(engine.PaymentFailed{PaymentHash: lncore.PaymentHash{1}})
	nd.queueEvent(engine.PaymentFailed{PaymentHash: lncore.PaymentHash{2}})

	calls := 0
	nd.ProcessPendingEvents(engine.EventHandlerFunc(func(e engine.Event) error {
		calls++
		return errStop
	}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, nd.PendingEvents())

	var seen []lncore.PaymentHash
	nd.ProcessPendingEvents(engine.EventHandlerFunc(func(e engine.Event) error {
		seen = append(seen, e.(engine.PaymentFailed).PaymentHash)
		return nil
	}))
	assert.Equal(t, []lncore.PaymentHash{{1}, {2}}, seen)
	assert.Equal(t, 0, nd.PendingEvents())
}

func TestPeerConnectedEvents(t *testing.T) {
	a, b := connectedPair(t)

	in := expectEvent(t, b, "peer_connected").(engine.PeerConnected)
	assert.Equal(t, a.NodeID(), in.NodeID)
	assert.True(t, in.Inbound)

	out := expectEvent(t, a, "peer_connected").(engine.PeerConnected)
	assert.Equal(t, b.NodeID(), out.NodeID)
	assert.False(t, out.Inbound)
}
