// Package qln is a small payment channel engine for development and tests.
// Channels are opened, funded, used and closed over lnp2p connections, but no
// commitment transactions are ever built: balances are plain numbers both
// sides agree on.  Payments only travel over a direct channel with the payee.
package qln

import (
	"errors"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/eventbus"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/lnp2p"
	"github.com/mit-dci/litnode/logging"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrChannelParams   = errors.New("invalid channel parameters")
	ErrUnknownPayment  = errors.New("no pending payment with that hash")
)

// LitNode is the protocol engine.  It implements engine.Protocol.
type LitNode struct {
	idkey   *btcec.PrivateKey
	network lncore.Network
	store   lncore.BlobStore
	log     *logging.Logger

	Events  *eventbus.EventBus
	PeerMan *lnp2p.PeerManager

	// guards everything below and the persisted state
	mtx        sync.Mutex
	channels   []*Qchan
	invoices   map[lncore.PaymentHash]invoiceRecord
	bestHeight uint32
	bestHash   string

	evMtx   sync.Mutex
	pending []engine.Event

	// one ProcessPendingEvents at a time
	procMtx sync.Mutex
}

var _ engine.Protocol = (*LitNode)(nil)

// New sets up the engine with idkey as node identity, loading channels and
// invoices from store.
func New(idkey *btcec.PrivateKey, network lncore.Network, store lncore.BlobStore, log *logging.Logger) (*LitNode, error) {
	nd := &LitNode{
		idkey:    idkey,
		network:  network,
		store:    store,
		log:      log,
		invoices: map[lncore.PaymentHash]invoiceRecord{},
	}

	if err := nd.loadChannels(); err != nil {
		return nil, err
	}
	if err := nd.loadInvoices(); err != nil {
		return nil, err
	}

	// Event system setup.
	nd.Events = eventbus.NewEventBus(log.With("eventbus"))

	// Peer manager
	nd.PeerMan = lnp2p.NewPeerManager(idkey, nd.Events, log.With("lnp2p"))

	// Sets up handlers for all the messages we need to handle.
	nd.registerHandlers()

	log.Infof("loaded %d channels, %d invoices", len(nd.channels), len(nd.invoices))
	return nd, nil
}

func (nd *LitNode) NodeID() lncore.PublicKey {
	return nd.PeerMan.NodeID()
}

// BestHeight is the last height a chain source told us about.
func (nd *LitNode) BestHeight() uint32 {
	nd.mtx.Lock()
	defer nd.mtx.Unlock()
	return nd.bestHeight
}

// ListChannels returns every channel that isn't closed yet.
func (nd *LitNode) ListChannels() []engine.ChannelDetails {
	nd.mtx.Lock()
	defer nd.mtx.Unlock()

	out := make([]engine.ChannelDetails, 0, len(nd.channels))
	for _, q := range nd.channels {
		out = append(out, q.details())
	}
	return out
}

func (nd *LitNode) Confirmables() []engine.Confirmable {
	return []engine.Confirmable{nd}
}

// BestBlockUpdated marks every funded channel ready.
func (nd *LitNode) BestBlockUpdated(hash string, height uint32) {
	nd.mtx.Lock()
	defer nd.mtx.Unlock()

	nd.bestHeight = height
	nd.bestHash = hash

	var ready []*Qchan
	for _, q := range nd.channels {
		if q.State == StateFunded {
			q.State = StateReady
			ready = append(ready, q)
		}
	}
	if len(ready) == 0 {
		return
	}
	if err := nd.saveChannels(); err != nil {
		nd.log.Errorf("saving channels at height %d: %s", height, err.Error())
	}
	for _, q := range ready {
		nd.log.Infof("channel %s ready at height %d", q.ChannelID, height)
		nd.queueEvent(engine.ChannelReady{
			ChannelID:     q.ChannelID,
			UserChannelID: q.UserChannelID,
			Counterparty:  q.Counterparty,
		})
	}
}

// findChannel returns the index of the channel with id and counterparty, or
// -1.  Caller holds mtx.
func (nd *LitNode) findChannel(id lncore.ChannelID, counterparty lncore.PublicKey) int {
	for i, q := range nd.channels {
		if q.ChannelID == id && q.Counterparty == counterparty {
			return i
		}
	}
	return -1
}

func (nd *LitNode) findByTempID(temp lncore.ChannelID, counterparty lncore.PublicKey, state ChanState) *Qchan {
	for _, q := range nd.channels {
		if q.TempID == temp && q.Counterparty == counterparty && q.State == state {
			return q
		}
	}
	return nil
}

// send delivers queued messages.  Must be called without mtx held.
func (nd *LitNode) send(msgs ...outMsg) {
	for _, m := range msgs {
		if err := nd.PeerMan.SendTo(m.to, m.mtype, m.payload); err != nil {
			nd.log.Warnf("sending %s to %s: %s", m.mtype, m.to, err.Error())
		}
	}
}
