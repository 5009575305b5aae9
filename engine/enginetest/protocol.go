package enginetest

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
)

// OpenCall records a call to OpenChannel.
type OpenCall struct {
	Peer          lncore.PublicKey
	AmountSats    uint64
	UserChannelID lncore.UserChannelID
	Config        engine.ChannelConfig
}

// Protocol is a scriptable engine.Protocol.
type Protocol struct {
	ID lncore.PublicKey

	// Reachable maps addresses to the peer that answers there.  Dials to
	// other addresses fail.
	Reachable map[string]lncore.PublicKey

	// Hangup lists addresses where the dial works but the connection
	// drops before the handshake completes.
	Hangup map[string]bool

	// HandshakeDelay is how long a dialed peer takes to show up.
	HandshakeDelay time.Duration

	OpenErr    error
	CloseErr   error
	PayErr     error
	InvoiceErr error

	mtx         sync.Mutex
	channels    []engine.ChannelDetails
	connected   map[lncore.PublicKey]chan struct{}
	pending     []engine.Event
	opens       []OpenCall
	closes      []lncore.ChannelID
	funded      map[lncore.ChannelID][]byte
	dials       []string
	inbound     int
	inConns     []net.Conn
	disconnects int
	bestHeight  uint32
	invoices    map[string]*engine.Invoice
	preimages   map[lncore.PaymentHash]lncore.PaymentPreimage
	claimed     []lncore.PaymentPreimage
	failed      []lncore.PaymentHash
	paid        []lncore.PaymentHash
	processed   int
}

func NewProtocol(id lncore.PublicKey) *Protocol {
	return &Protocol{
		ID:        id,
		Reachable: map[string]lncore.PublicKey{},
		Hangup:    map[string]bool{},
		connected: map[lncore.PublicKey]chan struct{}{},
		funded:    map[lncore.ChannelID][]byte{},
		invoices:  map[string]*engine.Invoice{},
		preimages: map[lncore.PaymentHash]lncore.PaymentPreimage{},
	}
}

func (p *Protocol) NodeID() lncore.PublicKey {
	return p.ID
}

func (p *Protocol) OpenChannel(peer lncore.PublicKey, amountSats, pushMsat uint64,
	userChannelID lncore.UserChannelID, cfg engine.ChannelConfig) (lncore.ChannelID, error) {

	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.opens = append(p.opens, OpenCall{peer, amountSats, userChannelID, cfg})
	if p.OpenErr != nil {
		return lncore.ChannelID{}, p.OpenErr
	}

	var id lncore.ChannelID
	copy(id[:], userChannelID[:])
	p.channels = append(p.channels, engine.ChannelDetails{
		ChannelID:     id,
		UserChannelID: userChannelID,
		Counterparty:  peer,
		CapacitySats:  amountSats,
		IsOutbound:    true,
	})
	return id, nil
}

func (p *Protocol) FundingTransactionGenerated(tempID lncore.ChannelID, counterparty lncore.PublicKey, tx []byte) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.funded[tempID] = tx
	return nil
}

func (p *Protocol) CloseChannel(id lncore.ChannelID, counterparty lncore.PublicKey) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.closes = append(p.closes, id)
	if p.CloseErr != nil {
		return p.CloseErr
	}
	for i, c := range p.channels {
		if c.ChannelID == id {
			p.channels = append(p.channels[:i], p.channels[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("unknown channel %s", id)
}

func (p *Protocol) ListChannels() []engine.ChannelDetails {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	out := make([]engine.ChannelDetails, len(p.channels))
	copy(out, p.channels)
	return out
}

// AddChannel installs a channel as if it was opened earlier.
func (p *Protocol) AddChannel(c engine.ChannelDetails) {
	p.mtx.Lock()
	p.channels = append(p.channels, c)
	p.mtx.Unlock()
}

func (p *Protocol) ConnectedPeers() []lncore.PublicKey {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	out := make([]lncore.PublicKey, 0, len(p.connected))
	for pk := range p.connected {
		out = append(out, pk)
	}
	return out
}

// SetConnected marks a peer as connected without dialing.
func (p *Protocol) SetConnected(pk lncore.PublicKey) {
	p.mtx.Lock()
	if _, ok := p.connected[pk]; !ok {
		p.connected[pk] = make(chan struct{})
	}
	p.mtx.Unlock()
}

func (p *Protocol) SetupInbound(conn net.Conn) error {
	p.mtx.Lock()
	p.inbound++
	p.inConns = append(p.inConns, conn)
	p.mtx.Unlock()

	_, err := io.Copy(io.Discard, conn)
	conn.Close()
	return err
}

func (p *Protocol) ConnectOutbound(ctx context.Context, peer lncore.PublicKey, addr string) (<-chan struct{}, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.dials = append(p.dials, addr)

	closed := make(chan struct{})
	if p.Hangup[addr] {
		close(closed)
		return closed, nil
	}

	who, ok := p.Reachable[addr]
	if !ok || who != peer {
		return nil, fmt.Errorf("dial %s: connection refused", addr)
	}

	delay := p.HandshakeDelay
	gen := p.disconnects
	go func() {
		time.Sleep(delay)
		p.mtx.Lock()
		defer p.mtx.Unlock()
		if p.disconnects != gen {
			close(closed)
			return
		}
		if old, ok := p.connected[peer]; ok {
			close(old)
		}
		p.connected[peer] = closed
	}()
	return closed, nil
}

func (p *Protocol) DisconnectAllPeers() {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.disconnects++
	for _, c := range p.inConns {
		c.Close()
	}
	p.inConns = nil
	for pk, c := range p.connected {
		close(c)
		delete(p.connected, pk)
	}
}

func (p *Protocol) Confirmables() []engine.Confirmable {
	return []engine.Confirmable{p}
}

func (p *Protocol) BestBlockUpdated(hash string, height uint32) {
	p.mtx.Lock()
	p.bestHeight = height
	p.mtx.Unlock()
}

// Emit queues an event for the next ProcessPendingEvents call.
func (p *Protocol) Emit(e engine.Event) {
	p.mtx.Lock()
	p.pending = append(p.pending, e)
	p.mtx.Unlock()
}

func (p *Protocol) ProcessPendingEvents(h engine.EventHandler) {
	p.mtx.Lock()
	events := p.pending
	p.pending = nil
	p.mtx.Unlock()

	for i, e := range events {
		if err := h.HandleEvent(e); err != nil {
			p.mtx.Lock()
			p.pending = append(events[i:len(events):len(events)], p.pending...)
			p.mtx.Unlock()
			return
		}
		p.mtx.Lock()
		p.processed++
		p.mtx.Unlock()
	}
}

func (p *Protocol) PayInvoice(inv *engine.Invoice) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.PayErr != nil {
		return p.PayErr
	}
	p.paid = append(p.paid, inv.PaymentHash)
	return nil
}

func (p *Protocol) PayPubkey(peer lncore.PublicKey, preimage lncore.PaymentPreimage, amountMsat uint64,
	finalCltvExpiryDelta uint32) error {

	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.PayErr != nil {
		return p.PayErr
	}
	p.paid = append(p.paid, preimage.Hash())
	return nil
}

func (p *Protocol) CreateInvoice(amountMsat *uint64, description string, expirySecs uint32) (*engine.Invoice, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.InvoiceErr != nil {
		return nil, p.InvoiceErr
	}

	preimage := lncore.NewPaymentPreimage()
	inv := &engine.Invoice{
		Network:       lncore.Regtest,
		Payee:         p.ID,
		PaymentHash:   preimage.Hash(),
		PaymentSecret: lncore.NewPaymentSecret(),
		AmountMsat:    amountMsat,
		Description:   description,
		Timestamp:     time.Now(),
		Expiry:        time.Duration(expirySecs) * time.Second,
	}
	inv.Encoded = "lnbcrt1test" + inv.PaymentHash.String()
	p.invoices[inv.Encoded] = inv
	p.preimages[inv.PaymentHash] = preimage
	return inv, nil
}

// AddInvoice makes ParseInvoice know about inv.
func (p *Protocol) AddInvoice(inv *engine.Invoice) {
	p.mtx.Lock()
	p.invoices[inv.Encoded] = inv
	p.mtx.Unlock()
}

func (p *Protocol) ParseInvoice(s string) (*engine.Invoice, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	inv, ok := p.invoices[s]
	if !ok {
		return nil, engine.ErrInvoice
	}
	return inv, nil
}

// Preimage returns the preimage behind an invoice created by CreateInvoice.
func (p *Protocol) Preimage(h lncore.PaymentHash) (lncore.PaymentPreimage, bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	pre, ok := p.preimages[h]
	return pre, ok
}

func (p *Protocol) ClaimFunds(preimage lncore.PaymentPreimage) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.claimed = append(p.claimed, preimage)
	return nil
}

func (p *Protocol) FailBackwards(hash lncore.PaymentHash) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.failed = append(p.failed, hash)
	return nil
}

// Opens returns the recorded OpenChannel calls.
func (p *Protocol) Opens() []OpenCall {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return append([]OpenCall{}, p.opens...)
}

// Closes returns the ids CloseChannel was called with.
func (p *Protocol) Closes() []lncore.ChannelID {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return append([]lncore.ChannelID{}, p.closes...)
}

// Funded returns the funding tx handed over for a temporary channel id.
func (p *Protocol) Funded(id lncore.ChannelID) ([]byte, bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	tx, ok := p.funded[id]
	return tx, ok
}

// Dials returns every address ConnectOutbound was called with.
func (p *Protocol) Dials() []string {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return append([]string{}, p.dials...)
}

func (p *Protocol) InboundCount() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.inbound
}

func (p *Protocol) Disconnects() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.disconnects
}

func (p *Protocol) BestHeight() uint32 {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.bestHeight
}

func (p *Protocol) Claimed() []lncore.PaymentPreimage {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return append([]lncore.PaymentPreimage{}, p.claimed...)
}

func (p *Protocol) FailedBack() []lncore.PaymentHash {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return append([]lncore.PaymentHash{}, p.failed...)
}

// Pending counts events not yet accepted by a handler.
func (p *Protocol) Pending() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.pending)
}
