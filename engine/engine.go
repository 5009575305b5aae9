// Package engine describes the collaborators the node drives: a payment
// channel protocol engine, an on-chain wallet and a chain data source.  The
// node only talks to them through these interfaces.  Implementations must be
// safe for concurrent use.
package engine

import (
	"context"
	"errors"
	"net"

	"github.com/mit-dci/litnode/lncore"
)

// Payment errors returned by Protocol.PayInvoice and Protocol.PayPubkey.
var (
	// ErrInvoice means the invoice can't be paid as given (expired, no
	// amount, wrong network ...).
	ErrInvoice = errors.New("invalid invoice")

	// ErrRouting means no route to the recipient was found.
	ErrRouting = errors.New("no route found")

	// ErrSending means the payment was attempted but failed to go out.
	ErrSending = errors.New("failed to send payment")

	// ErrSendingTransient is a sending failure that may go away when
	// retried, e.g. a channel that is momentarily busy.
	ErrSendingTransient = errors.New("payment temporarily failed to send")
)

// ChannelConfig carries the per channel settings the node picks on open.
type ChannelConfig struct {
	AnnouncedChannel bool
	TheirToSelfDelay uint16
}

// ChannelDetails is the engine's view of one channel.
type ChannelDetails struct {
	ChannelID            lncore.ChannelID     `json:"channel_id"`
	UserChannelID        lncore.UserChannelID `json:"user_channel_id"`
	Counterparty         lncore.PublicKey     `json:"counterparty"`
	CapacitySats         uint64               `json:"capacity_sats"`
	OutboundCapacityMsat uint64               `json:"outbound_capacity_msat"`
	InboundCapacityMsat  uint64               `json:"inbound_capacity_msat"`
	IsOutbound           bool                 `json:"is_outbound"`
	IsReady              bool                 `json:"is_ready"`
	IsPublic             bool                 `json:"is_public"`
}

// Confirmable is told about new chain data by a ChainSource.
type Confirmable interface {
	BestBlockUpdated(hash string, height uint32)
}

// EventHandler receives protocol events.  Returning an error leaves the event
// pending in the engine; it is offered again on the next call to
// ProcessPendingEvents.
type EventHandler interface {
	HandleEvent(Event) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(Event) error

func (f EventHandlerFunc) HandleEvent(e Event) error {
	return f(e)
}

// Protocol is the payment channel engine.
type Protocol interface {
	NodeID() lncore.PublicKey

	OpenChannel(peer lncore.PublicKey, amountSats, pushMsat uint64,
		userChannelID lncore.UserChannelID, cfg ChannelConfig) (lncore.ChannelID, error)
	FundingTransactionGenerated(tempID lncore.ChannelID, counterparty lncore.PublicKey, tx []byte) error
	CloseChannel(id lncore.ChannelID, counterparty lncore.PublicKey) error
	ListChannels() []ChannelDetails

	// ConnectedPeers lists peers that finished the connection handshake.
	ConnectedPeers() []lncore.PublicKey

	// SetupInbound runs an accepted connection and only returns once it
	// is closed.
	SetupInbound(conn net.Conn) error

	// ConnectOutbound dials the peer.  If the dial worked the connection
	// keeps running in the background and the returned channel is closed
	// when it goes away.  The handshake may still be in progress when this
	// returns.
	ConnectOutbound(ctx context.Context, peer lncore.PublicKey, addr string) (<-chan struct{}, error)
	DisconnectAllPeers()

	// Confirmables are the parts of the engine that need chain data.
	Confirmables() []Confirmable

	// ProcessPendingEvents hands all pending events to h, in order.
	ProcessPendingEvents(h EventHandler)

	PayInvoice(inv *Invoice) error
	PayPubkey(peer lncore.PublicKey, preimage lncore.PaymentPreimage, amountMsat uint64,
		finalCltvExpiryDelta uint32) error
	CreateInvoice(amountMsat *uint64, description string, expirySecs uint32) (*Invoice, error)
	ParseInvoice(s string) (*Invoice, error)
	ClaimFunds(preimage lncore.PaymentPreimage) error
	FailBackwards(hash lncore.PaymentHash) error
}

// Wallet is the on-chain wallet.
type Wallet interface {
	NewAddress() (string, error)
	Balance() (lncore.Balance, error)
	Sync(ctx context.Context) error

	// CreateFundingTransaction returns a serialized transaction paying
	// valueSats to outputScript.
	CreateFundingTransaction(outputScript []byte, valueSats uint64) ([]byte, error)
}

// ChainSource feeds chain data into confirmables.
type ChainSource interface {
	Sync(ctx context.Context, confirmables []Confirmable) error
}
