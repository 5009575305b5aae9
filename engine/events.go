package engine

import "github.com/mit-dci/litnode/lncore"

// An Event is emitted by a Protocol engine and processed by the node.
type Event interface {
	EventName() string
}

// FundingGenerationReady asks the wallet for a funding transaction paying
// ValueSats to OutputScript.
type FundingGenerationReady struct {
	TemporaryChannelID lncore.ChannelID
	Counterparty       lncore.PublicKey
	ValueSats          uint64
	OutputScript       []byte
	UserChannelID      lncore.UserChannelID
}

// PaymentClaimable is an inbound payment waiting to be claimed or failed.
// Preimage is set for spontaneous payments.
type PaymentClaimable struct {
	PaymentHash lncore.PaymentHash
	AmountMsat  uint64
	Preimage    *lncore.PaymentPreimage
	Secret      *lncore.PaymentSecret
}

// PaymentClaimed means an inbound payment was settled.
type PaymentClaimed struct {
	PaymentHash lncore.PaymentHash
	AmountMsat  uint64
}

// PaymentSent is an outbound payment the recipient claimed.
type PaymentSent struct {
	PaymentHash lncore.PaymentHash
	Preimage    lncore.PaymentPreimage
}

type PaymentFailed struct {
	PaymentHash lncore.PaymentHash
}

type ChannelReady struct {
	ChannelID     lncore.ChannelID
	UserChannelID lncore.UserChannelID
	Counterparty  lncore.PublicKey
}

type ChannelClosed struct {
	ChannelID     lncore.ChannelID
	UserChannelID lncore.UserChannelID
	Reason        string
}

// PeerConnected reports a peer whose handshake completed.
type PeerConnected struct {
	NodeID  lncore.PublicKey
	Inbound bool
}

func (FundingGenerationReady) EventName() string { return "funding_generation_ready" }
func (PaymentClaimable) EventName() string       { return "payment_claimable" }
func (PaymentClaimed) EventName() string         { return "payment_claimed" }
func (PaymentSent) EventName() string            { return "payment_sent" }
func (PaymentFailed) EventName() string          { return "payment_failed" }
func (ChannelReady) EventName() string           { return "channel_ready" }
func (ChannelClosed) EventName() string          { return "channel_closed" }
func (PeerConnected) EventName() string          { return "peer_connected" }
