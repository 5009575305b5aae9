package qln

import (
	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/lncore"
)

// ChanState is where a channel is in its life.
type ChanState string

const (
	// opener sent open_channel, waiting for accept_channel
	StatePendingOpen ChanState = "pending_open"

	// waiting for the funding transaction
	StateAwaitingFunding ChanState = "awaiting_funding"

	// funding transaction known, waiting for the next block
	StateFunded ChanState = "funded"

	StateReady ChanState = "ready"
)

// HTLC is a payment in flight over a channel.  Incoming HTLCs wait for the
// application to claim or fail them.
type HTLC struct {
	PaymentHash lncore.PaymentHash `json:"payment_hash"`
	AmountMsat  uint64             `json:"amount_msat"`
	Incoming    bool               `json:"incoming"`
}

// Qchan is a channel with a single counterparty.  Before funding, ChannelID
// holds the temporary id picked by the opener.
type Qchan struct {
	ChannelID     lncore.ChannelID     `json:"channel_id"`
	TempID        lncore.ChannelID     `json:"temp_id"`
	UserChannelID lncore.UserChannelID `json:"user_channel_id"`
	Counterparty  lncore.PublicKey     `json:"counterparty"`

	CapacitySats uint64 `json:"capacity_sats"`
	LocalMsat    uint64 `json:"local_msat"`
	RemoteMsat   uint64 `json:"remote_msat"`

	IsOutbound       bool      `json:"is_outbound"`
	Public           bool      `json:"public"`
	TheirToSelfDelay uint16    `json:"their_to_self_delay"`
	State            ChanState `json:"state"`
	FundingScript    []byte    `json:"funding_script,omitempty"`

	HTLCs []HTLC `json:"htlcs,omitempty"`
}

// details reports the channel the way the node lists it.  Balances locked
// in HTLCs count for neither side.
func (q *Qchan) details() engine.ChannelDetails {
	return engine.ChannelDetails{
		ChannelID:            q.ChannelID,
		UserChannelID:        q.UserChannelID,
		Counterparty:         q.Counterparty,
		CapacitySats:         q.CapacitySats,
		OutboundCapacityMsat: q.LocalMsat,
		InboundCapacityMsat:  q.RemoteMsat,
		IsOutbound:           q.IsOutbound,
		IsReady:              q.State == StateReady,
		IsPublic:             q.Public,
	}
}

func (q *Qchan) findHTLC(hash lncore.PaymentHash, incoming bool) int {
	for i, h := range q.HTLCs {
		if h.PaymentHash == hash && h.Incoming == incoming {
			return i
		}
	}
	return -1
}

func (q *Qchan) removeHTLC(i int) HTLC {
	h := q.HTLCs[i]
	q.HTLCs = append(q.HTLCs[:i], q.HTLCs[i+1:]...)
	return h
}
