package qln

import (
	"github.com/mit-dci/litnode/lncore"
)

// message types on the peer connection
const (
	MSG_OPEN_CHANNEL    = "open_channel"
	MSG_ACCEPT_CHANNEL  = "accept_channel"
	MSG_FUNDING_CREATED = "funding_created"
	MSG_SHUTDOWN        = "shutdown"
	MSG_UPDATE_ADD      = "update_add"
	MSG_UPDATE_FULFILL  = "update_fulfill"
	MSG_UPDATE_FAIL     = "update_fail"
)

type openChannelMsg struct {
	TempID       lncore.ChannelID `json:"temp_id"`
	CapacitySats uint64           `json:"capacity_sats"`
	PushMsat     uint64           `json:"push_msat"`
	Announce     bool             `json:"announce"`
	ToSelfDelay  uint16           `json:"to_self_delay"`
}

type acceptChannelMsg struct {
	TempID lncore.ChannelID `json:"temp_id"`
}

type fundingCreatedMsg struct {
	TempID    lncore.ChannelID `json:"temp_id"`
	ChannelID lncore.ChannelID `json:"channel_id"`
}

type shutdownMsg struct {
	ChannelID lncore.ChannelID `json:"channel_id"`
}

type updateAddMsg struct {
	ChannelID   lncore.ChannelID        `json:"channel_id"`
	PaymentHash lncore.PaymentHash      `json:"payment_hash"`
	AmountMsat  uint64                  `json:"amount_msat"`
	CltvDelta   uint32                  `json:"cltv_delta"`
	Secret      *lncore.PaymentSecret   `json:"secret,omitempty"`
	Preimage    *lncore.PaymentPreimage `json:"preimage,omitempty"`
}

type updateFulfillMsg struct {
	ChannelID lncore.ChannelID       `json:"channel_id"`
	Preimage  lncore.PaymentPreimage `json:"preimage"`
}

type updateFailMsg struct {
	ChannelID   lncore.ChannelID   `json:"channel_id"`
	PaymentHash lncore.PaymentHash `json:"payment_hash"`
	Reason      string             `json:"reason"`
}

// outMsg is a message queued while holding the node lock and sent after
// releasing it.
type outMsg struct {
	to      lncore.PublicKey
	mtype   string
	payload interface{}
}
