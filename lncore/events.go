package lncore

import (
	"encoding/json"
	"fmt"
)

// EventType tags the variants of Event on the wire and on disk.
type EventType string

const (
	EventPaymentSuccessful EventType = "payment_successful"
	EventPaymentFailed     EventType = "payment_failed"
	EventPaymentReceived   EventType = "payment_received"
	EventChannelReady      EventType = "channel_ready"
	EventChannelClosed     EventType = "channel_closed"
	EventPeerConnected     EventType = "peer_connected"
)

// An Event is something the application has to react to.  Events are handed
// out by the node one at a time and stay at the head of the queue until the
// application confirms it handled them.
type Event interface {
	Type() EventType
}

// PaymentSuccessfulEvent is emitted when an outbound payment was claimed by
// the recipient.
type PaymentSuccessfulEvent struct {
	PaymentHash PaymentHash `json:"payment_hash"`
}

// PaymentFailedEvent is emitted when an outbound payment gave up.
type PaymentFailedEvent struct {
	PaymentHash PaymentHash `json:"payment_hash"`
}

// PaymentReceivedEvent is emitted once an inbound payment has been claimed.
type PaymentReceivedEvent struct {
	PaymentHash PaymentHash `json:"payment_hash"`
	AmountMsat  uint64      `json:"amount_msat"`
}

// ChannelReadyEvent is emitted when a channel's funding confirmed and it can
// be used.
type ChannelReadyEvent struct {
	ChannelID     ChannelID     `json:"channel_id"`
	UserChannelID UserChannelID `json:"user_channel_id"`
}

// ChannelClosedEvent is emitted once a channel is closed, cooperatively
// or not.
type ChannelClosedEvent struct {
	ChannelID     ChannelID     `json:"channel_id"`
	UserChannelID UserChannelID `json:"user_channel_id"`
}

// PeerConnectedEvent is emitted when a peer connection came up.
type PeerConnectedEvent struct {
	NodeID  PublicKey `json:"node_id"`
	Inbound bool      `json:"inbound"`
}

func (PaymentSuccessfulEvent) Type() EventType { return EventPaymentSuccessful }
func (PaymentFailedEvent) Type() EventType     { return EventPaymentFailed }
func (PaymentReceivedEvent) Type() EventType   { return EventPaymentReceived }
func (ChannelReadyEvent) Type() EventType      { return EventChannelReady }
func (ChannelClosedEvent) Type() EventType     { return EventChannelClosed }
func (PeerConnectedEvent) Type() EventType     { return EventPeerConnected }

type eventEnvelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalEvent encodes an event together with its type tag.
func MarshalEvent(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventEnvelope{Type: e.Type(), Data: data})
}

// UnmarshalEvent decodes an event written by MarshalEvent.
func UnmarshalEvent(b []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}

	var err error
	switch env.Type {
	case EventPaymentSuccessful:
		var e PaymentSuccessfulEvent
		err = json.Unmarshal(env.Data, &e)
		return e, err
	case EventPaymentFailed:
		var e PaymentFailedEvent
		err = json.Unmarshal(env.Data, &e)
		return e, err
	case EventPaymentReceived:
		var e PaymentReceivedEvent
		err = json.Unmarshal(env.Data, &e)
		return e, err
	case EventChannelReady:
		var e ChannelReadyEvent
		err = json.Unmarshal(env.Data, &e)
		return e, err
	case EventChannelClosed:
		var e ChannelClosedEvent
		err = json.Unmarshal(env.Data, &e)
		return e, err
	case EventPeerConnected:
		var e PeerConnectedEvent
		err = json.Unmarshal(env.Data, &e)
		return e, err
	}
	return nil, fmt.Errorf("unknown event type %q", env.Type)
}
