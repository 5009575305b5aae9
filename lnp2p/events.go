package lnp2p

import (
	"github.com/mit-dci/litnode/eventbus"
)

// Event names published by the peer manager.
const (
	EventPeerNew        = "lnp2p.peer.new"
	EventPeerDisconnect = "lnp2p.peer.disconnect"
	EventMsg            = "lnp2p.msg"
)

// NewPeerEvent is published once a handshake completes, for both dialed and
// accepted peers.
type NewPeerEvent struct {
	Peer            *Peer
	RemoteInitiated bool
}

func (NewPeerEvent) Name() string { return EventPeerNew }
func (NewPeerEvent) Flags() eventbus.Flags { return eventbus.Uncancellable }

// PeerDisconnectEvent is published after a peer's connection is closed.
type PeerDisconnectEvent struct {
	Peer   *Peer
	Reason string
}

func (PeerDisconnectEvent) Name() string { return EventPeerDisconnect }
func (PeerDisconnectEvent) Flags() eventbus.Flags { return eventbus.Uncancellable }

// MessageEvent carries one message read from a peer.  Handlers run on the
// peer's read goroutine, so messages from one peer are seen in order.
type MessageEvent struct {
	Peer *Peer
	Msg  Message
}

func (MessageEvent) Name() string { return EventMsg }
func (MessageEvent) Flags() eventbus.Flags { return eventbus.Normal }
