package qln

import (
	"github.com/mit-dci/litnode/engine"
	"github.com/mit-dci/litnode/eventbus"
	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/lnp2p"
)

func (nd *LitNode) registerHandlers() {
	nd.Events.RegisterHandler(lnp2p.EventPeerNew, func(e eventbus.Event) eventbus.Result {
		ee := e.(lnp2p.NewPeerEvent)
		nd.queueEvent(engine.PeerConnected{
			NodeID:  ee.Peer.NodeID(),
			Inbound: ee.RemoteInitiated,
		})
		return eventbus.Continue
	})

	nd.Events.RegisterHandler(lnp2p.EventMsg, func(e eventbus.Event) eventbus.Result {
		ee := e.(lnp2p.MessageEvent)
		nd.handleMessage(ee.Peer.NodeID(), ee.Msg)
		return eventbus.Continue
	})
}

// handles stuff that comes in over the wire.  Not user-initiated.
func (nd *LitNode) handleMessage(from lncore.PublicKey, msg lnp2p.Message) {
	var (
		out []outMsg
		err error
	)

	switch msg.Type {
	case MSG_OPEN_CHANNEL:
		var m openChannelMsg
		if err = msg.Decode(&m); err == nil {
			out, err = nd.openChannelHandler(from, m)
		}

	case MSG_ACCEPT_CHANNEL:
		var m acceptChannelMsg
		if err = msg.Decode(&m); err == nil {
			err = nd.acceptChannelHandler(from, m)
		}

	case MSG_FUNDING_CREATED:
		var m fundingCreatedMsg
		if err = msg.Decode(&m); err == nil {
			err = nd.fundingCreatedHandler(from, m)
		}

	case MSG_SHUTDOWN:
		var m shutdownMsg
		if err = msg.Decode(&m); err == nil {
			err = nd.shutdownHandler(from, m)
		}

	case MSG_UPDATE_ADD:
		var m updateAddMsg
		if err = msg.Decode(&m); err == nil {
			out = nd.updateAddHandler(from, m)
		}

	case MSG_UPDATE_FULFILL:
		var m updateFulfillMsg
		if err = msg.Decode(&m); err == nil {
			err = nd.updateFulfillHandler(from, m)
		}

	case MSG_UPDATE_FAIL:
		var m updateFailMsg
		if err = msg.Decode(&m); err == nil {
			err = nd.updateFailHandler(from, m)
		}

	default:
		nd.log.Warnf("unknown message type %q from %s", msg.Type, from)
		return
	}

	if err != nil {
		nd.log.Warnf("%s from %s: %s", msg.Type, from, err.Error())
	}
	nd.send(out...)
}
