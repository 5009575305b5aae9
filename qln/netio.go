package qln

import (
	"context"
	"net"

	"github.com/mit-dci/litnode/lncore"
)

func (nd *LitNode) ConnectedPeers() []lncore.PublicKey {
	return nd.PeerMan.Peers()
}

// SetupInbound runs an accepted connection until it closes.
func (nd *LitNode) SetupInbound(conn net.Conn) error {
	return nd.PeerMan.HandleInbound(conn)
}

// ConnectOutbound dials peer at addr.
func (nd *LitNode) ConnectOutbound(ctx context.Context, peer lncore.PublicKey, addr string) (<-chan struct{}, error) {
	return nd.PeerMan.ConnectOutbound(ctx, peer, addr)
}

// DisconnectAllPeers closes every connection and waits for the outbound ones
// to wind down.
func (nd *LitNode) DisconnectAllPeers() {
	nd.PeerMan.DisconnectAll()
	nd.PeerMan.Wait()
}
