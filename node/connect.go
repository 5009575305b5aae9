package node

import (
	"context"
	"fmt"
	"time"

	"github.com/mit-dci/litnode/lncore"
	"github.com/mit-dci/litnode/metrics"
)

func (n *Node) isConnected(pk lncore.PublicKey) bool {
	for _, p := range n.protocol.ConnectedPeers() {
		if p == pk {
			return true
		}
	}
	return false
}

func (n *Node) connectPeerIfNecessary(ctx context.Context, pi lncore.PeerInfo) error {
	if n.isConnected(pi.PubKey) {
		metrics.IncConnectAttempt("already")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, n.connectTimeout)
	defer cancel()
	err := n.doConnectPeer(ctx, pi)
	if err != nil {
		metrics.IncConnectAttempt("failure")
		return err
	}
	metrics.IncConnectAttempt("success")
	return nil
}

// doConnectPeer dials pi and waits until the engine lists it as connected.
// The connection going away first, or ctx ending, is a failure.
func (n *Node) doConnectPeer(ctx context.Context, pi lncore.PeerInfo) error {
	n.log.Infof("connecting to %s", pi)

	closed, err := n.protocol.ConnectOutbound(ctx, pi.PubKey, pi.Address)
	if err != nil {
		n.log.Errorf("failed to connect to %s: %s", pi, err.Error())
		return fmt.Errorf("%w: %s: %v", lncore.ErrConnectionFailed, pi, err)
	}

	tick := time.NewTicker(connectPollInterval)
	defer tick.Stop()
	for {
		select {
		case <-closed:
			n.log.Errorf("connection to %s closed during handshake", pi)
			return fmt.Errorf("%w: %s closed", lncore.ErrConnectionFailed, pi)
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", lncore.ErrConnectionFailed, pi, ctx.Err())
		default:
		}

		if n.isConnected(pi.PubKey) {
			n.log.Infof("connected to %s", pi)
			return nil
		}

		select {
		case <-closed:
		case <-ctx.Done():
		case <-tick.C:
		}
	}
}

// Connect connects to a peer without opening a channel.  If persist is set
// the peer is added to the directory so it gets reconnected to.
func (n *Node) Connect(peer string, persist bool) error {
	rt, err := n.current()
	if err != nil {
		return err
	}
	pi, err := lncore.ParsePeerInfo(peer)
	if err != nil {
		return err
	}
	if err := n.connectPeerIfNecessary(rt.ctx, pi); err != nil {
		return err
	}
	if persist {
		return n.peers.Add(pi)
	}
	return nil
}

// Disconnect removes a peer from the directory.  Connections to it are kept
// until the engine drops them, but it won't be reconnected to.
func (n *Node) Disconnect(pk lncore.PublicKey) error {
	if _, err := n.current(); err != nil {
		return err
	}
	return n.peers.Remove(pk)
}

// ListPeers returns the peer directory.
func (n *Node) ListPeers() []lncore.PeerInfo {
	return n.peers.List()
}

// ConnectedPeers lists the peers the engine has a live connection to.
func (n *Node) ConnectedPeers() []lncore.PublicKey {
	return n.protocol.ConnectedPeers()
}
